package mongo

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"alcyxob/mindtrack-app/internal/domain"
	"alcyxob/mindtrack-app/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const progressCollectionName = "progress"

// progressDoc is the persisted shape of a progress record. BSON maps need
// string keys, so the sparse int-keyed maps are re-keyed on the way in and
// out. Sync bookkeeping (syncStatus, lastSyncTimestamp) is session-local and
// deliberately not stored remotely.
type progressDoc struct {
	ID              primitive.ObjectID               `bson:"_id,omitempty"`
	OwnerID         string                           `bson:"ownerId"`
	CurrentDay      int                              `bson:"currentDay"`
	Days            map[string]domain.DayProgress    `bson:"days"`
	WeekReflections map[string]domain.WeekReflection `bson:"weekReflections"`
	CompletedDays   int                              `bson:"completedDays"`
	TotalDays       int                              `bson:"totalDays"`
	StartDate       time.Time                        `bson:"startDate"`
	LastUpdated     time.Time                        `bson:"lastUpdated"`
	UpdatedAt       time.Time                        `bson:"updatedAt"`
}

// mongoProgressRepository implements repository.ProgressRepository using MongoDB.
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new instance of mongoProgressRepository.
// It expects a connected *mongo.Database instance.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// Fetch retrieves the progress document for an owner. A missing document is
// repository.ErrNotFound, not a failure.
func (r *mongoProgressRepository) Fetch(ctx context.Context, ownerID string) (*domain.UserProgress, error) {
	if ownerID == "" {
		return nil, errors.New("owner id is required")
	}

	var doc progressDoc
	err := r.collection.FindOne(ctx, bson.M{"ownerId": ownerID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return docToDomain(&doc), nil
}

// Upsert writes the full record for an owner, inserting on first write and
// replacing afterwards. The existence check plus insert is not transactional;
// if two sessions race to create the first document, the unique owner index
// rejects the loser and we retry as a replace.
func (r *mongoProgressRepository) Upsert(ctx context.Context, ownerID string, p *domain.UserProgress) error {
	if ownerID == "" {
		return errors.New("owner id is required")
	}

	doc := domainToDoc(ownerID, p)
	filter := bson.M{"ownerId": ownerID}

	err := r.collection.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case err == nil:
		_, err = r.collection.ReplaceOne(ctx, filter, doc)
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		_, err = r.collection.InsertOne(ctx, doc)
		if err != nil && mongo.IsDuplicateKeyError(err) {
			// Lost the first-write race to another session; their document
			// will absorb ours on the next fetch-and-merge, but replace now
			// so this write is not dropped.
			_, err = r.collection.ReplaceOne(ctx, filter, doc)
		}
		return err
	default:
		return err
	}
}

func domainToDoc(ownerID string, p *domain.UserProgress) *progressDoc {
	doc := &progressDoc{
		OwnerID:         ownerID,
		CurrentDay:      p.CurrentDay,
		Days:            make(map[string]domain.DayProgress, len(p.Days)),
		WeekReflections: make(map[string]domain.WeekReflection, len(p.WeekReflections)),
		CompletedDays:   p.CompletedDays,
		TotalDays:       p.TotalDays,
		StartDate:       p.StartDate.UTC(),
		LastUpdated:     p.LastUpdated.UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	for day, entry := range p.Days {
		doc.Days[strconv.Itoa(day)] = entry
	}
	for week, entry := range p.WeekReflections {
		doc.WeekReflections[strconv.Itoa(week)] = entry
	}
	return doc
}

func docToDomain(doc *progressDoc) *domain.UserProgress {
	p := &domain.UserProgress{
		CurrentDay:      doc.CurrentDay,
		Days:            make(map[int]domain.DayProgress, len(doc.Days)),
		WeekReflections: make(map[int]domain.WeekReflection, len(doc.WeekReflections)),
		CompletedDays:   doc.CompletedDays,
		TotalDays:       doc.TotalDays,
		StartDate:       doc.StartDate,
		LastUpdated:     doc.LastUpdated,
		SyncStatus:      domain.SyncIdle,
		OwnerID:         doc.OwnerID,
	}
	for key, entry := range doc.Days {
		if day, err := strconv.Atoi(key); err == nil {
			p.Days[day] = entry
		}
	}
	for key, entry := range doc.WeekReflections {
		if week, err := strconv.Atoi(key); err == nil {
			p.WeekReflections[week] = entry
		}
	}
	return p
}

// EnsureProgressIndexes creates necessary indexes for the progress collection.
// Call this once during application startup. The unique owner index is what
// narrows the upsert's read-then-write window to a retried replace.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "ownerId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updatedAt", Value: 1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		// Not fatal; upserts still work, only the first-write race window
		// widens.
		log.Printf("WARNING: Could not create indexes for collection %s: %v", collection.Name(), err)
	} else {
		log.Printf("Indexes ensured for collection %s", collection.Name())
	}
}

package cache

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"alcyxob/mindtrack-app/internal/domain"
)

// cacheRecord is the persisted local format: the progress snapshot plus the
// owner identity it was saved under, as one JSON object at a fixed path.
type cacheRecord struct {
	OwnerID  string              `json:"ownerId"`
	SavedAt  time.Time           `json:"savedAt"`
	Progress domain.UserProgress `json:"progress"`
}

// fileStore implements Store on a single JSON file.
type fileStore struct {
	path   string
	mu     sync.Mutex
	logger *log.Logger
}

// NewFileStore creates a file-backed cache store at path. The parent
// directory is created if missing. If logger is nil a stderr logger is used.
func NewFileStore(path string, logger *log.Logger) (Store, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[cache] ", log.LstdFlags)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return &fileStore{path: path, logger: logger}, nil
}

// Load reads the cached record, enforcing the ownership check.
func (s *fileStore) Load(ownerID string) (*domain.UserProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoEntry
		}
		return nil, err
	}

	var rec cacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt payload is treated as cache-absent; the next save
		// overwrites it.
		s.logger.Printf("WARNING: discarding unreadable cache entry at %s: %v", s.path, err)
		return nil, ErrNoEntry
	}

	if ownerID != "" && rec.OwnerID != ownerID {
		// Cache bleed guard: never hand one account's record to another.
		return nil, ErrNoEntry
	}

	if rec.Progress.Days == nil {
		rec.Progress.Days = make(map[int]domain.DayProgress)
	}
	if rec.Progress.WeekReflections == nil {
		rec.Progress.WeekReflections = make(map[int]domain.WeekReflection)
	}
	return &rec.Progress, nil
}

// Save writes the record atomically: encode to a temp file, fsync, rename.
func (s *fileStore) Save(p *domain.UserProgress, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := cacheRecord{
		OwnerID:  ownerID,
		SavedAt:  time.Now().UTC(),
		Progress: *p.Clone(),
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

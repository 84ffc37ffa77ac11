package domain

import (
	"time"
)

// TotalDays is the fixed length of the program.
const TotalDays = 31

// TotalWeeks is the number of weekly reflection checkpoints (weeks 1..5).
const TotalWeeks = 5

// SyncStatus describes the last known outcome of remote synchronization.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncSyncing SyncStatus = "syncing"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// Goal is a single daily task: free text plus a completion flag.
type Goal struct {
	Text      string `bson:"text" json:"text"`
	Completed bool   `bson:"completed" json:"completed"`
}

// DayProgress holds everything a user entered for one program day.
// Arrays are fixed at three slots; an empty string means "not filled in".
type DayProgress struct {
	Completed         bool      `bson:"completed" json:"completed"`
	Gratitude         [3]string `bson:"gratitude" json:"gratitude"`
	Achievements      [3]string `bson:"achievements" json:"achievements"`
	Goals             [3]Goal   `bson:"goals" json:"goals"`
	ExerciseCompleted bool      `bson:"exerciseCompleted" json:"exerciseCompleted"`
	WithAudio         bool      `bson:"withAudio" json:"withAudio"`
	Reflection        string    `bson:"reflection,omitempty" json:"reflection,omitempty"`
}

// WeekReflection holds the weekly checkpoint entries for one program week.
type WeekReflection struct {
	GratitudeSelf     string    `bson:"gratitudeSelf" json:"gratitudeSelf"`
	GratitudeOthers   string    `bson:"gratitudeOthers" json:"gratitudeOthers"`
	GratitudeWorld    string    `bson:"gratitudeWorld" json:"gratitudeWorld"`
	Achievements      [3]string `bson:"achievements" json:"achievements"`
	Improvements      [3]string `bson:"improvements" json:"improvements"`
	Insights          [3]string `bson:"insights" json:"insights"`
	Rules             [3]string `bson:"rules" json:"rules"`
	ExerciseCompleted bool      `bson:"exerciseCompleted" json:"exerciseCompleted"`
	WithAudio         bool      `bson:"withAudio" json:"withAudio"`
}

// UserProgress is the root aggregate: one record per owner.
//
// Days and WeekReflections are sparse; an absent key means "not yet started".
// LastUpdated advances on every local mutation and feeds merge recency;
// LastSyncTimestamp advances only on a successful remote read or write.
type UserProgress struct {
	CurrentDay        int                    `json:"currentDay"`
	Days              map[int]DayProgress    `json:"days"`
	WeekReflections   map[int]WeekReflection `json:"weekReflections"`
	CompletedDays     int                    `json:"completedDays"`
	TotalDays         int                    `json:"totalDays"`
	StartDate         time.Time              `json:"startDate"`
	LastUpdated       time.Time              `json:"lastUpdated"`
	LastSyncTimestamp time.Time              `json:"lastSyncTimestamp"`
	SyncStatus        SyncStatus             `json:"syncStatus"`
	OwnerID           string                 `json:"ownerId"`
}

// DefaultProgress creates a fresh record for an owner starting the program now.
func DefaultProgress(ownerID string, now time.Time) *UserProgress {
	return &UserProgress{
		CurrentDay:      1,
		Days:            make(map[int]DayProgress),
		WeekReflections: make(map[int]WeekReflection),
		CompletedDays:   0,
		TotalDays:       TotalDays,
		StartDate:       now.UTC(),
		LastUpdated:     now.UTC(),
		SyncStatus:      SyncIdle,
		OwnerID:         ownerID,
	}
}

// Clone returns a deep copy. The orchestrator hands copies to callers so the
// in-memory record is never aliased outside its lock.
func (p *UserProgress) Clone() *UserProgress {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Days = make(map[int]DayProgress, len(p.Days))
	for k, v := range p.Days {
		cp.Days[k] = v
	}
	cp.WeekReflections = make(map[int]WeekReflection, len(p.WeekReflections))
	for k, v := range p.WeekReflections {
		cp.WeekReflections[k] = v
	}
	return &cp
}

// RecountCompletedDays recomputes the CompletedDays counter from the Days map.
func (p *UserProgress) RecountCompletedDays() {
	n := 0
	for _, d := range p.Days {
		if d.Completed {
			n++
		}
	}
	p.CompletedDays = n
}

// DayNumberFor computes which program day falls on "now" given the start
// date, clamped to [1, TotalDays]. Both timestamps are compared at local
// midnight so a session opened late in the evening still lands on the same
// program day as one opened that morning.
func DayNumberFor(start, now time.Time) int {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := int(nowDay.Sub(startDay).Hours()/24) + 1
	if day < 1 {
		day = 1
	}
	if day > TotalDays {
		day = TotalDays
	}
	return day
}

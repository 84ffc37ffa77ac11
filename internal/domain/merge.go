package domain

import (
	"strings"
	"time"
)

// Merge reconciles two independently-evolved snapshots of the same owner's
// progress into one. It is the only conflict-resolution mechanism between
// sessions, so it has to be commutative (Merge(a,b) == Merge(b,a)),
// idempotent (Merge(a,a) == a up to sync bookkeeping) and
// completeness-monotonic (a field filled on either side is filled in the
// result). Inputs are not modified.
//
// Resolution rules:
//   - currentDay, completedDays, totalDays: max of both sides.
//   - startDate, lastUpdated, lastSyncTimestamp: the later timestamp. Taking
//     the later startDate can move the program start forward if one side
//     observed a stale value; that matches the shipped behavior and is kept
//     deliberately (see DESIGN.md).
//   - days / weekReflections: union by key. Entries present on both sides are
//     resolved by completeness score; the more complete entry wins wholesale,
//     except day goals which are reconciled per slot.
func Merge(local, remote *UserProgress) *UserProgress {
	if local == nil {
		return remote.Clone()
	}
	if remote == nil {
		return local.Clone()
	}

	out := &UserProgress{
		CurrentDay:        maxInt(local.CurrentDay, remote.CurrentDay),
		CompletedDays:     maxInt(local.CompletedDays, remote.CompletedDays),
		TotalDays:         maxInt(local.TotalDays, remote.TotalDays),
		StartDate:         laterTime(local.StartDate, remote.StartDate),
		LastUpdated:       laterTime(local.LastUpdated, remote.LastUpdated),
		LastSyncTimestamp: laterTime(local.LastSyncTimestamp, remote.LastSyncTimestamp),
		SyncStatus:        SyncIdle,
		OwnerID:           mergeOwnerID(local.OwnerID, remote.OwnerID),
		Days:              make(map[int]DayProgress),
		WeekReflections:   make(map[int]WeekReflection),
	}

	for day, entry := range local.Days {
		if other, ok := remote.Days[day]; ok {
			out.Days[day] = mergeDay(entry, other)
		} else {
			out.Days[day] = entry
		}
	}
	for day, entry := range remote.Days {
		if _, ok := local.Days[day]; !ok {
			out.Days[day] = entry
		}
	}

	for week, entry := range local.WeekReflections {
		if other, ok := remote.WeekReflections[week]; ok {
			out.WeekReflections[week] = mergeWeek(entry, other)
		} else {
			out.WeekReflections[week] = entry
		}
	}
	for week, entry := range remote.WeekReflections {
		if _, ok := local.WeekReflections[week]; !ok {
			out.WeekReflections[week] = entry
		}
	}

	return out
}

// mergeDay resolves one day present on both sides. The entry with the higher
// completeness score wins all scalar and array fields; goals are then
// reconciled slot by slot so a task filled in or completed anywhere survives.
func mergeDay(a, b DayProgress) DayProgress {
	aWins := dayWins(a, b)
	winner := b
	if aWins {
		winner = a
	}

	out := winner
	for i := range out.Goals {
		out.Goals[i] = mergeGoal(a.Goals[i], b.Goals[i], aWins)
	}
	return out
}

// mergeGoal reconciles a single goal slot. Text never regresses from filled
// to empty; if both sides filled in different text the winning entry's text
// is kept. Completion is a logical OR: done on any device stays done.
func mergeGoal(a, b Goal, aWins bool) Goal {
	var out Goal
	switch {
	case a.Text == "":
		out.Text = b.Text
	case b.Text == "":
		out.Text = a.Text
	case aWins:
		out.Text = a.Text
	default:
		out.Text = b.Text
	}
	out.Completed = a.Completed || b.Completed
	return out
}

func mergeWeek(a, b WeekReflection) WeekReflection {
	if weekWins(a, b) {
		return a
	}
	return b
}

// dayWins reports whether a beats b. Higher completeness score wins; equal
// scores fall back to a deterministic field-order comparison so the outcome
// does not depend on which side is called "local".
func dayWins(a, b DayProgress) bool {
	sa, sb := DayCompletenessScore(a), DayCompletenessScore(b)
	if sa != sb {
		return sa > sb
	}
	return compareDay(a, b) >= 0
}

func weekWins(a, b WeekReflection) bool {
	sa, sb := WeekCompletenessScore(a), WeekCompletenessScore(b)
	if sa != sb {
		return sa > sb
	}
	return compareWeek(a, b) >= 0
}

// DayCompletenessScore counts filled-in and completed fields of a day entry:
// non-empty gratitude and achievement slots, non-empty goal texts, completed
// goals, and one point for the exercise.
func DayCompletenessScore(d DayProgress) int {
	score := countNonEmpty(d.Gratitude) + countNonEmpty(d.Achievements)
	for _, g := range d.Goals {
		if g.Text != "" {
			score++
		}
		if g.Completed {
			score++
		}
	}
	if d.ExerciseCompleted {
		score++
	}
	return score
}

// WeekCompletenessScore is the analogous count for a weekly reflection.
func WeekCompletenessScore(w WeekReflection) int {
	score := 0
	for _, s := range []string{w.GratitudeSelf, w.GratitudeOthers, w.GratitudeWorld} {
		if s != "" {
			score++
		}
	}
	score += countNonEmpty(w.Achievements)
	score += countNonEmpty(w.Improvements)
	score += countNonEmpty(w.Insights)
	score += countNonEmpty(w.Rules)
	if w.ExerciseCompleted {
		score++
	}
	return score
}

// compareDay orders two day entries field by field. Only used to break score
// ties deterministically; any total order would do.
func compareDay(a, b DayProgress) int {
	if c := compareBool(a.Completed, b.Completed); c != 0 {
		return c
	}
	if c := compareStrings(a.Gratitude, b.Gratitude); c != 0 {
		return c
	}
	if c := compareStrings(a.Achievements, b.Achievements); c != 0 {
		return c
	}
	for i := range a.Goals {
		if c := strings.Compare(a.Goals[i].Text, b.Goals[i].Text); c != 0 {
			return c
		}
		if c := compareBool(a.Goals[i].Completed, b.Goals[i].Completed); c != 0 {
			return c
		}
	}
	if c := compareBool(a.ExerciseCompleted, b.ExerciseCompleted); c != 0 {
		return c
	}
	if c := compareBool(a.WithAudio, b.WithAudio); c != 0 {
		return c
	}
	return strings.Compare(a.Reflection, b.Reflection)
}

func compareWeek(a, b WeekReflection) int {
	if c := strings.Compare(a.GratitudeSelf, b.GratitudeSelf); c != 0 {
		return c
	}
	if c := strings.Compare(a.GratitudeOthers, b.GratitudeOthers); c != 0 {
		return c
	}
	if c := strings.Compare(a.GratitudeWorld, b.GratitudeWorld); c != 0 {
		return c
	}
	if c := compareStrings(a.Achievements, b.Achievements); c != 0 {
		return c
	}
	if c := compareStrings(a.Improvements, b.Improvements); c != 0 {
		return c
	}
	if c := compareStrings(a.Insights, b.Insights); c != 0 {
		return c
	}
	if c := compareStrings(a.Rules, b.Rules); c != 0 {
		return c
	}
	if c := compareBool(a.ExerciseCompleted, b.ExerciseCompleted); c != 0 {
		return c
	}
	return compareBool(a.WithAudio, b.WithAudio)
}

func mergeOwnerID(a, b string) string {
	// The orchestrator never merges records of different owners; preferring
	// the non-empty (then greater) string keeps the operation symmetric.
	if a == b {
		return a
	}
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a > b {
		return a
	}
	return b
}

func countNonEmpty(ss [3]string) int {
	n := 0
	for _, s := range ss {
		if s != "" {
			n++
		}
	}
	return n
}

func compareStrings(a, b [3]string) int {
	for i := range a {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func laterTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

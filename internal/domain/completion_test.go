package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDayCompletionPercentTypicalDay(t *testing.T) {
	p := DefaultProgress("u1", time.Now())
	p.Days[7] = DayProgress{
		Gratitude: [3]string{"health", "family", ""},
		Goals: [3]Goal{
			{Text: "plan week", Completed: true},
			{Text: "inbox zero"},
			{Text: "evening walk"},
		},
		ExerciseCompleted: true,
	}

	// 2 gratitudes + 3 goal texts + 1 completed goal + exercise.
	assert.Equal(t, 50, DayCompletionPercent(p, 7))
}

func TestDayCompletionPercentFullDayIsCapped(t *testing.T) {
	p := DefaultProgress("u1", time.Now())
	p.Days[1] = DayProgress{
		Gratitude:    [3]string{"a", "b", "c"},
		Achievements: [3]string{"d", "e", "f"},
		Goals: [3]Goal{
			{Text: "g", Completed: true},
			{Text: "h", Completed: true},
			{Text: "i", Completed: true},
		},
		ExerciseCompleted: true,
	}
	assert.Equal(t, 100, DayCompletionPercent(p, 1))
}

func TestDayCompletionPercentAbsentOrInvalid(t *testing.T) {
	p := DefaultProgress("u1", time.Now())
	assert.Equal(t, 0, DayCompletionPercent(p, 5), "absent day")
	assert.Equal(t, 0, DayCompletionPercent(p, 0))
	assert.Equal(t, 0, DayCompletionPercent(p, TotalDays+1))
	assert.Equal(t, 0, DayCompletionPercent(nil, 1))
}

func TestWeekCompletionPercent(t *testing.T) {
	p := DefaultProgress("u1", time.Now())
	p.WeekReflections[2] = WeekReflection{
		GratitudeSelf:     "stuck with it",
		GratitudeOthers:   "my partner",
		Achievements:      [3]string{"shipped project", "", ""},
		Rules:             [3]string{"lights out by 23:00", "", ""},
		ExerciseCompleted: true,
	}

	// 2 gratitudes (10) + 1 achievement (5) + 1 rule (10) + exercise (10).
	assert.Equal(t, 35, WeekCompletionPercent(p, 2))
	assert.Equal(t, 0, WeekCompletionPercent(p, 1))
	assert.Equal(t, 0, WeekCompletionPercent(p, TotalWeeks+1))
}

func TestWeekCompletionPercentFullIs100(t *testing.T) {
	p := DefaultProgress("u1", time.Now())
	p.WeekReflections[1] = WeekReflection{
		GratitudeSelf:     "a",
		GratitudeOthers:   "b",
		GratitudeWorld:    "c",
		Achievements:      [3]string{"d", "e", "f"},
		Improvements:      [3]string{"g", "h", "i"},
		Insights:          [3]string{"j", "k", "l"},
		Rules:             [3]string{"m", "n", "o"},
		ExerciseCompleted: true,
	}
	assert.Equal(t, 100, WeekCompletionPercent(p, 1))
}

func TestReflectionAndCheckpointDays(t *testing.T) {
	for _, day := range []int{7, 14, 21, 28} {
		assert.True(t, IsReflectionDay(day), "day %d", day)
		assert.True(t, IsCheckpointDay(day), "day %d", day)
	}
	for _, day := range []int{1, 6, 8, 30} {
		assert.False(t, IsReflectionDay(day), "day %d", day)
		assert.False(t, IsCheckpointDay(day), "day %d", day)
	}

	// The two policies intentionally disagree on the final day.
	assert.False(t, IsReflectionDay(TotalDays))
	assert.True(t, IsCheckpointDay(TotalDays))
}

func TestWeekForDay(t *testing.T) {
	assert.Equal(t, 1, WeekForDay(1))
	assert.Equal(t, 1, WeekForDay(7))
	assert.Equal(t, 2, WeekForDay(8))
	assert.Equal(t, 4, WeekForDay(28))
	assert.Equal(t, 5, WeekForDay(29))
	assert.Equal(t, 5, WeekForDay(31))
}

func TestDayAccessibility(t *testing.T) {
	p := DefaultProgress("u1", time.Now())
	p.CurrentDay = 10

	assert.True(t, IsDayAccessible(p, 1))
	assert.True(t, IsDayAccessible(p, 10))
	assert.False(t, IsDayAccessible(p, 11))
	assert.False(t, IsDayAccessible(p, 0))
	assert.False(t, IsDayAccessible(nil, 1))
}

func TestWeekAccessibility(t *testing.T) {
	p := DefaultProgress("u1", time.Now())

	p.CurrentDay = 6
	assert.False(t, IsWeekAccessible(p, 1))

	p.CurrentDay = 7
	assert.True(t, IsWeekAccessible(p, 1))
	assert.False(t, IsWeekAccessible(p, 2))

	p.CurrentDay = TotalDays
	for week := 1; week <= TotalWeeks; week++ {
		assert.True(t, IsWeekAccessible(p, week), "week %d", week)
	}
}

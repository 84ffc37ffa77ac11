package domain

// Completion weights. Completing a task is deliberately worth three times
// filling one in; the view layer depends on these exact numbers, so they are
// not tunable.
const (
	weightGratitude     = 5
	weightAchievement   = 5
	weightGoalText      = 5
	weightGoalCompleted = 15
	weightExercise      = 10

	weekWeightGratitude   = 5
	weekWeightAchievement = 5
	weekWeightImprovement = 5
	weekWeightInsight     = 5
	weekWeightRule        = 10
	weekWeightExercise    = 10
)

// IsReflectionDay reports whether a day is a weekly reflection checkpoint.
// Completion and accessibility logic uses this form, where the final day 31
// is an ordinary day.
func IsReflectionDay(day int) bool {
	return day > 0 && day%7 == 0
}

// IsCheckpointDay is the content-facing variant that also treats the final
// program day as a checkpoint. The shipped app disagrees with itself on
// whether day 31 is a reflection day; the two policies are kept side by side
// here until product settles it, so do not fold them into one.
func IsCheckpointDay(day int) bool {
	return IsReflectionDay(day) || day == TotalDays
}

// WeekForDay returns which program week a day belongs to (1-based).
func WeekForDay(day int) int {
	if day < 1 {
		return 1
	}
	week := (day + 6) / 7
	if week > TotalWeeks {
		week = TotalWeeks
	}
	return week
}

// DayCompletionPercent computes how far along a day's entry is, 0..100.
// An absent or out-of-range day is simply 0.
func DayCompletionPercent(p *UserProgress, day int) int {
	if p == nil || day < 1 || day > TotalDays {
		return 0
	}
	d, ok := p.Days[day]
	if !ok {
		return 0
	}

	percent := countNonEmpty(d.Gratitude)*weightGratitude +
		countNonEmpty(d.Achievements)*weightAchievement
	for _, g := range d.Goals {
		if g.Text != "" {
			percent += weightGoalText
		}
		if g.Completed {
			percent += weightGoalCompleted
		}
	}
	if d.ExerciseCompleted {
		percent += weightExercise
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}

// WeekCompletionPercent computes how far along a weekly reflection is, 0..100.
func WeekCompletionPercent(p *UserProgress, week int) int {
	if p == nil || week < 1 || week > TotalWeeks {
		return 0
	}
	w, ok := p.WeekReflections[week]
	if !ok {
		return 0
	}

	percent := 0
	for _, s := range []string{w.GratitudeSelf, w.GratitudeOthers, w.GratitudeWorld} {
		if s != "" {
			percent += weekWeightGratitude
		}
	}
	percent += countNonEmpty(w.Achievements) * weekWeightAchievement
	percent += countNonEmpty(w.Improvements) * weekWeightImprovement
	percent += countNonEmpty(w.Insights) * weekWeightInsight
	percent += countNonEmpty(w.Rules) * weekWeightRule
	if w.ExerciseCompleted {
		percent += weekWeightExercise
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}

// IsDayAccessible reports whether the user may open a day: any day up to and
// including the active one.
func IsDayAccessible(p *UserProgress, day int) bool {
	if p == nil || day < 1 || day > TotalDays {
		return false
	}
	return day <= p.CurrentDay
}

// IsWeekAccessible reports whether a week's reflection may be opened. A
// reflection unlocks once the program reaches that week's checkpoint day.
func IsWeekAccessible(p *UserProgress, week int) bool {
	if p == nil || week < 1 || week > TotalWeeks {
		return false
	}
	return p.CurrentDay >= week*7 || p.CurrentDay >= TotalDays
}

package domain

// GoalPatch updates a single goal slot. Nil fields are left untouched.
type GoalPatch struct {
	Text      *string
	Completed *bool
}

// DayPatch is a partial update to one day's entry. Nil fields are left
// untouched, so concurrent callers only overwrite what they actually edited.
type DayPatch struct {
	Completed         *bool
	Gratitude         *[3]string
	Achievements      *[3]string
	Goals             [3]*GoalPatch
	ExerciseCompleted *bool
	WithAudio         *bool
	Reflection        *string
}

// Apply merges the patch into an existing day entry.
func (p DayPatch) Apply(d *DayProgress) {
	if p.Completed != nil {
		d.Completed = *p.Completed
	}
	if p.Gratitude != nil {
		d.Gratitude = *p.Gratitude
	}
	if p.Achievements != nil {
		d.Achievements = *p.Achievements
	}
	for i, g := range p.Goals {
		if g == nil {
			continue
		}
		if g.Text != nil {
			d.Goals[i].Text = *g.Text
		}
		if g.Completed != nil {
			d.Goals[i].Completed = *g.Completed
		}
	}
	if p.ExerciseCompleted != nil {
		d.ExerciseCompleted = *p.ExerciseCompleted
	}
	if p.WithAudio != nil {
		d.WithAudio = *p.WithAudio
	}
	if p.Reflection != nil {
		d.Reflection = *p.Reflection
	}
}

// WeekPatch is a partial update to one week's reflection entry.
type WeekPatch struct {
	GratitudeSelf     *string
	GratitudeOthers   *string
	GratitudeWorld    *string
	Achievements      *[3]string
	Improvements      *[3]string
	Insights          *[3]string
	Rules             *[3]string
	ExerciseCompleted *bool
	WithAudio         *bool
}

// Apply merges the patch into an existing week reflection.
func (p WeekPatch) Apply(w *WeekReflection) {
	if p.GratitudeSelf != nil {
		w.GratitudeSelf = *p.GratitudeSelf
	}
	if p.GratitudeOthers != nil {
		w.GratitudeOthers = *p.GratitudeOthers
	}
	if p.GratitudeWorld != nil {
		w.GratitudeWorld = *p.GratitudeWorld
	}
	if p.Achievements != nil {
		w.Achievements = *p.Achievements
	}
	if p.Improvements != nil {
		w.Improvements = *p.Improvements
	}
	if p.Insights != nil {
		w.Insights = *p.Insights
	}
	if p.Rules != nil {
		w.Rules = *p.Rules
	}
	if p.ExerciseCompleted != nil {
		w.ExerciseCompleted = *p.ExerciseCompleted
	}
	if p.WithAudio != nil {
		w.WithAudio = *p.WithAudio
	}
}

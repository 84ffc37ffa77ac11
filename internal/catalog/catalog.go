// Package catalog holds the fixed 31-day program content: a daily thought,
// an exercise prompt and an optional audio track per day. The content ships
// with the binary; only the audio objects live in remote storage.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"alcyxob/mindtrack-app/internal/domain"
	"alcyxob/mindtrack-app/internal/storage"
)

// ErrDayOutOfRange is returned for day numbers outside the program.
var ErrDayOutOfRange = errors.New("day number out of program range")

// DayContent is one day's static program material.
type DayContent struct {
	Day      int    `json:"day"`
	Title    string `json:"title"`
	Thought  string `json:"thought"`
	Exercise string `json:"exercise"`
	// AudioKey is the object key of the day's audio track, empty if the day
	// has no recording.
	AudioKey string `json:"audioKey,omitempty"`
	// AudioURL is a short-lived presigned link, filled in on request.
	AudioURL string `json:"audioUrl,omitempty"`
	// Checkpoint marks days that close with a weekly reflection.
	Checkpoint bool `json:"checkpoint"`
}

// Catalog serves program content, optionally resolving audio links against
// an object store.
type Catalog struct {
	media storage.FileStorage
}

// New creates a catalog. media may be nil; days then come back without
// audio links.
func New(media storage.FileStorage) *Catalog {
	return &Catalog{media: media}
}

// Day returns the content for one program day.
func (c *Catalog) Day(ctx context.Context, day int) (DayContent, error) {
	if day < 1 || day > domain.TotalDays {
		return DayContent{}, ErrDayOutOfRange
	}

	content := days[day-1]
	content.Checkpoint = domain.IsCheckpointDay(day)
	if content.Checkpoint {
		content.Title = fmt.Sprintf("%s · Week %d Reflection", content.Title, domain.WeekForDay(day))
	}

	if c.media != nil && content.AudioKey != "" {
		url, err := c.media.GeneratePresignedDownloadURL(ctx, content.AudioKey, storage.DefaultPresignedURLExpiry)
		if err != nil {
			// Content still renders without audio; the link is a nicety.
			return content, nil
		}
		content.AudioURL = url
	}
	return content, nil
}

// Days returns the full program in order.
func (c *Catalog) Days(ctx context.Context) ([]DayContent, error) {
	out := make([]DayContent, 0, domain.TotalDays)
	for day := 1; day <= domain.TotalDays; day++ {
		content, err := c.Day(ctx, day)
		if err != nil {
			return nil, err
		}
		out = append(out, content)
	}
	return out, nil
}

func audioKey(day int) string {
	return fmt.Sprintf("audio/day-%02d.mp3", day)
}

// days is indexed by day-1.
var days = []DayContent{
	{Day: 1, Title: "Starting Point", Thought: "Every change begins with an honest look at where you stand today.", Exercise: "Write down three things you want to be different a month from now.", AudioKey: audioKey(1)},
	{Day: 2, Title: "Small Steps", Thought: "Consistency beats intensity. A small step taken daily outruns a sprint taken once.", Exercise: "Pick the smallest possible version of one goal and do it before noon.", AudioKey: audioKey(2)},
	{Day: 3, Title: "Noticing", Thought: "What you pay attention to grows. Attention is the rarest form of generosity.", Exercise: "Spend ten minutes observing your surroundings without your phone.", AudioKey: audioKey(3)},
	{Day: 4, Title: "Gratitude in Detail", Thought: "Gratitude works when it is specific. 'My morning coffee' beats 'my life'.", Exercise: "Write your three gratitudes today with one concrete detail each.", AudioKey: audioKey(4)},
	{Day: 5, Title: "Energy Audit", Thought: "Notice which activities fill you up and which quietly drain you.", Exercise: "List yesterday's activities and mark each one plus or minus.", AudioKey: audioKey(5)},
	{Day: 6, Title: "Saying No", Thought: "Every yes is a no to something else. Choose your noes deliberately.", Exercise: "Decline one request today that does not serve your goals.", AudioKey: audioKey(6)},
	{Day: 7, Title: "First Checkpoint", Thought: "A week of small steps is already a path. Look back before you look forward.", Exercise: "Complete your first weekly reflection.", AudioKey: audioKey(7)},
	{Day: 8, Title: "Morning Shape", Thought: "The first hour of the day sets the tone for the rest of it.", Exercise: "Design tomorrow's first hour tonight, in writing.", AudioKey: audioKey(8)},
	{Day: 9, Title: "One Thing", Thought: "Done is a decision. Pick the one thing that would make today a success.", Exercise: "Name your one thing in your first goal slot and finish it.", AudioKey: audioKey(9)},
	{Day: 10, Title: "Body First", Thought: "Thought follows physiology more often than we admit.", Exercise: "Do your exercise block before any screen time.", AudioKey: audioKey(10)},
	{Day: 11, Title: "Listening", Thought: "Most people listen to answer. Try listening to understand.", Exercise: "In one conversation today, ask two follow-up questions before giving your view.", AudioKey: audioKey(11)},
	{Day: 12, Title: "Unfinished Business", Thought: "Open loops tax the mind even when you are not looking at them.", Exercise: "Close one small loop you have been postponing for over a week.", AudioKey: audioKey(12)},
	{Day: 13, Title: "Comparison", Thought: "Compare yourself with who you were on day one, not with anyone else.", Exercise: "Reread your day-one entries and note one change you can already see.", AudioKey: audioKey(13)},
	{Day: 14, Title: "Second Checkpoint", Thought: "Two weeks in, patterns start to show. Name them.", Exercise: "Complete your weekly reflection and write one rule for the coming week.", AudioKey: audioKey(14)},
	{Day: 15, Title: "Halfway", Thought: "Halfway is where most plans die. Yours does not have to.", Exercise: "Rewrite your three month goals in the present tense.", AudioKey: audioKey(15)},
	{Day: 16, Title: "Environment", Thought: "Willpower loses to environment. Arrange the room to make the right thing easy.", Exercise: "Change one thing in your space that removes a daily friction.", AudioKey: audioKey(16)},
	{Day: 17, Title: "Asking for Help", Thought: "Independence is a skill. So is knowing when not to use it.", Exercise: "Ask one person for help with something you have been struggling with alone.", AudioKey: audioKey(17)},
	{Day: 18, Title: "Deep Work", Thought: "An hour of focus is worth a day of fragments.", Exercise: "Block one uninterrupted hour for your most important goal.", AudioKey: audioKey(18)},
	{Day: 19, Title: "Self-Talk", Thought: "You would never speak to a friend the way you sometimes speak to yourself.", Exercise: "Catch one harsh inner comment today and rephrase it as you would for a friend.", AudioKey: audioKey(19)},
	{Day: 20, Title: "Rest as Work", Thought: "Recovery is part of the program, not a break from it.", Exercise: "Schedule and protect thirty minutes of genuine rest today.", AudioKey: audioKey(20)},
	{Day: 21, Title: "Third Checkpoint", Thought: "Three weeks builds a habit. Which of yours is taking root?", Exercise: "Complete your weekly reflection, noting which daily practice now feels automatic.", AudioKey: audioKey(21)},
	{Day: 22, Title: "Giving", Thought: "Progress compounds when it is shared.", Exercise: "Do one unprompted thing today that helps someone else move forward.", AudioKey: audioKey(22)},
	{Day: 23, Title: "Fear Inventory", Thought: "Most fears shrink when written down and read aloud.", Exercise: "Write down one fear holding you back and the first step past it.", AudioKey: audioKey(23)},
	{Day: 24, Title: "Time Honesty", Thought: "We overestimate a day and underestimate a month. You have proof by now.", Exercise: "Track your time in half-hour blocks for the whole day.", AudioKey: audioKey(24)},
	{Day: 25, Title: "Keystone Habit", Thought: "One habit, done reliably, pulls others along behind it.", Exercise: "Identify your keystone habit from this month and write why it works for you.", AudioKey: audioKey(25)},
	{Day: 26, Title: "Difficult Conversation", Thought: "The conversation you are avoiding is usually the one that matters.", Exercise: "Take one step toward a conversation you have been putting off.", AudioKey: audioKey(26)},
	{Day: 27, Title: "Simplify", Thought: "Perfection is reached not when there is nothing to add, but nothing left to take away.", Exercise: "Remove one commitment, subscription or possession that no longer earns its keep.", AudioKey: audioKey(27)},
	{Day: 28, Title: "Fourth Checkpoint", Thought: "One week remains. Finish the way you want to continue.", Exercise: "Complete your weekly reflection and set an intention for the final stretch.", AudioKey: audioKey(28)},
	{Day: 29, Title: "Teaching", Thought: "You understand a thing when you can explain it simply.", Exercise: "Explain one lesson from this month to someone else, in your own words.", AudioKey: audioKey(29)},
	{Day: 30, Title: "Letter Forward", Thought: "The person you are becoming deserves a word from the person you are now.", Exercise: "Write a short letter to yourself to be read three months from today.", AudioKey: audioKey(30)},
	{Day: 31, Title: "The Road Ahead", Thought: "This was never a 31-day program. It was the first 31 days.", Exercise: "Choose the three practices you will carry forward and write where they live in your week.", AudioKey: audioKey(31)},
}

package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"alcyxob/mindtrack-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMedia struct {
	fail bool
}

func (f *fakeMedia) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if f.fail {
		return "", fmt.Errorf("bucket unavailable")
	}
	return "https://media.example.com/" + objectKey + "?signed", nil
}

func (f *fakeMedia) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	return !f.fail, nil
}

func TestCatalogCoversWholeProgram(t *testing.T) {
	c := New(nil)

	days, err := c.Days(context.Background())
	require.NoError(t, err)
	require.Len(t, days, domain.TotalDays)

	for i, content := range days {
		assert.Equal(t, i+1, content.Day)
		assert.NotEmpty(t, content.Title, "day %d", i+1)
		assert.NotEmpty(t, content.Thought, "day %d", i+1)
		assert.NotEmpty(t, content.Exercise, "day %d", i+1)
	}
}

func TestCatalogCheckpointDays(t *testing.T) {
	c := New(nil)

	for day := 1; day <= domain.TotalDays; day++ {
		content, err := c.Day(context.Background(), day)
		require.NoError(t, err)
		assert.Equal(t, domain.IsCheckpointDay(day), content.Checkpoint, "day %d", day)
	}

	// Checkpoint titles carry the week number.
	day21, err := c.Day(context.Background(), 21)
	require.NoError(t, err)
	assert.Contains(t, day21.Title, "Week 3 Reflection")
}

func TestCatalogDayOutOfRange(t *testing.T) {
	c := New(nil)

	_, err := c.Day(context.Background(), 0)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
	_, err = c.Day(context.Background(), domain.TotalDays+1)
	assert.ErrorIs(t, err, ErrDayOutOfRange)
}

func TestCatalogResolvesAudioLinks(t *testing.T) {
	c := New(&fakeMedia{})

	content, err := c.Day(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "audio/day-05.mp3", content.AudioKey)
	assert.Equal(t, "https://media.example.com/audio/day-05.mp3?signed", content.AudioURL)
}

func TestCatalogWithoutMediaOmitsLinks(t *testing.T) {
	c := New(nil)

	content, err := c.Day(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, content.AudioURL)
}

func TestCatalogDegradesWhenMediaFails(t *testing.T) {
	c := New(&fakeMedia{fail: true})

	content, err := c.Day(context.Background(), 5)
	require.NoError(t, err, "text content still renders without audio")
	assert.Empty(t, content.AudioURL)
	assert.NotEmpty(t, content.Thought)
}

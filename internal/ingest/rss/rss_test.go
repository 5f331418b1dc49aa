package rss

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndaukov/ai-tg-digest/internal/core/domain"
)

func TestFeedItemMessage(t *testing.T) {
	published := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
	src := &domain.Source{ID: "s1", Type: domain.SourceTypeRSS}

	item := &gofeed.Item{
		Title:           "Вышел новый релиз",
		Description:     "Подробности релиза",
		Link:            "https://example.com/release",
		GUID:            "guid-1",
		PublishedParsed: &published,
	}

	msg := feedItemMessage(src, item)
	require.NotNil(t, msg)
	assert.Equal(t, "s1", msg.SourceID)
	assert.Equal(t, "Вышел новый релиз\n\nПодробности релиза", msg.Text)
	assert.Equal(t, published, msg.PostedAt)
	assert.Equal(t, []string{"https://example.com/release"}, msg.KnownURLs)
	assert.Equal(t, "https://example.com/release", msg.Permalink)
	// Feed items carry no engagement signals.
	assert.Zero(t, msg.Views)
	assert.Zero(t, msg.Forwards)
}

func TestFeedItemMessageEmpty(t *testing.T) {
	assert.Nil(t, feedItemMessage(&domain.Source{}, &gofeed.Item{}))
}

func TestItemIDStable(t *testing.T) {
	a := &gofeed.Item{GUID: "guid-1"}
	b := &gofeed.Item{GUID: "guid-1"}
	c := &gofeed.Item{GUID: "guid-2"}

	assert.Equal(t, itemID(a), itemID(b))
	assert.NotEqual(t, itemID(a), itemID(c))
	assert.Positive(t, itemID(a))

	// Falls back to the link when there is no guid.
	d := &gofeed.Item{Link: "https://example.com/x"}
	assert.Equal(t, itemID(d), itemID(&gofeed.Item{Link: "https://example.com/x"}))
}

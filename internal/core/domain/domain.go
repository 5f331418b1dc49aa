// Package domain contains the core entity types shared across the
// ingestion, canonicalization, and digest layers.
package domain

import "time"

// Source types.
const (
	SourceTypeChannel = "channel"
	SourceTypeGroup   = "group"
	SourceTypeRSS     = "rss"
)

// Dedup statuses for raw messages.
const (
	DedupStatusUnlinked = "unlinked"
	DedupStatusLinked   = "linked"
)

// Digest periods.
const (
	PeriodMorning = "morning"
	PeriodEvening = "evening"
)

// Digest statuses. Queued is the only non-terminal state.
const (
	DigestStatusQueued    = "queued"
	DigestStatusPublished = "published"
	DigestStatusRejected  = "rejected"
)

// CanonicalLabels is the fixed label set in canonical digest section order.
var CanonicalLabels = []string{"NLP", "RAG", "AGENTS", "GRAPHS", "CLASSIC_ML", "TIME_SERIES", "FRAMEWORKS"}

// FallbackLabel is used when a canonical item has no classifications.
const FallbackLabel = "FRAMEWORKS"

// Source is a tracked message origin: a Telegram channel/group or an RSS feed.
type Source struct {
	ID           string
	IDOrUsername string
	Type         string
	Weight       float64
	Enabled      bool
	TGPeerID     int64
	AccessHash   int64
	Title        string
	LastTGMsgID  int64
}

// RawMessage is one ingested post. It is written once on ingestion and
// mutated exactly once, by the canonicalization engine, to set its canonical
// reference and dedup status.
type RawMessage struct {
	ID              string
	SourceID        string
	SourceWeight    float64
	TGMessageID     int64
	Permalink       string
	PostedAt        time.Time
	Text            string
	Views           int64
	Forwards        int64
	ReactionsCount  int64
	CommentsCount   int64
	KnownURLs       []string
	DedupStatus     string
	CanonicalNewsID string
}

// Label is a topical classification with a confidence value.
type Label struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// CanonicalNews is a clustered news event aggregating one or more raw
// messages. RawCount, ImportanceScore, and LastSeenAt are non-decreasing.
type CanonicalNews struct {
	ID              string
	TitleRU         string
	BulletsRU       []string
	WhyImportantRU  string
	Labels          []Label
	EventType       string
	MainEventRU     string
	ImportanceScore float64
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	SourcesCount    int
	RawCount        int
	Metadata        map[string]any
}

// BestLabel returns the classification with the highest confidence,
// first-encountered order breaking ties. Falls back to FallbackLabel.
func (c *CanonicalNews) BestLabel() string {
	if len(c.Labels) == 0 {
		return FallbackLabel
	}

	best := c.Labels[0]
	for _, l := range c.Labels[1:] {
		if l.Confidence > best.Confidence {
			best = l
		}
	}

	return best.Label
}

// CanonicalLink associates a normalized URL with exactly one canonical item.
type CanonicalLink struct {
	CanonicalNewsID string
	NormalizedURL   string
	Domain          string
}

// Digest is a generated bundle queued for moderation.
type Digest struct {
	ID            string
	Period        string
	ScheduledFor  time.Time
	PreviewText   string
	Status        string
	AutoPublishAt time.Time
	PublishedMsg  int64
}

// ExternalURL is a link reference produced by the extraction call.
type ExternalURL struct {
	URL           string `json:"url"`
	NormalizedURL string `json:"normalized_url"`
	Domain        string `json:"domain"`
}

// ExtractedEvent is the structured output of the extraction call.
type ExtractedEvent struct {
	MainEventRU  string         `json:"main_event_ru"`
	EventType    string         `json:"event_type"`
	ExternalURLs []ExternalURL  `json:"external_urls"`
	Signals      map[string]any `json:"signals"`
}

// Classification is the structured output of the multilabel call.
type Classification struct {
	Labels []Label `json:"labels"`
}

// Summary is the structured output of the summarization call.
type Summary struct {
	TitleRU        string   `json:"title_ru"`
	BulletsRU      []string `json:"bullets_ru"`
	WhyImportantRU string   `json:"why_important_ru"`
}

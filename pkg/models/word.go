package models

import (
	"time"
)

const (
	DefaultEasiness = 2.5
	MinEasiness     = 1.3
	MaxEasiness     = 2.5
	DefaultInterval = 1
)

// Word is a single spelling entry. Key is the normalized form of Text and
// is unique across the collection.
type Word struct {
	ID         string        `json:"id"`
	Text       string        `json:"text"`
	Key        string        `json:"key"`
	SourceList string        `json:"sourceList,omitempty"`
	Tags       []string      `json:"tags,omitempty"`
	Metadata   *WordMetadata `json:"metadata,omitempty"`
	Stats      Stats         `json:"stats"`
	AddedAt    time.Time     `json:"addedAt"`
	UpdatedAt  *time.Time    `json:"updatedAt,omitempty"`
}

type WordMetadata struct {
	Definition string   `json:"definition,omitempty"`
	Example    string   `json:"example,omitempty"`
	IPA        string   `json:"ipa,omitempty"`
	Syllables  []string `json:"syllables,omitempty"`
	AudioURL   string   `json:"audioUrl,omitempty"`
}

// Stats holds practice counters and spaced-repetition state.
type Stats struct {
	Seen     int        `json:"seen"`
	Correct  int        `json:"correct"`
	Wrong    int        `json:"wrong"`
	Easiness float64    `json:"easiness"`
	Interval int        `json:"interval"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
	NextDue  *time.Time `json:"nextDue,omitempty"`
}

func NewStats() Stats {
	return Stats{
		Easiness: DefaultEasiness,
		Interval: DefaultInterval,
	}
}

// LastModified is the timestamp used for last-writer-wins merges.
func (w Word) LastModified() time.Time {
	if w.UpdatedAt != nil {
		return *w.UpdatedAt
	}
	return w.AddedAt
}

// IsDue reports whether the word should be reviewed at asOf. Words that were
// never scheduled are always due.
func (w Word) IsDue(asOf time.Time) bool {
	return w.Stats.NextDue == nil || !w.Stats.NextDue.After(asOf)
}

type Outcome int

const (
	OutcomeSeenOnly Outcome = iota
	OutcomeCorrect
	OutcomeIncorrect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeIncorrect:
		return "incorrect"
	default:
		return "seen"
	}
}

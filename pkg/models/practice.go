package models

import (
	"time"
)

type PracticeMode string

const (
	ModeRandom           PracticeMode = "random"
	ModeSequential       PracticeMode = "sequential"
	ModeSpacedRepetition PracticeMode = "spaced-repetition"
)

type PracticeSession struct {
	ID             string     `json:"id"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	WordsAttempted int        `json:"wordsAttempted"`
	WordsCorrect   int        `json:"wordsCorrect"`
	Streak         int        `json:"streak"`
	MaxStreak      int        `json:"maxStreak"`
}

func (s PracticeSession) Accuracy() float64 {
	if s.WordsAttempted == 0 {
		return 0
	}
	return float64(s.WordsCorrect) / float64(s.WordsAttempted) * 100
}

type Settings struct {
	ID       string           `json:"id"`
	Voice    VoiceSettings    `json:"voiceSettings"`
	Practice PracticeSettings `json:"practiceSettings"`
	Updated  time.Time        `json:"lastUpdated"`
}

type VoiceSettings struct {
	PreferredVoice string  `json:"preferredVoice,omitempty"`
	Rate           float64 `json:"rate"`
	Pitch          float64 `json:"pitch"`
	Volume         float64 `json:"volume"`
}

type PracticeSettings struct {
	CaseSensitive   bool         `json:"caseSensitive"`
	ShowDefinitions bool         `json:"showDefinitions"`
	SlowPlayback    bool         `json:"slowPlayback"`
	Mode            PracticeMode `json:"mode,omitempty"`
}

// ExportEnvelope is the portable JSON file format for word collections.
type ExportEnvelope struct {
	Words    []Word         `json:"words"`
	Metadata ExportMetadata `json:"metadata"`
}

type ExportMetadata struct {
	ExportedAt time.Time `json:"exportedAt"`
	Version    string    `json:"version"`
	Source     string    `json:"source"`
}

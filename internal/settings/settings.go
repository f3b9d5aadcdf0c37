// Package settings loads and saves the user's voice and practice preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kpauljoseph/spellbee/internal/store"
	"github.com/kpauljoseph/spellbee/pkg/logger"
	"github.com/kpauljoseph/spellbee/pkg/models"
)

var ErrInvalid = errors.New("invalid settings")

const DefaultID = "default"

type Repository interface {
	Get(ctx context.Context, id string) (models.Settings, error)
	Put(ctx context.Context, s models.Settings) error
}

func Defaults() models.Settings {
	return models.Settings{
		ID: DefaultID,
		Voice: models.VoiceSettings{
			Rate:   0.9,
			Pitch:  1.0,
			Volume: 1.0,
		},
		Practice: models.PracticeSettings{
			CaseSensitive:   false,
			ShowDefinitions: true,
			SlowPlayback:    false,
			Mode:            models.ModeRandom,
		},
	}
}

type Service struct {
	repo   Repository
	logger *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: logger.OrDiscard(log), now: time.Now}
}

// Load returns the stored settings, or the defaults when none were saved.
func (s *Service) Load(ctx context.Context) (models.Settings, error) {
	stored, err := s.repo.Get(ctx, DefaultID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("No saved settings, using defaults")
		return Defaults(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	if stored.Practice.Mode == "" {
		stored.Practice.Mode = models.ModeRandom
	}
	return stored, nil
}

func (s *Service) Save(ctx context.Context, settings models.Settings) (models.Settings, error) {
	if err := Validate(settings); err != nil {
		return models.Settings{}, err
	}
	settings.ID = DefaultID
	settings.Updated = s.now()
	if err := s.repo.Put(ctx, settings); err != nil {
		return models.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

// Validate checks voice values against the ranges speech engines accept.
func Validate(s models.Settings) error {
	v := s.Voice
	if v.Rate < 0.1 || v.Rate > 10 {
		return fmt.Errorf("%w: rate %.2f outside 0.1..10", ErrInvalid, v.Rate)
	}
	if v.Pitch < 0 || v.Pitch > 2 {
		return fmt.Errorf("%w: pitch %.2f outside 0..2", ErrInvalid, v.Pitch)
	}
	if v.Volume < 0 || v.Volume > 1 {
		return fmt.Errorf("%w: volume %.2f outside 0..1", ErrInvalid, v.Volume)
	}
	switch s.Practice.Mode {
	case "", models.ModeRandom, models.ModeSequential, models.ModeSpacedRepetition:
	default:
		return fmt.Errorf("%w: unknown practice mode %q", ErrInvalid, s.Practice.Mode)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/kpauljoseph/spellbee/pkg/models"
)

type SessionRepo struct {
	db *DB
}

// Save inserts or overwrites a practice session.
func (r *SessionRepo) Save(ctx context.Context, s models.PracticeSession) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := psql.Insert("sessions").
			Columns("id", "start_time", "end_time", "words_attempted", "words_correct", "streak", "max_streak").
			Values(s.ID, formatTime(s.StartTime), formatTimePtr(s.EndTime), s.WordsAttempted, s.WordsCorrect, s.Streak, s.MaxStreak).
			Suffix(`ON CONFLICT(id) DO UPDATE SET
				end_time = excluded.end_time,
				words_attempted = excluded.words_attempted,
				words_correct = excluded.words_correct,
				streak = excluded.streak,
				max_streak = excluded.max_streak`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save session %s: %w", s.ID, err)
		}
		return nil
	})
}

// Recent returns up to limit sessions, newest first.
func (r *SessionRepo) Recent(ctx context.Context, limit int) ([]models.PracticeSession, error) {
	b := psql.Select("id", "start_time", "end_time", "words_attempted", "words_correct", "streak", "max_streak").
		From("sessions").
		OrderBy("start_time DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.PracticeSession{}
	for rows.Next() {
		var (
			s     models.PracticeSession
			start string
			end   sql.NullString
		)
		if err := rows.Scan(&s.ID, &start, &end, &s.WordsAttempted, &s.WordsCorrect, &s.Streak, &s.MaxStreak); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if s.EndTime, err = parseTimePtr(end); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// SettingsRepo stores settings documents as JSON keyed by id.
type SettingsRepo struct {
	db *DB
}

func (r *SettingsRepo) Get(ctx context.Context, id string) (models.Settings, error) {
	query, args, err := psql.Select("data").From("settings").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.Settings{}, fmt.Errorf("build query: %w", err)
	}
	var data string
	err = r.db.conn.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, ErrNotFound
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings %s: %w", id, err)
	}

	var s models.Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings %s: %w", id, err)
	}
	return s, nil
}

func (r *SettingsRepo) Put(ctx context.Context, s models.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	updated := s.Updated
	if updated.IsZero() {
		updated = time.Now()
	}
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		query, args, err := psql.Insert("settings").
			Columns("id", "data", "updated_at").
			Values(s.ID, string(data), formatTime(updated)).
			Suffix("ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("save settings %s: %w", s.ID, err)
		}
		return nil
	})
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/kpauljoseph/spellbee/pkg/models"
	"github.com/kpauljoseph/spellbee/pkg/normalize"
)

var wordColumns = []string{
	"id", "text", "key", "source_list", "tags", "metadata",
	"seen", "correct", "wrong", "easiness", "interval_days", "last_seen", "next_due",
	"added_at", "updated_at",
}

// WordRepo is the single authority on whether a word already exists: keys
// are checked and written inside one locked transaction.
type WordRepo struct {
	db *DB
}

type AddResult struct {
	Added          []models.Word
	AddedCount     int
	DuplicateCount int
}

// WordPatch holds the user-editable fields of a word. Nil fields are left
// unchanged; an empty SourceList clears it.
type WordPatch struct {
	Text       *string
	SourceList *string
	Tags       *[]string
	Metadata   *models.WordMetadata
}

type Summary struct {
	Total   int
	Seen    int
	Correct int
	Wrong   int
	Due     int
	Sources int
}

func (s Summary) Accuracy() float64 {
	graded := s.Correct + s.Wrong
	if graded == 0 {
		return 0
	}
	return float64(s.Correct) / float64(graded)
}

// AddWords creates a record for every raw text whose key is new. Existing
// keys are counted as duplicates; when sourceList is given and differs, the
// existing record is relabelled.
func (r *WordRepo) AddWords(ctx context.Context, rawTexts []string, sourceList string, now time.Time) (AddResult, error) {
	var result AddResult
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, raw := range rawTexts {
			key := normalize.Normalize(raw)
			if key == "" {
				continue
			}

			existing, err := r.getBy(ctx, tx, sq.Eq{"key": key})
			switch {
			case errors.Is(err, ErrNotFound):
				w := models.Word{
					ID:         uuid.NewString(),
					Text:       strings.TrimSpace(raw),
					Key:        key,
					SourceList: sourceList,
					Tags:       []string{},
					Stats:      models.NewStats(),
					AddedAt:    now,
				}
				if err := r.insert(ctx, tx, w); err != nil {
					return err
				}
				result.Added = append(result.Added, w)
				result.AddedCount++
			case err != nil:
				return err
			default:
				result.DuplicateCount++
				if sourceList != "" && existing.SourceList != sourceList {
					if err := r.setSource(ctx, tx, existing.ID, sourceList, now); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return AddResult{}, err
	}
	r.db.logger.Debug("Added %d words, %d duplicates", result.AddedCount, result.DuplicateCount)
	return result, nil
}

func (r *WordRepo) GetAll(ctx context.Context) ([]models.Word, error) {
	return r.list(ctx, r.db.conn, nil)
}

func (r *WordRepo) GetByID(ctx context.Context, id string) (models.Word, error) {
	return r.getBy(ctx, r.db.conn, sq.Eq{"id": id})
}

func (r *WordRepo) GetByKey(ctx context.Context, key string) (models.Word, error) {
	return r.getBy(ctx, r.db.conn, sq.Eq{"key": normalize.Normalize(key)})
}

func (r *WordRepo) GetBySource(ctx context.Context, sourceList string) ([]models.Word, error) {
	return r.list(ctx, r.db.conn, sq.Eq{"source_list": sourceList})
}

// GetDue returns words never scheduled or due at or before asOf, unscheduled
// words first and then by due time.
func (r *WordRepo) GetDue(ctx context.Context, asOf time.Time) ([]models.Word, error) {
	query, args, err := psql.Select(wordColumns...).From("words").
		Where(sq.Or{sq.Eq{"next_due": nil}, sq.LtOrEq{"next_due": formatTime(asOf)}}).
		OrderBy("next_due IS NOT NULL", "next_due", "text").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.query(ctx, r.db.conn, query, args...)
}

// Search matches query case-insensitively against text, source list and tags.
// An empty query returns everything.
func (r *WordRepo) Search(ctx context.Context, query string) ([]models.Word, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return r.GetAll(ctx)
	}
	pattern := "%" + escapeLike(q) + "%"
	return r.list(ctx, r.db.conn, sq.Or{
		sq.Expr(`lower(text) LIKE ? ESCAPE '\'`, pattern),
		sq.Expr(`lower(coalesce(source_list, '')) LIKE ? ESCAPE '\'`, pattern),
		sq.Expr(`EXISTS (SELECT 1 FROM json_each(words.tags) WHERE lower(json_each.value) LIKE ? ESCAPE '\')`, pattern),
	})
}

// Update applies patch to the word. A text change regenerates the key and
// fails with ErrDuplicateKey when another word already has it.
func (r *WordRepo) Update(ctx context.Context, id string, patch WordPatch, now time.Time) (models.Word, error) {
	var updated models.Word
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		w, err := r.getBy(ctx, tx, sq.Eq{"id": id})
		if err != nil {
			return err
		}

		if patch.Text != nil {
			key := normalize.Normalize(*patch.Text)
			if key == "" {
				return ErrEmptyWord
			}
			if key != w.Key {
				other, err := r.getBy(ctx, tx, sq.Eq{"key": key})
				if err == nil && other.ID != w.ID {
					return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
				}
				if err != nil && !errors.Is(err, ErrNotFound) {
					return err
				}
			}
			w.Text = strings.TrimSpace(*patch.Text)
			w.Key = key
		}
		if patch.SourceList != nil {
			w.SourceList = strings.TrimSpace(*patch.SourceList)
		}
		if patch.Tags != nil {
			w.Tags = cleanTags(*patch.Tags)
		}
		if patch.Metadata != nil {
			md := *patch.Metadata
			w.Metadata = &md
		}
		w.UpdatedAt = &now

		if err := r.replace(ctx, tx, w); err != nil {
			return err
		}
		updated = w
		return nil
	})
	return updated, err
}

// UpdateStats atomically rewrites the stats of one word and marks it
// changed at now.
func (r *WordRepo) UpdateStats(ctx context.Context, id string, now time.Time, fn func(models.Stats) models.Stats) (models.Word, error) {
	var updated models.Word
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		w, err := r.getBy(ctx, tx, sq.Eq{"id": id})
		if err != nil {
			return err
		}
		w.Stats = fn(w.Stats)
		w.UpdatedAt = &now

		query, args, err := psql.Update("words").
			SetMap(statsColumns(w.Stats)).
			Set("updated_at", formatTime(now)).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update stats of %s: %w", id, err)
		}
		updated = w
		return nil
	})
	return updated, err
}

func (r *WordRepo) Delete(ctx context.Context, id string) error {
	n, err := r.deleteWhere(ctx, sq.Eq{"id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WordRepo) DeleteBySource(ctx context.Context, sourceList string) (int, error) {
	return r.deleteWhere(ctx, sq.Eq{"source_list": sourceList})
}

// Clear removes every word and returns how many there were.
func (r *WordRepo) Clear(ctx context.Context) (int, error) {
	return r.deleteWhere(ctx, nil)
}

func (r *WordRepo) Count(ctx context.Context) (int, error) {
	var n int
	query, args, err := psql.Select("COUNT(*)").From("words").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	if err := r.db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count words: %w", err)
	}
	return n, nil
}

// ListSources returns the distinct non-empty source lists, sorted.
func (r *WordRepo) ListSources(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("DISTINCT source_list").From("words").
		Where(sq.And{sq.NotEq{"source_list": nil}, sq.NotEq{"source_list": ""}}).
		OrderBy("source_list").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := r.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

func (r *WordRepo) Summary(ctx context.Context, asOf time.Time) (Summary, error) {
	var s Summary
	query, args, err := psql.Select(
		"COUNT(*)",
		"COALESCE(SUM(seen), 0)",
		"COALESCE(SUM(correct), 0)",
		"COALESCE(SUM(wrong), 0)",
	).
		Column(sq.Expr("COALESCE(SUM(CASE WHEN next_due IS NULL OR next_due <= ? THEN 1 ELSE 0 END), 0)", formatTime(asOf))).
		Column("COUNT(DISTINCT NULLIF(source_list, ''))").
		From("words").
		ToSql()
	if err != nil {
		return s, fmt.Errorf("build query: %w", err)
	}
	err = r.db.conn.QueryRowContext(ctx, query, args...).
		Scan(&s.Total, &s.Seen, &s.Correct, &s.Wrong, &s.Due, &s.Sources)
	if err != nil {
		return s, fmt.Errorf("summarize words: %w", err)
	}
	return s, nil
}

var sampleWords = []struct {
	text, definition, example string
}{
	{"beautiful", "pleasing the senses or mind aesthetically", "She has a beautiful smile."},
	{"definitely", "without doubt; certainly", "I will definitely be there."},
	{"necessary", "required to be done, achieved, or present; needed; essential", "Sleep is necessary for good health."},
	{"separate", "forming or viewed as a unit apart or by itself", "Keep your work and personal life separate."},
	{"beginning", "the point in time or space at which something starts", "The beginning of the story was exciting."},
}

// SeedSampleWords fills an empty collection with a few sample words and
// reports how many were added.
func (r *WordRepo) SeedSampleWords(ctx context.Context, now time.Time) (int, error) {
	added := 0
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM words").Scan(&n); err != nil {
			return fmt.Errorf("count words: %w", err)
		}
		if n > 0 {
			return nil
		}
		for _, s := range sampleWords {
			w := models.Word{
				ID:         uuid.NewString(),
				Text:       s.text,
				Key:        s.text,
				SourceList: "sample",
				Tags:       []string{},
				Metadata:   &models.WordMetadata{Definition: s.definition, Example: s.example},
				Stats:      models.NewStats(),
				AddedAt:    now,
			}
			if err := r.insert(ctx, tx, w); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	return added, err
}

type MergeAction int

const (
	MergeSkip MergeAction = iota
	MergeInsert
	MergeReplace
)

// MergeFunc decides what to do with an incoming word and returns the word to
// write. existing is nil when no stored word has the incoming key.
type MergeFunc func(existing *models.Word, incoming models.Word) (MergeAction, models.Word)

type MergeResult struct {
	Inserted int
	Replaced int
	Skipped  int
}

// Merge applies incoming words in one transaction. Inserted words keep their
// id unless it is empty or taken; replaced words keep the stored id.
func (r *WordRepo) Merge(ctx context.Context, incoming []models.Word, decide MergeFunc) (MergeResult, error) {
	var result MergeResult
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, in := range incoming {
			in.Text = strings.TrimSpace(in.Text)
			in.Key = normalize.Normalize(in.Text)
			if in.Key == "" {
				result.Skipped++
				continue
			}
			if in.Tags == nil {
				in.Tags = []string{}
			}

			var existing *models.Word
			w, err := r.getBy(ctx, tx, sq.Eq{"key": in.Key})
			switch {
			case err == nil:
				existing = &w
			case !errors.Is(err, ErrNotFound):
				return err
			}

			var action MergeAction
			action, in = decide(existing, in)
			in.Text = strings.TrimSpace(in.Text)
			in.Key = normalize.Normalize(in.Text)
			switch action {
			case MergeInsert:
				if existing != nil {
					result.Skipped++
					continue
				}
				if in.ID == "" {
					in.ID = uuid.NewString()
				} else if _, err := r.getBy(ctx, tx, sq.Eq{"id": in.ID}); err == nil {
					in.ID = uuid.NewString()
				}
				if err := r.insert(ctx, tx, in); err != nil {
					return err
				}
				result.Inserted++
			case MergeReplace:
				if existing == nil {
					result.Skipped++
					continue
				}
				in.ID = existing.ID
				if err := r.replace(ctx, tx, in); err != nil {
					return err
				}
				result.Replaced++
			default:
				result.Skipped++
			}
		}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}
	return result, nil
}

func (r *WordRepo) setSource(ctx context.Context, ex Executor, id, sourceList string, now time.Time) error {
	query, args, err := psql.Update("words").
		Set("source_list", sourceList).
		Set("updated_at", formatTime(now)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update source of %s: %w", id, err)
	}
	return nil
}

func (r *WordRepo) deleteWhere(ctx context.Context, pred interface{}) (int, error) {
	var n int64
	err := r.db.withTx(ctx, func(tx *sql.Tx) error {
		b := psql.Delete("words")
		if pred != nil {
			b = b.Where(pred)
		}
		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete words: %w", err)
		}
		n, err = res.RowsAffected()
		return err
	})
	return int(n), err
}

func (r *WordRepo) insert(ctx context.Context, ex Executor, w models.Word) error {
	values, err := wordValues(w)
	if err != nil {
		return err
	}
	query, args, err := psql.Insert("words").Columns(wordColumns...).Values(values...).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, w.Key)
		}
		return fmt.Errorf("insert word %q: %w", w.Key, err)
	}
	return nil
}

func (r *WordRepo) replace(ctx context.Context, ex Executor, w models.Word) error {
	values, err := wordValues(w)
	if err != nil {
		return err
	}
	set := make(map[string]interface{}, len(wordColumns)-1)
	for i, col := range wordColumns {
		if col == "id" {
			continue
		}
		set[col] = values[i]
	}
	query, args, err := psql.Update("words").SetMap(set).Where(sq.Eq{"id": w.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if _, err := ex.ExecContext(ctx, query, args...); err != nil {
		if isUniqueConstraintErr(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, w.Key)
		}
		return fmt.Errorf("update word %s: %w", w.ID, err)
	}
	return nil
}

func (r *WordRepo) getBy(ctx context.Context, ex Executor, pred interface{}) (models.Word, error) {
	query, args, err := psql.Select(wordColumns...).From("words").Where(pred).Limit(1).ToSql()
	if err != nil {
		return models.Word{}, fmt.Errorf("build query: %w", err)
	}
	words, err := r.query(ctx, ex, query, args...)
	if err != nil {
		return models.Word{}, err
	}
	if len(words) == 0 {
		return models.Word{}, ErrNotFound
	}
	return words[0], nil
}

func (r *WordRepo) list(ctx context.Context, ex Executor, pred interface{}) ([]models.Word, error) {
	b := psql.Select(wordColumns...).From("words").OrderBy("text", "id")
	if pred != nil {
		b = b.Where(pred)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return r.query(ctx, ex, query, args...)
}

func (r *WordRepo) query(ctx context.Context, ex Executor, query string, args ...interface{}) ([]models.Word, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	words := []models.Word{}
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate words: %w", err)
	}
	return words, nil
}

func scanWord(rows *sql.Rows) (models.Word, error) {
	var (
		w                            models.Word
		source, metadata             sql.NullString
		tags                         string
		lastSeen, nextDue, updatedAt sql.NullString
		addedAt                      string
	)
	err := rows.Scan(
		&w.ID, &w.Text, &w.Key, &source, &tags, &metadata,
		&w.Stats.Seen, &w.Stats.Correct, &w.Stats.Wrong, &w.Stats.Easiness, &w.Stats.Interval,
		&lastSeen, &nextDue, &addedAt, &updatedAt,
	)
	if err != nil {
		return w, fmt.Errorf("scan word: %w", err)
	}

	w.SourceList = source.String
	if err := json.Unmarshal([]byte(tags), &w.Tags); err != nil {
		return w, fmt.Errorf("decode tags of %s: %w", w.ID, err)
	}
	if metadata.Valid && metadata.String != "" {
		var md models.WordMetadata
		if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
			return w, fmt.Errorf("decode metadata of %s: %w", w.ID, err)
		}
		w.Metadata = &md
	}
	if w.Stats.LastSeen, err = parseTimePtr(lastSeen); err != nil {
		return w, err
	}
	if w.Stats.NextDue, err = parseTimePtr(nextDue); err != nil {
		return w, err
	}
	if w.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return w, err
	}
	if w.AddedAt, err = parseTime(addedAt); err != nil {
		return w, err
	}
	return w, nil
}

// wordValues returns the column values in wordColumns order.
func wordValues(w models.Word) ([]interface{}, error) {
	tags := w.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	var metadata sql.NullString
	if w.Metadata != nil {
		b, err := json.Marshal(w.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}
	stats := statsColumns(w.Stats)
	return []interface{}{
		w.ID, w.Text, w.Key, nullString(w.SourceList), string(tagsJSON), metadata,
		stats["seen"], stats["correct"], stats["wrong"], stats["easiness"], stats["interval_days"],
		stats["last_seen"], stats["next_due"],
		formatTime(w.AddedAt), formatTimePtr(w.UpdatedAt),
	}, nil
}

func statsColumns(s models.Stats) map[string]interface{} {
	return map[string]interface{}{
		"seen":          s.Seen,
		"correct":       s.Correct,
		"wrong":         s.Wrong,
		"easiness":      s.Easiness,
		"interval_days": s.Interval,
		"last_seen":     formatTimePtr(s.LastSeen),
		"next_due":      formatTimePtr(s.NextDue),
	}
}

func cleanTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

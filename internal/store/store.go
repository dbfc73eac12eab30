// Package store keeps resumable chapter checkpoints and the translation
// glossary in a local SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/chapter"
	"github.com/valpere/sefer/internal/reference"
)

// Checkpoint statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// ErrNotFound is returned when a checkpoint or glossary entry does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	-- chapter_checkpoints holds the fetched text of a chapter being translated
	CREATE TABLE IF NOT EXISTS chapter_checkpoints (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		section_num INTEGER NOT NULL,
		chapter_num INTEGER NOT NULL,
		labels TEXT NOT NULL,
		passages TEXT NOT NULL,
		total INTEGER NOT NULL,
		provider TEXT,
		status TEXT DEFAULT 'running',
		retrieved_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(title, section_num, chapter_num)
	);

	-- checkpoint_translations stores each passage as soon as it is translated
	CREATE TABLE IF NOT EXISTS checkpoint_translations (
		checkpoint_id TEXT NOT NULL,
		passage_num INTEGER NOT NULL,
		translated_text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (checkpoint_id, passage_num),
		FOREIGN KEY (checkpoint_id) REFERENCES chapter_checkpoints(id)
	);

	-- glossary stores user-defined terminology injected into prompts
	CREATE TABLE IF NOT EXISTS glossary (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_term)
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoint_status ON chapter_checkpoints(status);
	CREATE INDEX IF NOT EXISTS idx_glossary_lookup ON glossary(source_lang, target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Checkpoint is the progress record of one chapter.
type Checkpoint struct {
	ID          string
	Ref         reference.Reference
	Provider    string
	Status      string
	Total       int
	Completed   int
	RetrievedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Chapter returns the checkpoint's chapter reference.
func (c *Checkpoint) Chapter() (reference.Chapter, error) {
	return reference.AsChapter(c.Ref)
}

// CreateCheckpoint records a freshly fetched chapter and any translations
// already in snap. An existing checkpoint for the same chapter is replaced.
func (s *Store) CreateCheckpoint(ctx context.Context, snap chapter.Snapshot, provider string, retrievedAt time.Time) (string, error) {
	ref, err := reference.AsChapter(snap.Ref)
	if err != nil {
		return "", err
	}
	if len(snap.Passages) == 0 || len(snap.Translations) > len(snap.Passages) {
		return "", fmt.Errorf("invalid snapshot for %s: %w", ref, internal.ErrInvalidArgument)
	}

	labels, err := json.Marshal(ref.Labels())
	if err != nil {
		return "", err
	}
	passages, err := json.Marshal(snap.Passages)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var oldID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM chapter_checkpoints WHERE title = ? AND section_num = ? AND chapter_num = ?`,
		ref.Title(), ref.Section(), ref.Number()).Scan(&oldID)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_translations WHERE checkpoint_id = ?`, oldID); err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_checkpoints WHERE id = ?`, oldID); err != nil {
			return "", err
		}
	case err != sql.ErrNoRows:
		return "", err
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chapter_checkpoints (id, title, section_num, chapter_num, labels, passages, total, provider, status, retrieved_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ref.Title(), ref.Section(), ref.Number(), string(labels), string(passages), len(snap.Passages),
		provider, StatusRunning, retrievedAt.UTC(), now, now)
	if err != nil {
		return "", err
	}

	for i, tr := range snap.Translations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checkpoint_translations (checkpoint_id, passage_num, translated_text) VALUES (?, ?, ?)`,
			id, i+1, tr); err != nil {
			return "", err
		}
	}

	return id, tx.Commit()
}

// SaveTranslation persists the translation of one passage (1-based).
func (s *Store) SaveTranslation(ctx context.Context, checkpointID string, passageNum int, text string) error {
	if passageNum < 1 {
		return fmt.Errorf("passage number must be positive, got %d: %w", passageNum, internal.ErrInvalidArgument)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE chapter_checkpoints SET updated_at = ? WHERE id = ?`, time.Now().UTC(), checkpointID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("checkpoint %s: %w", checkpointID, ErrNotFound)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoint_translations (checkpoint_id, passage_num, translated_text) VALUES (?, ?, ?)`,
		checkpointID, passageNum, text)
	return err
}

const checkpointColumns = `c.id, c.title, c.section_num, c.chapter_num, c.labels, c.total, COALESCE(c.provider, ''), c.status,
	c.retrieved_at, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM checkpoint_translations t WHERE t.checkpoint_id = c.id)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheckpoint(row rowScanner) (*Checkpoint, error) {
	var cp Checkpoint
	var labels string
	var retrievedAt sql.NullTime
	if err := row.Scan(&cp.ID, &cp.Ref.Title, &cp.Ref.Section, &cp.Ref.Chapter, &labels, &cp.Total,
		&cp.Provider, &cp.Status, &retrievedAt, &cp.CreatedAt, &cp.UpdatedAt, &cp.Completed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(labels), &cp.Ref.Labels); err != nil {
		return nil, fmt.Errorf("checkpoint %s has invalid labels: %w", cp.ID, err)
	}
	if retrievedAt.Valid {
		cp.RetrievedAt = retrievedAt.Time
	}
	return &cp, nil
}

// GetCheckpoint retrieves a checkpoint by ID.
func (s *Store) GetCheckpoint(ctx context.Context, checkpointID string) (*Checkpoint, error) {
	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM chapter_checkpoints c WHERE c.id = ?`, checkpointID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint %s: %w", checkpointID, ErrNotFound)
	}
	return cp, err
}

// FindCheckpoint returns the checkpoint of a chapter, or ErrNotFound.
func (s *Store) FindCheckpoint(ctx context.Context, ref reference.Chapter) (*Checkpoint, error) {
	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx,
		`SELECT `+checkpointColumns+` FROM chapter_checkpoints c WHERE c.title = ? AND c.section_num = ? AND c.chapter_num = ?`,
		ref.Title(), ref.Section(), ref.Number()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint for %s: %w", ref, ErrNotFound)
	}
	return cp, err
}

// LoadSnapshot rebuilds translator state from a checkpoint. Only the
// contiguous run of translations starting at passage 1 is restored.
func (s *Store) LoadSnapshot(ctx context.Context, checkpointID string) (chapter.Snapshot, error) {
	cp, err := s.GetCheckpoint(ctx, checkpointID)
	if err != nil {
		return chapter.Snapshot{}, err
	}

	var passagesJSON string
	if err := s.db.QueryRowContext(ctx,
		`SELECT passages FROM chapter_checkpoints WHERE id = ?`, checkpointID).Scan(&passagesJSON); err != nil {
		return chapter.Snapshot{}, err
	}
	snap := chapter.Snapshot{Ref: cp.Ref}
	if err := json.Unmarshal([]byte(passagesJSON), &snap.Passages); err != nil {
		return chapter.Snapshot{}, fmt.Errorf("checkpoint %s has invalid passages: %w", checkpointID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT passage_num, translated_text FROM checkpoint_translations WHERE checkpoint_id = ? ORDER BY passage_num`,
		checkpointID)
	if err != nil {
		return chapter.Snapshot{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var n int
		var text string
		if err := rows.Scan(&n, &text); err != nil {
			return chapter.Snapshot{}, err
		}
		if n != len(snap.Translations)+1 || n > len(snap.Passages) {
			break
		}
		snap.Translations = append(snap.Translations, text)
	}
	return snap, rows.Err()
}

// CompleteCheckpoint marks a checkpoint as completed.
func (s *Store) CompleteCheckpoint(ctx context.Context, checkpointID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE chapter_checkpoints SET status = ?, updated_at = ? WHERE id = ?`,
		StatusCompleted, time.Now().UTC(), checkpointID)
	return err
}

// ListCheckpoints returns checkpoints, optionally filtered by status, most
// recently updated first.
func (s *Store) ListCheckpoints(ctx context.Context, status string) ([]Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + ` FROM chapter_checkpoints c`
	var args []interface{}
	if status != "" {
		query += ` WHERE c.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY c.updated_at DESC, c.title, c.section_num, c.chapter_num`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *cp)
	}
	return results, rows.Err()
}

// DeleteCheckpoint removes a checkpoint and its translations.
func (s *Store) DeleteCheckpoint(ctx context.Context, checkpointID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoint_translations WHERE checkpoint_id = ?`, checkpointID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM chapter_checkpoints WHERE id = ?`, checkpointID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("checkpoint %s: %w", checkpointID, ErrNotFound)
	}
	return tx.Commit()
}

// normalizeText trims whitespace and applies Unicode NFC normalization so
// Hebrew terms typed with different mark orderings compare equal.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

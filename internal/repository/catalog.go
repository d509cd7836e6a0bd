package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/models"
)

// labelTable holds the queries shared by topics and levels, which are both
// (id, label) tables referenced by flashcards.
type labelTable struct {
	DB      *sql.DB
	Dialect db.Dialect
	// table is the table name, fk the flashcards column referencing it.
	table, fk string
	entity    string
}

type labelRow struct {
	ID, Label string
	Count     int
}

func (t labelTable) get(ctx context.Context, id string) (*labelRow, error) {
	var row labelRow
	err := t.DB.QueryRowContext(ctx, t.Dialect.Rebind(`SELECT id, label FROM `+t.table+` WHERE id = $1`), id).
		Scan(&row.ID, &row.Label)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound(t.entity)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", t.table, err)
	}
	return &row, nil
}

func (t labelTable) list(ctx context.Context) ([]labelRow, error) {
	rows, err := t.DB.QueryContext(ctx, `
		SELECT t.id, t.label, COUNT(f.id)
		FROM `+t.table+` t
		LEFT JOIN flashcards f ON t.id = f.`+t.fk+`
		GROUP BY t.id, t.label
		ORDER BY t.label, t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.table, err)
	}
	defer rows.Close()

	out := []labelRow{}
	for rows.Next() {
		var row labelRow
		if err := rows.Scan(&row.ID, &row.Label, &row.Count); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (t labelTable) create(ctx context.Context, id, label string) error {
	_, err := t.DB.ExecContext(ctx, t.Dialect.Rebind(`INSERT INTO `+t.table+` (id, label) VALUES ($1, $2)`), id, label)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict(t.entity+" already exists", err)
	}
	if err != nil {
		return fmt.Errorf("create %s: %w", t.table, err)
	}
	return nil
}

// ensure creates the row unless one with the same id exists.
func (t labelTable) ensure(ctx context.Context, id, label string) error {
	_, err := t.DB.ExecContext(ctx, t.Dialect.Rebind(
		`INSERT INTO `+t.table+` (id, label) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
	), id, label)
	if err != nil {
		return fmt.Errorf("ensure %s: %w", t.table, err)
	}
	return nil
}

func (t labelTable) update(ctx context.Context, id, label string) error {
	res, err := t.DB.ExecContext(ctx, t.Dialect.Rebind(
		`UPDATE `+t.table+` SET label = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
	), label, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", t.table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound(t.entity)
	}
	return nil
}

func (t labelTable) delete(ctx context.Context, id string) error {
	_, err := t.DB.ExecContext(ctx, t.Dialect.Rebind(`DELETE FROM `+t.table+` WHERE id = $1`), id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Conflict(t.entity+" is still used by flashcards", err)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.table, err)
	}
	return nil
}

// TopicRepository implements topic storage.
type TopicRepository struct {
	t labelTable
}

// NewTopicRepository creates a TopicRepository over conn.
func NewTopicRepository(conn *sql.DB, dialect db.Dialect) *TopicRepository {
	return &TopicRepository{t: labelTable{DB: conn, Dialect: dialect, table: "topics", fk: "topic_id", entity: "Topic"}}
}

// Get returns a topic without its count.
func (r *TopicRepository) Get(ctx context.Context, id string) (*models.Topic, error) {
	row, err := r.t.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Topic{ID: row.ID, Label: row.Label}, nil
}

// List returns every topic with its flashcard count, ordered by label.
func (r *TopicRepository) List(ctx context.Context) ([]models.Topic, error) {
	rows, err := r.t.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Topic, len(rows))
	for i, row := range rows {
		out[i] = models.Topic{ID: row.ID, Label: row.Label, Count: row.Count}
	}
	return out, nil
}

// Create inserts a topic.
func (r *TopicRepository) Create(ctx context.Context, id, label string) (*models.Topic, error) {
	if err := r.t.create(ctx, id, label); err != nil {
		return nil, err
	}
	return &models.Topic{ID: id, Label: label}, nil
}

// Ensure creates the topic if it is missing and leaves an existing one
// untouched.
func (r *TopicRepository) Ensure(ctx context.Context, id, label string) error {
	return r.t.ensure(ctx, id, label)
}

// Update relabels a topic.
func (r *TopicRepository) Update(ctx context.Context, id, label string) (*models.Topic, error) {
	if err := r.t.update(ctx, id, label); err != nil {
		return nil, err
	}
	return &models.Topic{ID: id, Label: label}, nil
}

// Delete removes a topic.
func (r *TopicRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// LevelRepository implements level storage.
type LevelRepository struct {
	t labelTable
}

// NewLevelRepository creates a LevelRepository over conn.
func NewLevelRepository(conn *sql.DB, dialect db.Dialect) *LevelRepository {
	return &LevelRepository{t: labelTable{DB: conn, Dialect: dialect, table: "levels", fk: "level_id", entity: "Level"}}
}

func (r *LevelRepository) Get(ctx context.Context, id string) (*models.Level, error) {
	row, err := r.t.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.Level{ID: row.ID, Label: row.Label}, nil
}

func (r *LevelRepository) List(ctx context.Context) ([]models.Level, error) {
	rows, err := r.t.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Level, len(rows))
	for i, row := range rows {
		out[i] = models.Level{ID: row.ID, Label: row.Label, Count: row.Count}
	}
	return out, nil
}

func (r *LevelRepository) Create(ctx context.Context, id, label string) (*models.Level, error) {
	if err := r.t.create(ctx, id, label); err != nil {
		return nil, err
	}
	return &models.Level{ID: id, Label: label}, nil
}

func (r *LevelRepository) Ensure(ctx context.Context, id, label string) error {
	return r.t.ensure(ctx, id, label)
}

func (r *LevelRepository) Update(ctx context.Context, id, label string) (*models.Level, error) {
	if err := r.t.update(ctx, id, label); err != nil {
		return nil, err
	}
	return &models.Level{ID: id, Label: label}, nil
}

func (r *LevelRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

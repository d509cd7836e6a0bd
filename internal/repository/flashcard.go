// Package repository provides persistence implementations for flashcards and
// the entities around them over database/sql. Queries are written with $n
// placeholders and rebound for the configured dialect.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/models"
)

const flashcardColumns = `id, topic_id, level_id, is_premium, hanzi, pinyin, english_phonetic,
		image_url, audio_cn, audio_en, audio_vi, meaning_en, meaning_vi,
		example_hanzi, example_pinyin, example_meaning_vi, created_at, updated_at`

// FlashcardRepository implements flashcard storage.
type FlashcardRepository struct {
	// DB is the database handle for executing queries.
	DB      *sql.DB
	Dialect db.Dialect
}

// NewFlashcardRepository creates a FlashcardRepository over conn.
func NewFlashcardRepository(conn *sql.DB, dialect db.Dialect) *FlashcardRepository {
	return &FlashcardRepository{DB: conn, Dialect: dialect}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row scanner) (models.Flashcard, error) {
	var f models.Flashcard
	err := row.Scan(
		&f.ID, &f.TopicID, &f.LevelID, &f.IsPremium, &f.Hanzi, &f.Pinyin, &f.EnglishPhonetic,
		&f.ImageURL, &f.AudioCN, &f.AudioEN, &f.AudioVI, &f.MeaningEn, &f.MeaningVi,
		&f.ExampleHanzi, &f.ExamplePinyin, &f.ExampleMeaningVi, &f.CreatedAt, &f.UpdatedAt,
	)
	return f, err
}

// Get returns the flat row of a flashcard or a not-found error.
func (r *FlashcardRepository) Get(ctx context.Context, id string) (*models.Flashcard, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+flashcardColumns+` FROM flashcards WHERE id = $1`), id)
	f, err := scanFlashcard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Flashcard")
	}
	if err != nil {
		return nil, fmt.Errorf("get flashcard: %w", err)
	}
	return &f, nil
}

// GetByID returns a flashcard in its nested served shape.
func (r *FlashcardRepository) GetByID(ctx context.Context, id string) (*models.FlashcardView, error) {
	f, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	v := f.View()
	return &v, nil
}

type flashcardFilter models.FlashcardQuery

// likeEscaper makes a keyword match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// clause builds the WHERE clause shared by the count and page queries.
func (q flashcardFilter) clause() (string, []any) {
	conds := []string{"1=1"}
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.TopicID != "" {
		conds = append(conds, "topic_id = "+next(q.TopicID))
	}
	if q.LevelID != "" {
		conds = append(conds, "level_id = "+next(q.LevelID))
	}
	if q.OnlyWithImage {
		conds = append(conds, "image_url IS NOT NULL AND image_url <> ''")
	}
	if kw := strings.TrimSpace(q.Keyword); kw != "" {
		p := next("%" + likeEscaper.Replace(strings.ToLower(kw)) + "%")
		like := " LIKE " + p + ` ESCAPE '\'`
		conds = append(conds, "(LOWER(hanzi)"+like+
			" OR LOWER(pinyin)"+like+
			" OR LOWER(meaning_en)"+like+
			" OR LOWER(meaning_vi)"+like+
			" OR LOWER(english_phonetic)"+like+")")
	}
	if q.Premium != nil {
		conds = append(conds, "is_premium = "+next(*q.Premium))
	}
	return strings.Join(conds, " AND "), args
}

// List returns one page of flashcards matching q, newest first. Paging is
// normalized first; a page past the end is empty, not an error.
func (r *FlashcardRepository) List(ctx context.Context, q models.FlashcardQuery) (*models.FlashcardPage, error) {
	page, size := models.NormalizePaging(q.Page, q.PageSize)
	where, args := flashcardFilter(q).clause()

	var total int
	err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT COUNT(*) FROM flashcards WHERE `+where), args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count flashcards: %w", err)
	}

	result := &models.FlashcardPage{
		Items:      []models.FlashcardView{},
		Total:      total,
		TotalPages: models.TotalPages(total, size),
		Page:       page,
		PageSize:   size,
	}

	offset := (page - 1) * size
	if offset >= total {
		return result, nil
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM flashcards WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		flashcardColumns, where, n+1, n+2)
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(query), append(args, size, offset)...)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFlashcard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result.Items = append(result.Items, f.View())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	return result, nil
}

// Create inserts f and returns it re-read in served shape. A duplicate id is
// reported as a conflict.
func (r *FlashcardRepository) Create(ctx context.Context, f models.Flashcard) (*models.FlashcardView, error) {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO flashcards (
			id, topic_id, level_id, is_premium, hanzi, pinyin, english_phonetic,
			image_url, audio_cn, audio_en, audio_vi, meaning_en, meaning_vi,
			example_hanzi, example_pinyin, example_meaning_vi
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`),
		f.ID, f.TopicID, f.LevelID, f.IsPremium, f.Hanzi, f.Pinyin, f.EnglishPhonetic,
		f.ImageURL, f.AudioCN, f.AudioEN, f.AudioVI, f.MeaningEn, f.MeaningVi,
		f.ExampleHanzi, f.ExamplePinyin, f.ExampleMeaningVi,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("Flashcard already exists", err)
		}
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.Reference("Invalid topic or level for flashcard %s", f.ID)
		}
		return nil, fmt.Errorf("create flashcard: %w", err)
	}
	return r.GetByID(ctx, f.ID)
}

// Update overwrites every column of the row f.ID with f.
func (r *FlashcardRepository) Update(ctx context.Context, f models.Flashcard) (*models.FlashcardView, error) {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE flashcards
		SET topic_id = $1, level_id = $2, is_premium = $3, hanzi = $4, pinyin = $5,
			english_phonetic = $6, image_url = $7, audio_cn = $8, audio_en = $9,
			audio_vi = $10, meaning_en = $11, meaning_vi = $12, example_hanzi = $13,
			example_pinyin = $14, example_meaning_vi = $15, updated_at = CURRENT_TIMESTAMP
		WHERE id = $16
	`),
		f.TopicID, f.LevelID, f.IsPremium, f.Hanzi, f.Pinyin,
		f.EnglishPhonetic, f.ImageURL, f.AudioCN, f.AudioEN,
		f.AudioVI, f.MeaningEn, f.MeaningVi, f.ExampleHanzi,
		f.ExamplePinyin, f.ExampleMeaningVi, f.ID,
	)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return nil, apperr.Reference("Invalid topic or level for flashcard %s", f.ID)
		}
		return nil, fmt.Errorf("update flashcard: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFound("Flashcard")
	}
	return r.GetByID(ctx, f.ID)
}

// SetImage points the flashcard's image at url.
func (r *FlashcardRepository) SetImage(ctx context.Context, id, url string) error {
	return r.setMedia(ctx, "image_url", id, url)
}

// SetAudio points the flashcard's Chinese audio at url.
func (r *FlashcardRepository) SetAudio(ctx context.Context, id, url string) error {
	return r.setMedia(ctx, "audio_cn", id, url)
}

func (r *FlashcardRepository) setMedia(ctx context.Context, column, id, url string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(
		`UPDATE flashcards SET `+column+` = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
	), url, id)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("Flashcard")
	}
	return nil
}

// Delete removes the flashcard. Deleting a missing id is not an error.
func (r *FlashcardRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM flashcards WHERE id = $1`), id); err != nil {
		return fmt.Errorf("delete flashcard: %w", err)
	}
	return nil
}

// ImportResult reports the outcome of Import.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// Import inserts cards in one transaction, skipping any whose (hanzi,
// level_id) pair already exists. The default topic and every referenced
// allowed level are created first when missing. Nothing is written if any
// statement fails.
func (r *FlashcardRepository) Import(ctx context.Context, cards []models.Flashcard) (ImportResult, error) {
	var res ImportResult

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	ensureLabel := r.Dialect.Rebind(`INSERT INTO %s (id, label) VALUES ($1, $2) ON CONFLICT DO NOTHING`)
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(ensureLabel, "topics"), models.DefaultTopicID, models.DefaultTopicLabel); err != nil {
		return res, fmt.Errorf("ensure default topic: %w", err)
	}
	seenLevels := map[string]bool{}
	for _, c := range cards {
		if seenLevels[c.LevelID] {
			continue
		}
		label, ok := models.LevelLabel(c.LevelID)
		if !ok {
			return res, apperr.Reference("Invalid level: %s", c.LevelID)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(ensureLabel, "levels"), c.LevelID, label); err != nil {
			return res, fmt.Errorf("ensure level: %w", err)
		}
		seenLevels[c.LevelID] = true
	}

	exists := r.Dialect.Rebind(`SELECT EXISTS(SELECT 1 FROM flashcards WHERE hanzi = $1 AND level_id = $2)`)
	insert := r.Dialect.Rebind(`
		INSERT INTO flashcards (
			id, topic_id, level_id, is_premium, hanzi, pinyin, english_phonetic,
			meaning_en, meaning_vi, example_hanzi, example_pinyin, example_meaning_vi
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	for _, c := range cards {
		var dup bool
		if err := tx.QueryRowContext(ctx, exists, c.Hanzi, c.LevelID).Scan(&dup); err != nil {
			return res, fmt.Errorf("check duplicate: %w", err)
		}
		if dup {
			res.Skipped++
			continue
		}
		if _, err := tx.ExecContext(ctx, insert,
			c.ID, c.TopicID, c.LevelID, c.IsPremium, c.Hanzi, c.Pinyin, c.EnglishPhonetic,
			c.MeaningEn, c.MeaningVi, c.ExampleHanzi, c.ExamplePinyin, c.ExampleMeaningVi,
		); err != nil {
			return res, fmt.Errorf("insert %s: %w", c.Hanzi, err)
		}
		res.Inserted++
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

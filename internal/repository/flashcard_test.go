package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/lib/pq"
)

var flashcardCols = []string{
	"id", "topic_id", "level_id", "is_premium", "hanzi", "pinyin", "english_phonetic",
	"image_url", "audio_cn", "audio_en", "audio_vi", "meaning_en", "meaning_vi",
	"example_hanzi", "example_pinyin", "example_meaning_vi", "created_at", "updated_at",
}

func setupFlashcards(t *testing.T) (*FlashcardRepository, sqlmock.Sqlmock, func()) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	return NewFlashcardRepository(conn, db.Postgres), mock, func() { conn.Close() }
}

func cardRow(id, topic, level, hanzi, pinyin string) []driver.Value {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []driver.Value{
		id, topic, level, false, hanzi, pinyin, nil,
		nil, "https://cdn.test/" + id + ".mp3", nil, nil, "meaning", "nghĩa",
		nil, nil, nil, now, now,
	}
}

func rowsOf(values ...[]driver.Value) *sqlmock.Rows {
	rows := sqlmock.NewRows(flashcardCols)
	for _, v := range values {
		rows.AddRow(v...)
	}
	return rows
}

func strptr(s string) *string { return &s }

func TestFlashcardGetByID_Reshapes(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM flashcards WHERE id = $1`)).
		WithArgs("c1").
		WillReturnRows(rowsOf(cardRow("c1", "animals", "hsk1", "猫", "māo")))

	v, err := repo.GetByID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Topic != "animals" || v.Level != "hsk1" || v.Content.Hanzi != "猫" {
		t.Errorf("unexpected view: %+v", v)
	}
	if v.Content.Audio.CN == nil || *v.Content.Audio.CN != "https://cdn.test/c1.mp3" {
		t.Errorf("audio.cn = %v", v.Content.Audio.CN)
	}
	if v.Content.Meanings.VI == nil || *v.Content.Meanings.VI != "nghĩa" {
		t.Errorf("meanings.vi = %v", v.Content.Meanings.VI)
	}
	if v.Content.ImageURL != nil || v.Content.ExampleSentence.Hanzi != nil {
		t.Errorf("expected null optional fields: %+v", v.Content)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardGet_NotFound(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM flashcards WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(flashcardCols))

	_, err := repo.Get(context.Background(), "missing")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFlashcardList_FilterConjunction(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM flashcards WHERE 1=1 AND topic_id = $1 AND level_id = $2`)).
		WithArgs("animals", "hsk2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE 1=1 AND topic_id = $1 AND level_id = $2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`)).
		WithArgs("animals", "hsk2", 20, 0).
		WillReturnRows(rowsOf(
			cardRow("b", "animals", "hsk2", "狗", "gǒu"),
			cardRow("a", "animals", "hsk2", "鸟", "niǎo"),
		))

	page, err := repo.List(context.Background(), models.FlashcardQuery{Page: 1, TopicID: "animals", LevelID: "hsk2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 2 || page.TotalPages != 1 || page.PageSize != 20 {
		t.Errorf("unexpected page: %+v", page)
	}
	for _, it := range page.Items {
		if it.Topic != "animals" || it.Level != "hsk2" {
			t.Errorf("item %s does not match filters", it.ID)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardList_LevelOnly(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM flashcards WHERE 1=1 AND level_id = $1`)).
		WithArgs("hsk2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $2 OFFSET $3`)).
		WithArgs("hsk2", 20, 0).
		WillReturnRows(rowsOf(cardRow("d", "0", "hsk2", "狗", "gǒu"), cardRow("e", "0", "hsk2", "鸟", "niǎo")))

	page, err := repo.List(context.Background(), models.FlashcardQuery{Page: 1, PageSize: 20, LevelID: "hsk2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 2 || page.Total != 2 || page.TotalPages != 1 {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestFlashcardList_KeywordPremiumAndImage(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	premium := true
	where := `WHERE 1=1 AND image_url IS NOT NULL AND image_url <> '' AND ` +
		`(LOWER(hanzi) LIKE $1 ESCAPE '\' OR LOWER(pinyin) LIKE $1 ESCAPE '\' OR LOWER(meaning_en) LIKE $1 ESCAPE '\' ` +
		`OR LOWER(meaning_vi) LIKE $1 ESCAPE '\' OR LOWER(english_phonetic) LIKE $1 ESCAPE '\') ` +
		`AND is_premium = $2`

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM flashcards ` + where)).
		WithArgs("%mao%", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(where + ` ORDER BY`)).
		WithArgs("%mao%", true, 20, 0).
		WillReturnRows(rowsOf(cardRow("c1", "animals", "hsk1", "猫", "mao")))

	page, err := repo.List(context.Background(), models.FlashcardQuery{
		Keyword:       "  MAO ",
		Premium:       &premium,
		OnlyWithImage: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Content.Hanzi != "猫" {
		t.Errorf("unexpected items: %+v", page.Items)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardList_PageSizeCapped(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM flashcards WHERE 1=1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(250))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT $1 OFFSET $2`)).
		WithArgs(100, 100).
		WillReturnRows(rowsOf(cardRow("x", "0", "hsk1", "猫", "māo")))

	page, err := repo.List(context.Background(), models.FlashcardQuery{Page: 2, PageSize: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.PageSize != 100 || page.TotalPages != 3 || page.Page != 2 {
		t.Errorf("unexpected page meta: %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardList_OutOfRangePage(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM flashcards WHERE 1=1`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	page, err := repo.List(context.Background(), models.FlashcardQuery{Page: 3, PageSize: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 {
		t.Errorf("expected empty non-nil items, got %#v", page.Items)
	}
	if page.Total != 5 || page.TotalPages != 1 || page.Page != 3 {
		t.Errorf("unexpected page meta: %+v", page)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected sql calls: %v", err)
	}
}

func TestFlashcardList_CountError(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*)`)).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background(), models.FlashcardQuery{})
	if err == nil || !regexp.MustCompile(`count flashcards`).MatchString(err.Error()) {
		t.Errorf("expected count flashcards error, got %v", err)
	}
}

func TestFlashcardCreate_RoundTrip(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	card := models.Flashcard{
		ID: "c1", TopicID: "0", LevelID: "hsk1", Hanzi: "猫", Pinyin: "māo",
		AudioCN: strptr("https://cdn.test/c1.mp3"), MeaningEn: strptr("meaning"), MeaningVi: strptr("nghĩa"),
	}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO flashcards`)).
		WithArgs("c1", "0", "hsk1", false, "猫", "māo", nil,
			nil, "https://cdn.test/c1.mp3", nil, nil, "meaning", "nghĩa",
			nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM flashcards WHERE id = $1`)).
		WithArgs("c1").
		WillReturnRows(rowsOf(cardRow("c1", "0", "hsk1", "猫", "māo")))

	v, err := repo.Create(context.Background(), card)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flat := v.Flat()
	if flat.Hanzi != card.Hanzi || flat.Pinyin != card.Pinyin || *flat.AudioCN != *card.AudioCN || *flat.MeaningEn != *card.MeaningEn {
		t.Errorf("round trip mismatch: %+v", flat)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardCreate_Conflict(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO flashcards`)).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), models.Flashcard{ID: "dup", TopicID: "0", LevelID: "hsk1"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardUpdate_NotFound(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE flashcards`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), models.Flashcard{ID: "missing", TopicID: "0", LevelID: "hsk1"})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFlashcardUpdate_Success(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = $16`)).
		WithArgs("0", "hsk1", true, "猫", "mao1",
			nil, nil, nil, nil,
			nil, nil, nil, nil,
			nil, nil, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM flashcards WHERE id = $1`)).
		WithArgs("c1").
		WillReturnRows(rowsOf(cardRow("c1", "0", "hsk1", "猫", "mao1")))

	v, err := repo.Update(context.Background(), models.Flashcard{
		ID: "c1", TopicID: "0", LevelID: "hsk1", IsPremium: true, Hanzi: "猫", Pinyin: "mao1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Content.Pinyin != "mao1" {
		t.Errorf("pinyin = %q", v.Content.Pinyin)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardDelete_Idempotent(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM flashcards WHERE id = $1`)).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "ghost"); err != nil {
		t.Errorf("deleting a missing flashcard should succeed, got %v", err)
	}
}

func TestFlashcardSetImage_NotFound(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE flashcards SET image_url = $1`)).
		WithArgs("https://cdn.test/x.png", "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetImage(context.Background(), "ghost", "https://cdn.test/x.png")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestFlashcardImport_SkipsDuplicates(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	cards := []models.Flashcard{
		{ID: "n1", TopicID: "0", LevelID: "hsk1", Hanzi: "猫", Pinyin: "māo"},
		{ID: "n2", TopicID: "0", LevelID: "hsk1", Hanzi: "狗", Pinyin: "gǒu"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO topics (id, label) VALUES ($1, $2) ON CONFLICT DO NOTHING`)).
		WithArgs(models.DefaultTopicID, models.DefaultTopicLabel).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO levels (id, label) VALUES ($1, $2) ON CONFLICT DO NOTHING`)).
		WithArgs("hsk1", "HSK 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM flashcards WHERE hanzi = $1 AND level_id = $2)`)).
		WithArgs("猫", "hsk1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("狗", "hsk1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO flashcards`)).
		WithArgs("n2", "0", "hsk1", false, "狗", "gǒu", nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := repo.Import(context.Background(), cards)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Inserted != 1 || res.Skipped != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestFlashcardImport_InvalidLevelRollsBack(t *testing.T) {
	repo, mock, cleanup := setupFlashcards(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO topics`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Import(context.Background(), []models.Flashcard{{ID: "n1", LevelID: "hsk9", Hanzi: "猫"}})
	if !apperr.Is(err, apperr.KindReference) {
		t.Errorf("expected reference error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

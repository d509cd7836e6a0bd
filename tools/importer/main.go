// Package main bulk-loads vocabulary into the flashcards table from a JSON
// file such as data/hsk1_words.json.
//
// Usage:
//
//	importer -driver sqlite -d file:data/flashcard.db -f data/hsk1_words.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/logger"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/atinyakov/HanziDeck/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// word is one entry of the import file.
type word struct {
	Hanzi        string `json:"hanzi"`
	Pinyin       string `json:"pinyin"`
	MeaningEn    string `json:"meaning_en"`
	MeaningVi    string `json:"meaning_vi"`
	ExampleHanzi string `json:"example_hanzi"`
	LevelID      string `json:"level_id"`
}

func main() {
	fs := flag.NewFlagSet("importer", flag.ExitOnError)
	driver := fs.String("driver", "sqlite", "database driver (postgres|sqlite)")
	dsn := fs.String("d", "file:data/flashcard.db?_pragma=foreign_keys(1)", "db address")
	file := fs.String("f", "data/hsk1_words.json", "path to the JSON word list")
	level := fs.String("level", "hsk1", "level used for entries without level_id")
	logLevel := fs.String("log-level", "info", "log level")
	_ = fs.Parse(os.Args[1:])

	log := logger.New()
	if err := log.Init(*logLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	if err := run(context.Background(), *driver, *dsn, *file, *level, log.Log); err != nil {
		log.Log.Error("import failed, rolled back", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, driver, dsn, path, defaultLevel string, log *zap.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	words, err := readWords(f)
	if err != nil {
		return err
	}
	cards, err := buildCards(words, defaultLevel)
	if err != nil {
		return err
	}

	conn, dialect, err := db.Open(ctx, driver, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, err := repository.NewFlashcardRepository(conn, dialect).Import(ctx, cards)
	if err != nil {
		return err
	}
	log.Info("import completed",
		zap.String("file", path),
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
	)
	return nil
}

// readWords decodes the word list, which must be a JSON array.
func readWords(r io.Reader) ([]word, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode word list: %w", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		return nil, errors.New("invalid JSON: expected an array")
	}
	var words []word
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, fmt.Errorf("decode word list: %w", err)
	}
	return words, nil
}

// buildCards converts words into flashcards of the default topic. Level ids
// are matched case-insensitively, so "HSK1" becomes "hsk1".
func buildCards(words []word, defaultLevel string) ([]models.Flashcard, error) {
	cards := make([]models.Flashcard, 0, len(words))
	for i, w := range words {
		hanzi := strings.TrimSpace(w.Hanzi)
		if hanzi == "" {
			return nil, fmt.Errorf("entry %d: hanzi is required", i)
		}
		levelID := strings.ToLower(strings.TrimSpace(w.LevelID))
		if levelID == "" {
			levelID = strings.ToLower(defaultLevel)
		}
		if _, ok := models.LevelLabel(levelID); !ok {
			return nil, fmt.Errorf("entry %d: invalid level %q", i, w.LevelID)
		}
		cards = append(cards, models.Flashcard{
			ID:               uuid.NewString(),
			TopicID:          models.DefaultTopicID,
			LevelID:          levelID,
			Hanzi:            hanzi,
			Pinyin:           strings.TrimSpace(w.Pinyin),
			MeaningEn:        optional(w.MeaningEn),
			MeaningVi:        optional(w.MeaningVi),
			ExampleHanzi:     optional(w.ExampleHanzi),
			ExampleMeaningVi: optional(w.MeaningVi),
		})
	}
	return cards, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

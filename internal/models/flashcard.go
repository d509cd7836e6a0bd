package models

import (
	"math"
	"time"
)

// DefaultTopicID is the reserved id of the "unclassified" topic. It is
// created on first use.
const DefaultTopicID = "0"

// DefaultTopicLabel is the label the unclassified topic is created with.
const DefaultTopicLabel = "Chưa phân loại"

// AllowedLevels lists the level ids flashcards may reference, in order.
var AllowedLevels = []Level{
	{ID: "hsk1", Label: "HSK 1"},
	{ID: "hsk2", Label: "HSK 2"},
	{ID: "hsk3", Label: "HSK 3"},
	{ID: "hsk4", Label: "HSK 4"},
	{ID: "hsk5", Label: "HSK 5"},
	{ID: "hsk6", Label: "HSK 6"},
}

// LevelLabel returns the display label of an allowed level id.
// ok is false when id is not allowed.
func LevelLabel(id string) (label string, ok bool) {
	for _, l := range AllowedLevels {
		if l.ID == id {
			return l.Label, true
		}
	}
	return "", false
}

// Flashcard is the flat storage form of a flashcard.
type Flashcard struct {
	ID        string `json:"id"`
	TopicID   string `json:"topicId"`
	LevelID   string `json:"levelId"`
	IsPremium bool   `json:"isPremium"`

	Hanzi           string  `json:"hanzi"`
	Pinyin          string  `json:"pinyin"`
	EnglishPhonetic *string `json:"englishPhonetic"`

	ImageURL *string `json:"imageUrl"`
	AudioCN  *string `json:"audioCn"`
	AudioEN  *string `json:"audioEn"`
	AudioVI  *string `json:"audioVi"`

	MeaningEn *string `json:"meaningEn"`
	MeaningVi *string `json:"meaningVi"`

	ExampleHanzi     *string `json:"exampleHanzi"`
	ExamplePinyin    *string `json:"examplePinyin"`
	ExampleMeaningVi *string `json:"exampleMeaningVi"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FlashcardView is the nested shape flashcards are served in.
type FlashcardView struct {
	ID        string           `json:"id"`
	Topic     string           `json:"topic"`
	Level     string           `json:"level"`
	IsPremium bool             `json:"is_premium"`
	Content   FlashcardContent `json:"content"`
}

// FlashcardContent is the lexical and media part of a FlashcardView.
type FlashcardContent struct {
	Hanzi           string          `json:"hanzi"`
	Pinyin          string          `json:"pinyin"`
	EnglishPhonetic *string         `json:"english_phonetic"`
	ImageURL        *string         `json:"image_url"`
	Audio           Audio           `json:"audio"`
	Meanings        Meanings        `json:"meanings"`
	ExampleSentence ExampleSentence `json:"example_sentence"`
}

// Audio holds pronunciation recordings per language.
type Audio struct {
	CN *string `json:"cn"`
	EN *string `json:"en"`
	VI *string `json:"vi"`
}

// Meanings holds translations of the headword.
type Meanings struct {
	EN *string `json:"en"`
	VI *string `json:"vi"`
}

// ExampleSentence is an optional usage example.
type ExampleSentence struct {
	Hanzi     *string `json:"hanzi"`
	Pinyin    *string `json:"pinyin"`
	MeaningVI *string `json:"meaning_vi"`
}

// View reshapes the flat row into its served form.
func (f Flashcard) View() FlashcardView {
	return FlashcardView{
		ID:        f.ID,
		Topic:     f.TopicID,
		Level:     f.LevelID,
		IsPremium: f.IsPremium,
		Content: FlashcardContent{
			Hanzi:           f.Hanzi,
			Pinyin:          f.Pinyin,
			EnglishPhonetic: f.EnglishPhonetic,
			ImageURL:        f.ImageURL,
			Audio:           Audio{CN: f.AudioCN, EN: f.AudioEN, VI: f.AudioVI},
			Meanings:        Meanings{EN: f.MeaningEn, VI: f.MeaningVi},
			ExampleSentence: ExampleSentence{
				Hanzi:     f.ExampleHanzi,
				Pinyin:    f.ExamplePinyin,
				MeaningVI: f.ExampleMeaningVi,
			},
		},
	}
}

// Flat is the inverse of Flashcard.View. Timestamps are not part of the
// view and stay zero.
func (v FlashcardView) Flat() Flashcard {
	return Flashcard{
		ID:               v.ID,
		TopicID:          v.Topic,
		LevelID:          v.Level,
		IsPremium:        v.IsPremium,
		Hanzi:            v.Content.Hanzi,
		Pinyin:           v.Content.Pinyin,
		EnglishPhonetic:  v.Content.EnglishPhonetic,
		ImageURL:         v.Content.ImageURL,
		AudioCN:          v.Content.Audio.CN,
		AudioEN:          v.Content.Audio.EN,
		AudioVI:          v.Content.Audio.VI,
		MeaningEn:        v.Content.Meanings.EN,
		MeaningVi:        v.Content.Meanings.VI,
		ExampleHanzi:     v.Content.ExampleSentence.Hanzi,
		ExamplePinyin:    v.Content.ExampleSentence.Pinyin,
		ExampleMeaningVi: v.Content.ExampleSentence.MeaningVI,
	}
}

const (
	// DefaultPageSize is used when the caller gives no page size.
	DefaultPageSize = 20
	// MaxPageSize bounds every page regardless of the requested size.
	MaxPageSize = 100
)

// NormalizePaging clamps page to >= 1 and size to [1, MaxPageSize],
// substituting DefaultPageSize for a missing size.
func NormalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// TotalPages returns ceil(total/size).
func TotalPages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(size)))
}

// FlashcardQuery selects a page of flashcards. Empty string filters and a
// nil Premium are ignored.
type FlashcardQuery struct {
	Page     int
	PageSize int

	TopicID string
	LevelID string
	// Keyword matches case-insensitively as a substring of hanzi, pinyin,
	// either meaning or the English phonetic.
	Keyword       string
	Premium       *bool
	OnlyWithImage bool
}

// FlashcardPage is one page of a flashcard listing.
type FlashcardPage struct {
	Items      []FlashcardView `json:"data"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
}

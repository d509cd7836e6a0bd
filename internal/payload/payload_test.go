package payload

import (
	"encoding/json"
	"testing"

	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBool(t *testing.T) {
	cases := []struct {
		name string
		in   any
		def  bool
		want bool
	}{
		{"nil default false", nil, false, false},
		{"nil default true", nil, true, true},
		{"bool true", true, false, true},
		{"bool false", false, true, false},
		{"zero", 0, true, false},
		{"float zero", float64(0), true, false},
		{"non zero", float64(2.5), false, true},
		{"json number zero", json.Number("0"), true, false},
		{"string 1", "1", false, true},
		{"string 0", "0", true, false},
		{"empty string", "", true, false},
		{"string yes padded", "  YES ", false, true},
		{"string no", "No", true, false},
		{"string False", "False", true, false},
		{"unrecognized string", "maybe", false, true},
		{"other type", []string{"x"}, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToBool(tc.in, tc.def))
		})
	}
}

func TestNormalize_PremiumCoercion(t *testing.T) {
	assert.True(t, Normalize(map[string]any{"isPremium": "1"}, false).IsPremium)
	assert.False(t, Normalize(map[string]any{"isPremium": "0"}, false).IsPremium)
	assert.False(t, Normalize(map[string]any{"isPremium": ""}, false).IsPremium)
	assert.True(t, Normalize(map[string]any{"isPremium": "maybe"}, false).IsPremium)
	assert.False(t, Normalize(map[string]any{}, false).IsPremium)
	assert.True(t, Normalize(map[string]any{"is_premium": "yes"}, false).IsPremium)

	// camelCase wins when both spellings are present.
	p := Normalize(map[string]any{"isPremium": false, "is_premium": true}, false)
	assert.False(t, p.IsPremium)
	assert.True(t, p.PremiumSet)
}

func TestNormalize_NamingConventions(t *testing.T) {
	snake := Normalize(map[string]any{
		"topic_id":           "animals",
		"level_id":           "hsk1",
		"hanzi":              "猫",
		"pinyin":             "māo",
		"english_phonetic":   "mow",
		"meaning_en":         "cat",
		"meaning_vi":         "mèo",
		"example_hanzi":      "我有一只猫",
		"example_meaning_vi": "Tôi có một con mèo",
		"audio_cn":           "",
	}, false)
	camel := Normalize(map[string]any{
		"topicId":          "animals",
		"levelId":          "hsk1",
		"hanzi":            "猫",
		"pinyin":           "māo",
		"englishPhonetic":  "mow",
		"meaningEn":        "cat",
		"meaningVi":        "mèo",
		"exampleHanzi":     "我有一只猫",
		"exampleMeaningVi": "Tôi có một con mèo",
		"audioCn":          "",
	}, false)

	assert.Equal(t, camel, snake)
	assert.Equal(t, "animals", snake.TopicID)
	require.NotNil(t, snake.EnglishPhonetic)
	assert.Equal(t, "mow", *snake.EnglishPhonetic)
	assert.Nil(t, snake.ExamplePinyin)
	assert.Nil(t, snake.AudioCN, "empty strings normalize to absent")
	assert.True(t, snake.AudioCNSet)
	assert.False(t, snake.AudioENSet)
	assert.Empty(t, snake.ID)
}

func TestNormalize_EmptyCamelFallsBackToSnake(t *testing.T) {
	p := Normalize(map[string]any{"levelId": "", "level_id": "hsk2"}, false)
	assert.Equal(t, "hsk2", p.LevelID)
}

func TestNormalize_ID(t *testing.T) {
	p := Normalize(map[string]any{"id": "given"}, true)
	assert.Equal(t, "given", p.ID)

	generated := Normalize(map[string]any{}, true)
	_, err := uuid.Parse(generated.ID)
	require.NoError(t, err)

	other := Normalize(map[string]any{}, true)
	assert.NotEqual(t, generated.ID, other.ID)
}

func TestMissing(t *testing.T) {
	p := Normalize(map[string]any{"hanzi": "猫", "meaningVi": "mèo"}, true)
	assert.Equal(t, []string{"levelId", "pinyin", "meaningEn"}, Missing(p))

	full := Normalize(map[string]any{
		"levelId": "hsk1", "hanzi": "猫", "pinyin": "māo", "meaningEn": "cat", "meaningVi": "mèo",
	}, true)
	assert.Empty(t, Missing(full))
}

func TestPayload_FlashcardDefaultsTopic(t *testing.T) {
	f := Normalize(map[string]any{"levelId": "hsk1", "hanzi": "猫"}, true).Flashcard()
	assert.Equal(t, models.DefaultTopicID, f.TopicID)
	assert.Nil(t, f.MeaningEn)
}

func strptr(s string) *string { return &s }

func existingCard() models.Flashcard {
	return models.Flashcard{
		ID:              "c1",
		TopicID:         "animals",
		LevelID:         "hsk1",
		IsPremium:       true,
		Hanzi:           "猫",
		Pinyin:          "māo",
		EnglishPhonetic: strptr("mow"),
		ImageURL:        strptr("https://cdn.test/img.png"),
		AudioCN:         strptr("https://cdn.test/cn.mp3"),
		AudioEN:         strptr("https://cdn.test/en.mp3"),
		MeaningEn:       strptr("cat"),
		MeaningVi:       strptr("mèo"),
	}
}

func TestMerge_PreservesUnsetFields(t *testing.T) {
	got := Merge(existingCard(), Normalize(map[string]any{"pinyin": "mao1"}, false))

	want := existingCard()
	want.Pinyin = "mao1"
	assert.Equal(t, want, got)
}

func TestMerge_TruthyWinsForText(t *testing.T) {
	got := Merge(existingCard(), Normalize(map[string]any{
		"hanzi":           "",
		"englishPhonetic": "",
		"imageUrl":        "",
		"meaningEn":       "kitty",
	}, false))

	assert.Equal(t, "猫", got.Hanzi)
	assert.Equal(t, "mow", *got.EnglishPhonetic)
	assert.Equal(t, "https://cdn.test/img.png", *got.ImageURL)
	assert.Equal(t, "kitty", *got.MeaningEn)
}

func TestMerge_PresenceWinsForPremiumAndAudio(t *testing.T) {
	got := Merge(existingCard(), Normalize(map[string]any{
		"is_premium": "false",
		"audioCn":    "",
		"audio_vi":   "https://cdn.test/vi.mp3",
	}, false))

	assert.False(t, got.IsPremium)
	assert.Nil(t, got.AudioCN, "explicit empty audio clears the stored value")
	assert.Equal(t, "https://cdn.test/en.mp3", *got.AudioEN, "absent key keeps the stored value")
	require.NotNil(t, got.AudioVI)
	assert.Equal(t, "https://cdn.test/vi.mp3", *got.AudioVI)

	kept := Merge(existingCard(), Normalize(map[string]any{}, false))
	assert.True(t, kept.IsPremium)
}

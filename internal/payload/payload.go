// Package payload turns raw flashcard request fields into a canonical
// record and merges partial updates into stored flashcards.
//
// Inbound fields may be camelCase or snake_case (topicId or topic_id) and
// the premium flag may arrive as a bool, a number or one of several strings.
package payload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/google/uuid"
)

// Payload is the canonical flashcard record. Empty strings and nil pointers
// mean the field was not supplied.
type Payload struct {
	ID      string
	TopicID string
	LevelID string

	IsPremium bool

	Hanzi           string
	Pinyin          string
	EnglishPhonetic *string
	ImageURL        *string
	AudioCN         *string
	AudioEN         *string
	AudioVI         *string
	MeaningEn       string
	MeaningVi       string

	ExampleHanzi     *string
	ExamplePinyin    *string
	ExampleMeaningVi *string

	// The flags below record whether the raw input carried the key at all,
	// under either naming, even with an empty or false value.
	PremiumSet bool
	AudioCNSet bool
	AudioENSet bool
	AudioVISet bool
}

// Normalize builds a Payload from raw request fields. When includeID is true
// and raw has no id, a fresh UUID is assigned; a supplied id is kept.
func Normalize(raw map[string]any, includeID bool) Payload {
	p := Payload{
		TopicID:          str(raw, "topicId", "topic_id"),
		LevelID:          str(raw, "levelId", "level_id"),
		Hanzi:            str(raw, "hanzi"),
		Pinyin:           str(raw, "pinyin"),
		EnglishPhonetic:  opt(raw, "englishPhonetic", "english_phonetic"),
		ImageURL:         opt(raw, "imageUrl", "image_url"),
		AudioCN:          opt(raw, "audioCn", "audio_cn"),
		AudioEN:          opt(raw, "audioEn", "audio_en"),
		AudioVI:          opt(raw, "audioVi", "audio_vi"),
		MeaningEn:        str(raw, "meaningEn", "meaning_en"),
		MeaningVi:        str(raw, "meaningVi", "meaning_vi"),
		ExampleHanzi:     opt(raw, "exampleHanzi", "example_hanzi"),
		ExamplePinyin:    opt(raw, "examplePinyin", "example_pinyin"),
		ExampleMeaningVi: opt(raw, "exampleMeaningVi", "example_meaning_vi"),

		PremiumSet: has(raw, "isPremium", "is_premium"),
		AudioCNSet: has(raw, "audioCn", "audio_cn"),
		AudioENSet: has(raw, "audioEn", "audio_en"),
		AudioVISet: has(raw, "audioVi", "audio_vi"),
	}

	premium, ok := raw["isPremium"]
	if !ok {
		premium = raw["is_premium"]
	}
	p.IsPremium = ToBool(premium, false)

	if includeID {
		p.ID = str(raw, "id")
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
	}
	return p
}

// ToBool coerces a loosely typed flag. nil yields def. Numbers are true
// unless zero. Strings are compared trimmed and case-insensitively: "true",
// "1" and "yes" are true; "false", "0", "no" and "" are false; any other
// string is true.
func ToBool(v any, def bool) bool {
	switch b := v.(type) {
	case nil:
		return def
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case json.Number:
		f, err := b.Float64()
		return err != nil || f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no", "":
			return false
		}
		return true
	default:
		return true
	}
}

// Required lists the fields a flashcard cannot be created without.
var Required = []string{"levelId", "hanzi", "pinyin", "meaningEn", "meaningVi"}

// Missing returns the names of required fields p lacks, in Required order.
func Missing(p Payload) []string {
	values := map[string]string{
		"levelId":   p.LevelID,
		"hanzi":     p.Hanzi,
		"pinyin":    p.Pinyin,
		"meaningEn": p.MeaningEn,
		"meaningVi": p.MeaningVi,
	}
	var missing []string
	for _, f := range Required {
		if values[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Flashcard converts a create payload into a storage row. A missing topic
// falls back to models.DefaultTopicID.
func (p Payload) Flashcard() models.Flashcard {
	topic := p.TopicID
	if topic == "" {
		topic = models.DefaultTopicID
	}
	return models.Flashcard{
		ID:               p.ID,
		TopicID:          topic,
		LevelID:          p.LevelID,
		IsPremium:        p.IsPremium,
		Hanzi:            p.Hanzi,
		Pinyin:           p.Pinyin,
		EnglishPhonetic:  p.EnglishPhonetic,
		ImageURL:         p.ImageURL,
		AudioCN:          p.AudioCN,
		AudioEN:          p.AudioEN,
		AudioVI:          p.AudioVI,
		MeaningEn:        nonEmpty(p.MeaningEn),
		MeaningVi:        nonEmpty(p.MeaningVi),
		ExampleHanzi:     p.ExampleHanzi,
		ExamplePinyin:    p.ExamplePinyin,
		ExampleMeaningVi: p.ExampleMeaningVi,
	}
}

// Merge applies an update payload to an existing row.
//
// Text fields and the image URL overwrite only when the update supplies a
// non-empty value. The premium flag and the three audio URLs overwrite
// whenever their key was present in the raw input, so an explicit false or
// empty value clears them.
func Merge(existing models.Flashcard, upd Payload) models.Flashcard {
	out := existing
	if upd.TopicID != "" {
		out.TopicID = upd.TopicID
	}
	if upd.LevelID != "" {
		out.LevelID = upd.LevelID
	}
	if upd.Hanzi != "" {
		out.Hanzi = upd.Hanzi
	}
	if upd.Pinyin != "" {
		out.Pinyin = upd.Pinyin
	}
	if upd.MeaningEn != "" {
		out.MeaningEn = nonEmpty(upd.MeaningEn)
	}
	if upd.MeaningVi != "" {
		out.MeaningVi = nonEmpty(upd.MeaningVi)
	}
	out.EnglishPhonetic = either(upd.EnglishPhonetic, existing.EnglishPhonetic)
	out.ImageURL = either(upd.ImageURL, existing.ImageURL)
	out.ExampleHanzi = either(upd.ExampleHanzi, existing.ExampleHanzi)
	out.ExamplePinyin = either(upd.ExamplePinyin, existing.ExamplePinyin)
	out.ExampleMeaningVi = either(upd.ExampleMeaningVi, existing.ExampleMeaningVi)

	if upd.PremiumSet {
		out.IsPremium = upd.IsPremium
	}
	if upd.AudioCNSet {
		out.AudioCN = upd.AudioCN
	}
	if upd.AudioENSet {
		out.AudioEN = upd.AudioEN
	}
	if upd.AudioVISet {
		out.AudioVI = upd.AudioVI
	}
	return out
}

func either(v, fallback *string) *string {
	if v != nil {
		return v
	}
	return fallback
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func has(raw map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := raw[k]; ok {
			return true
		}
	}
	return false
}

// str returns the first non-empty value among keys.
func str(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringify(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

func opt(raw map[string]any, keys ...string) *string {
	return nonEmpty(str(raw, keys...))
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int, int64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

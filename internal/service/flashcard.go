// Package service implements the business logic behind the HTTP handlers,
// delegating persistence to repositories and media to external stores.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/media"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/atinyakov/HanziDeck/internal/payload"
	"github.com/atinyakov/HanziDeck/internal/tts"
	"go.uber.org/zap"
)

// DefaultMediaTimeout bounds one media upload or TTS call.
const DefaultMediaTimeout = 60 * time.Second

// FlashcardRepository defines the persistence operations required by the
// flashcard service.
type FlashcardRepository interface {
	Get(ctx context.Context, id string) (*models.Flashcard, error)
	GetByID(ctx context.Context, id string) (*models.FlashcardView, error)
	List(ctx context.Context, q models.FlashcardQuery) (*models.FlashcardPage, error)
	Create(ctx context.Context, f models.Flashcard) (*models.FlashcardView, error)
	Update(ctx context.Context, f models.Flashcard) (*models.FlashcardView, error)
	SetImage(ctx context.Context, id, url string) error
	SetAudio(ctx context.Context, id, url string) error
	Delete(ctx context.Context, id string) error
}

// TopicLookup is the part of topic storage the flashcard flow needs.
type TopicLookup interface {
	Get(ctx context.Context, id string) (*models.Topic, error)
	Ensure(ctx context.Context, id, label string) error
}

// LevelLookup is the part of level storage the flashcard flow needs.
type LevelLookup interface {
	Ensure(ctx context.Context, id, label string) error
}

// Files are the media files attached to a create or update request. Either
// may be nil.
type Files struct {
	Image *media.Upload
	Audio *media.Upload
}

// FlashcardService sequences flashcard writes: normalization, validation,
// reference checks, media resolution and persistence.
type FlashcardService struct {
	cards   FlashcardRepository
	topics  TopicLookup
	levels  LevelLookup
	media   media.Store
	tts     tts.Synthesizer
	timeout time.Duration
	log     *zap.Logger
}

// NewFlashcardService constructs a FlashcardService. synth may be nil, in
// which case no audio is generated. A non-positive timeout means
// DefaultMediaTimeout.
func NewFlashcardService(
	cards FlashcardRepository,
	topics TopicLookup,
	levels LevelLookup,
	store media.Store,
	synth tts.Synthesizer,
	timeout time.Duration,
	log *zap.Logger,
) *FlashcardService {
	if timeout <= 0 {
		timeout = DefaultMediaTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FlashcardService{
		cards:   cards,
		topics:  topics,
		levels:  levels,
		media:   store,
		tts:     synth,
		timeout: timeout,
		log:     log,
	}
}

func (s *FlashcardService) Get(ctx context.Context, id string) (*models.FlashcardView, error) {
	return s.cards.GetByID(ctx, id)
}

func (s *FlashcardService) List(ctx context.Context, q models.FlashcardQuery) (*models.FlashcardPage, error) {
	return s.cards.List(ctx, q)
}

// Delete removes a flashcard. Missing ids are not an error.
func (s *FlashcardService) Delete(ctx context.Context, id string) error {
	return s.cards.Delete(ctx, id)
}

// Create builds a flashcard from raw request fields and attached files.
// Media is uploaded before anything is written; if the write then fails the
// uploaded objects are deleted again. Spooled files are always removed.
func (s *FlashcardService) Create(ctx context.Context, raw map[string]any, files Files) (*models.FlashcardView, error) {
	defer s.release(files)

	p := payload.Normalize(raw, true)
	if missing := payload.Missing(p); len(missing) > 0 {
		return nil, apperr.Validation(missing)
	}
	card := p.Flashcard()

	levelLabel, err := s.checkRefs(ctx, card.TopicID, card.LevelID)
	if err != nil {
		return nil, err
	}

	// Media keys derive from the id, so an upload for a taken id would
	// overwrite the stored card's objects.
	switch _, err := s.cards.Get(ctx, card.ID); {
	case err == nil:
		return nil, apperr.Conflict("Flashcard already exists", nil)
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, fmt.Errorf("check flashcard id: %w", err)
	}

	var fresh []string
	if files.Image != nil {
		url, err := s.uploadFile(ctx, files.Image, imageID(card.ID), s.media.UploadImage)
		if err != nil {
			return nil, err
		}
		card.ImageURL = &url
		fresh = append(fresh, url)
	}

	switch {
	case files.Audio != nil:
		url, err := s.uploadFile(ctx, files.Audio, audioID(card.ID), s.media.UploadAudio)
		if err != nil {
			s.discard(fresh)
			return nil, err
		}
		card.AudioCN = &url
		fresh = append(fresh, url)
	case card.AudioCN == nil && s.tts != nil:
		url, err := s.synthesize(ctx, card.ID, card.Hanzi)
		if err != nil {
			s.discard(fresh)
			return nil, err
		}
		card.AudioCN = &url
		fresh = append(fresh, url)
	}

	view, err := s.persist(ctx, card, levelLabel, s.cards.Create)
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			fresh = s.unreferenced(ctx, card.ID, fresh)
		}
		s.discard(fresh)
		return nil, err
	}
	return view, nil
}

// unreferenced drops the urls still stored on flashcard id. It covers a
// create that lost the race for its id after the upload.
func (s *FlashcardService) unreferenced(ctx context.Context, id string, urls []string) []string {
	existing, err := s.cards.Get(ctx, id)
	if err != nil {
		if !apperr.Is(err, apperr.KindNotFound) {
			s.log.Warn("cannot load conflicting flashcard, keeping media", zap.String("id", id), zap.Error(err))
			return nil
		}
		return urls
	}
	var out []string
	for _, url := range urls {
		if sameURL(existing.ImageURL, url) || sameURL(existing.AudioCN, url) ||
			sameURL(existing.AudioEN, url) || sameURL(existing.AudioVI, url) {
			continue
		}
		out = append(out, url)
	}
	return out
}

// Update merges raw request fields into the stored flashcard id.
//
// Chinese audio is regenerated when a new file is attached, or when the
// request does not set audio itself and either the hanzi changed or the
// card has no audio yet.
func (s *FlashcardService) Update(ctx context.Context, id string, raw map[string]any, files Files) (*models.FlashcardView, error) {
	defer s.release(files)

	existing, err := s.cards.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	upd := payload.Normalize(raw, false)
	card := payload.Merge(*existing, upd)
	card.ID = id

	levelLabel, err := s.checkRefs(ctx, card.TopicID, card.LevelID)
	if err != nil {
		return nil, err
	}

	var fresh []string
	if files.Image != nil {
		url, err := s.uploadFile(ctx, files.Image, imageID(id), s.media.UploadImage)
		if err != nil {
			return nil, err
		}
		card.ImageURL = &url
		if !sameURL(existing.ImageURL, url) {
			fresh = append(fresh, url)
		}
	}

	regenerate := !upd.AudioCNSet && (card.Hanzi != existing.Hanzi || existing.AudioCN == nil)
	switch {
	case files.Audio != nil:
		url, err := s.uploadFile(ctx, files.Audio, audioID(id), s.media.UploadAudio)
		if err != nil {
			s.discard(fresh)
			return nil, err
		}
		card.AudioCN = &url
		if !sameURL(existing.AudioCN, url) {
			fresh = append(fresh, url)
		}
	case regenerate && s.tts != nil:
		url, err := s.synthesize(ctx, id, card.Hanzi)
		if err != nil {
			s.discard(fresh)
			return nil, err
		}
		card.AudioCN = &url
		if !sameURL(existing.AudioCN, url) {
			fresh = append(fresh, url)
		}
	}

	view, err := s.persist(ctx, card, levelLabel, s.cards.Update)
	if err != nil {
		s.discard(fresh)
		return nil, err
	}
	return view, nil
}

// ReplaceImage uploads file as the image of flashcard id.
func (s *FlashcardService) ReplaceImage(ctx context.Context, id string, file *media.Upload) (string, error) {
	defer s.release(Files{Image: file})
	return s.replaceMedia(ctx, id, file, imageID(id), s.media.UploadImage, s.cards.SetImage)
}

// ReplaceAudio uploads file as the Chinese audio of flashcard id.
func (s *FlashcardService) ReplaceAudio(ctx context.Context, id string, file *media.Upload) (string, error) {
	defer s.release(Files{Audio: file})
	return s.replaceMedia(ctx, id, file, audioID(id), s.media.UploadAudio, s.cards.SetAudio)
}

type uploadFunc func(ctx context.Context, publicID string, r io.Reader, contentType string) (string, error)

func (s *FlashcardService) replaceMedia(
	ctx context.Context,
	id string,
	file *media.Upload,
	publicID string,
	upload uploadFunc,
	set func(ctx context.Context, id, url string) error,
) (string, error) {
	if file == nil {
		return "", apperr.Invalid("No file provided")
	}
	if _, err := s.cards.Get(ctx, id); err != nil {
		return "", err
	}
	url, err := s.uploadFile(ctx, file, publicID, upload)
	if err != nil {
		return "", err
	}
	if err := set(ctx, id, url); err != nil {
		return "", err
	}
	return url, nil
}

// checkRefs validates topic and level without writing. It returns the label
// a missing level is created with.
func (s *FlashcardService) checkRefs(ctx context.Context, topicID, levelID string) (string, error) {
	if topicID != models.DefaultTopicID {
		if _, err := s.topics.Get(ctx, topicID); err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				return "", apperr.Reference("Topic not found: %s", topicID)
			}
			return "", fmt.Errorf("check topic: %w", err)
		}
	}
	label, ok := models.LevelLabel(levelID)
	if !ok {
		return "", apperr.Reference("Invalid level: %s", levelID)
	}
	return label, nil
}

func (s *FlashcardService) persist(
	ctx context.Context,
	card models.Flashcard,
	levelLabel string,
	write func(context.Context, models.Flashcard) (*models.FlashcardView, error),
) (*models.FlashcardView, error) {
	if card.TopicID == models.DefaultTopicID {
		if err := s.topics.Ensure(ctx, models.DefaultTopicID, models.DefaultTopicLabel); err != nil {
			return nil, fmt.Errorf("ensure default topic: %w", err)
		}
	}
	if err := s.levels.Ensure(ctx, card.LevelID, levelLabel); err != nil {
		return nil, fmt.Errorf("ensure level: %w", err)
	}
	return write(ctx, card)
}

func (s *FlashcardService) uploadFile(ctx context.Context, file *media.Upload, publicID string, upload uploadFunc) (string, error) {
	f, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var url string
	err = s.bounded(ctx, "Media upload", func(ctx context.Context) error {
		var err error
		url, err = upload(ctx, publicID, f, file.ContentType)
		return err
	})
	return url, err
}

func (s *FlashcardService) synthesize(ctx context.Context, id, text string) (string, error) {
	var audio []byte
	err := s.bounded(ctx, "Text-to-speech", func(ctx context.Context) error {
		var err error
		audio, err = s.tts.Synthesize(ctx, text, tts.Mandarin)
		return err
	})
	if err != nil {
		return "", err
	}

	var url string
	err = s.bounded(ctx, "Media upload", func(ctx context.Context) error {
		var err error
		url, err = s.media.UploadAudio(ctx, audioID(id), bytes.NewReader(audio), tts.ContentType)
		return err
	})
	return url, err
}

// bounded runs fn under the media timeout and classifies its failure as a
// media error.
func (s *FlashcardService) bounded(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%v: %w", err, context.DeadlineExceeded)
	}
	s.log.Warn("media call failed", zap.String("op", op), zap.Error(err))
	return apperr.Media(op, err)
}

// discard deletes media uploaded for a write that did not happen.
func (s *FlashcardService) discard(urls []string) {
	for _, url := range urls {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.media.Delete(ctx, url); err != nil {
			s.log.Warn("failed to delete orphaned media", zap.String("url", url), zap.Error(err))
		}
		cancel()
	}
}

func (s *FlashcardService) release(files Files) {
	for _, u := range []*media.Upload{files.Image, files.Audio} {
		if err := u.Remove(); err != nil {
			s.log.Warn("failed to remove temporary upload", zap.String("path", u.Path), zap.Error(err))
		}
	}
}

func imageID(id string) string { return "flashcard_" + id }

func audioID(id string) string { return "flashcard_audio_" + id }

func sameURL(current *string, url string) bool {
	return current != nil && *current == url
}

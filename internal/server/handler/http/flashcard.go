package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/media"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/atinyakov/HanziDeck/internal/payload"
	"github.com/atinyakov/HanziDeck/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxUploadMemory is the part of a multipart body kept in memory; the rest
// goes to temporary files.
const maxUploadMemory = 32 << 20

// FlashcardService defines the flashcard operations used by the handlers.
type FlashcardService interface {
	Get(ctx context.Context, id string) (*models.FlashcardView, error)
	List(ctx context.Context, q models.FlashcardQuery) (*models.FlashcardPage, error)
	Create(ctx context.Context, raw map[string]any, files service.Files) (*models.FlashcardView, error)
	Update(ctx context.Context, id string, raw map[string]any, files service.Files) (*models.FlashcardView, error)
	Delete(ctx context.Context, id string) error
	ReplaceImage(ctx context.Context, id string, file *media.Upload) (string, error)
	ReplaceAudio(ctx context.Context, id string, file *media.Upload) (string, error)
}

// FacetService lists the topic and level ids shown next to public listings.
type FacetService interface {
	Facets(ctx context.Context) (topicIDs, levelIDs []string, err error)
}

// FlashcardHandler serves the public and admin flashcard endpoints.
type FlashcardHandler struct {
	Flashcards FlashcardService
	Facets     FacetService
	// UploadDir receives spooled multipart files until the request ends.
	UploadDir string
	Log       *zap.Logger
}

// List handles GET /api/admin/flashcards.
func (h *FlashcardHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Flashcards.List(r.Context(), listQuery(r))
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: page.Items, Meta: pageMeta(page)})
}

// PublicList handles GET /api/flashcards. Its meta also lists every topic
// and level id.
func (h *FlashcardHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	page, err := h.Flashcards.List(r.Context(), listQuery(r))
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	meta := pageMeta(page)
	meta.Topics, meta.Levels, err = h.Facets.Facets(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	if meta.Topics == nil {
		meta.Topics = []string{}
	}
	if meta.Levels == nil {
		meta.Levels = []string{}
	}
	writeJSON(w, http.StatusOK, listResponse{Data: page.Items, Meta: meta})
}

func (h *FlashcardHandler) Get(w http.ResponseWriter, r *http.Request) {
	card, err := h.Flashcards.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Create handles a multipart or JSON flashcard create. The response is the
// stored flashcard with status 201.
func (h *FlashcardHandler) Create(w http.ResponseWriter, r *http.Request) {
	raw, files, err := h.readForm(r)
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	card, err := h.Flashcards.Create(r.Context(), raw, files)
	if err != nil {
		writeError(w, r, h.Log, err, raw)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (h *FlashcardHandler) Update(w http.ResponseWriter, r *http.Request) {
	raw, files, err := h.readForm(r)
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	card, err := h.Flashcards.Update(r.Context(), chi.URLParam(r, "id"), raw, files)
	if err != nil {
		writeError(w, r, h.Log, err, raw)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// Delete always answers {success:true} unless storage fails.
func (h *FlashcardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Flashcards.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

func (h *FlashcardHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	file, err := h.singleFile(r, "image")
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	url, err := h.Flashcards.ReplaceImage(r.Context(), chi.URLParam(r, "id"), file)
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": url})
}

func (h *FlashcardHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	file, err := h.singleFile(r, "audio")
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	url, err := h.Flashcards.ReplaceAudio(r.Context(), chi.URLParam(r, "id"), file)
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"audioUrl": url})
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// readForm collects the request fields and spools the image and audio
// files. A JSON body carries fields only.
func (h *FlashcardHandler) readForm(r *http.Request) (map[string]any, service.Files, error) {
	raw := map[string]any{}
	if !isMultipart(r) {
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, service.Files{}, apperr.Invalid("Invalid JSON body")
		}
		return raw, service.Files{}, nil
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, service.Files{}, apperr.Invalid("Invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			raw[k] = v[0]
		}
	}

	var (
		files service.Files
		err   error
	)
	if files.Image, err = h.spool(r, "image"); err != nil {
		return nil, service.Files{}, err
	}
	if files.Audio, err = h.spool(r, "audio"); err != nil {
		_ = files.Image.Remove()
		return nil, service.Files{}, err
	}
	return raw, files, nil
}

func (h *FlashcardHandler) singleFile(r *http.Request, field string) (*media.Upload, error) {
	if !isMultipart(r) {
		return nil, nil
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, apperr.Invalid("Invalid multipart form")
	}
	defer r.MultipartForm.RemoveAll()
	return h.spool(r, field)
}

func (h *FlashcardHandler) spool(r *http.Request, field string) (*media.Upload, error) {
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, nil
	}
	fh := headers[0]
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()
	return media.Spool(h.UploadDir, f, fh.Filename, fh.Header.Get("Content-Type"))
}

func listQuery(r *http.Request) models.FlashcardQuery {
	q := r.URL.Query()
	fq := models.FlashcardQuery{
		Page:          atoi(q.Get("page")),
		PageSize:      atoi(q.Get("pageSize")),
		TopicID:       q.Get("topic"),
		LevelID:       q.Get("level"),
		Keyword:       strings.TrimSpace(q.Get("keyword")),
		OnlyWithImage: payload.ToBool(q.Get("hasImage"), false),
	}
	if v := q.Get("premium"); v != "" {
		premium := payload.ToBool(v, false)
		fq.Premium = &premium
	}
	return fq
}

func pageMeta(p *models.FlashcardPage) listMeta {
	return listMeta{Page: p.Page, PageSize: p.PageSize, Total: p.Total, TotalPages: p.TotalPages}
}

// atoi parses a query number; anything unparsable counts as absent.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

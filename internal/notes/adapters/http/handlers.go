package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notecache/internal/notes/app"
	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/api"
	"notecache/pkg/logger"
)

// Константы ошибок и сообщений для логирования.
const (
	LogHandlerCreateNote  = "handling create note request"
	LogHandlerGetNote     = "handling get note request"
	LogHandlerListNotes   = "handling list notes request"
	LogHandlerCountNotes  = "handling count notes request"
	LogHandlerSearchNotes = "handling search notes request"
	LogHandlerUpdateNote  = "handling update note request"
	LogHandlerDeleteNote  = "handling delete note request"

	ErrMsgInvalidRequestBody = "invalid request body"
	ErrMsgInvalidQuery       = "invalid query parameter"
	ErrMsgNoteNotFound       = "note not found"
	ErrMsgUnauthorized       = "unauthorized"
)

// Параметры страницы по умолчанию.
const (
	DefaultLimit  = 20
	DefaultOffset = 0
)

// Handler обработчик HTTP-запросов для работы с заметками.
type Handler struct {
	notes api.NoteService
}

// NewHandler создает новый экземпляр обработчика заметок.
func NewHandler(notes api.NoteService) *Handler {
	return &Handler{notes: notes}
}

// CreateNote обрабатывает POST /notes.
func (h *Handler) CreateNote(c fiber.Ctx) error {
	ctx := requestContext(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.CreateNote"))
	log.Debug(ctx, LogHandlerCreateNote)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	var req entities.NoteInput
	if err := c.Bind().Body(&req); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, ErrMsgInvalidRequestBody)
	}

	note, err := h.notes.Create(ctx, ownerID, req)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// GetNote обрабатывает GET /notes/:note_id.
func (h *Handler) GetNote(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).With(zap.String("handler", "Handler.GetNote")).Debug(ctx, LogHandlerGetNote)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	note, err := h.notes.Get(ctx, ownerID, c.Params("note_id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(note)
}

// ListNotes обрабатывает GET /notes и возвращает массив заметок.
func (h *Handler) ListNotes(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).With(zap.String("handler", "Handler.ListNotes")).Debug(ctx, LogHandlerListNotes)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	includeDeleted, err := boolQuery(c, "include_deleted")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}
	limit, offset, err := pageQuery(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	notes, err := h.notes.List(ctx, ownerID, api.ListParams{IncludeDeleted: includeDeleted, Limit: limit, Offset: offset})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(notes)
}

// CountNotes обрабатывает GET /notes/count.
func (h *Handler) CountNotes(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).With(zap.String("handler", "Handler.CountNotes")).Debug(ctx, LogHandlerCountNotes)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	includeDeleted, err := boolQuery(c, "include_deleted")
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	n, err := h.notes.Count(ctx, ownerID, includeDeleted)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// SearchNotes обрабатывает GET /notes/search?q=.
func (h *Handler) SearchNotes(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).With(zap.String("handler", "Handler.SearchNotes")).Debug(ctx, LogHandlerSearchNotes)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	limit, offset, err := pageQuery(c)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, err.Error())
	}

	notes, err := h.notes.Search(ctx, ownerID, api.SearchParams{Query: c.Query("q"), Limit: limit, Offset: offset})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(notes)
}

// UpdateNote обрабатывает PUT и PATCH /notes/:note_id. Оба метода обновляют частично.
func (h *Handler) UpdateNote(c fiber.Ctx) error {
	ctx := requestContext(c)
	log := logger.Log(ctx).With(zap.String("handler", "Handler.UpdateNote"))
	log.Debug(ctx, LogHandlerUpdateNote)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	var patch entities.NotePatch
	if err := c.Bind().Body(&patch); err != nil {
		log.Debug(ctx, ErrMsgInvalidRequestBody, zap.Error(err))
		return respondError(c, fiber.StatusBadRequest, ErrMsgInvalidRequestBody)
	}

	note, err := h.notes.Update(ctx, ownerID, c.Params("note_id"), patch)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(note)
}

// DeleteNote обрабатывает DELETE /notes/:note_id.
func (h *Handler) DeleteNote(c fiber.Ctx) error {
	ctx := requestContext(c)
	logger.Log(ctx).With(zap.String("handler", "Handler.DeleteNote")).Debug(ctx, LogHandlerDeleteNote)

	ownerID, ok := ownerFrom(c)
	if !ok {
		return respondError(c, fiber.StatusUnauthorized, ErrMsgUnauthorized)
	}

	if err := h.notes.Delete(ctx, ownerID, c.Params("note_id")); err != nil {
		return handleError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func ownerFrom(c fiber.Ctx) (string, bool) {
	ownerID, ok := c.Locals(LocalOwnerID).(string)
	return ownerID, ok && ownerID != ""
}

func boolQuery(c fiber.Ctx, key string) (bool, error) {
	raw := c.Query(key, "false")
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %s", ErrMsgInvalidQuery, key)
	}
	return v, nil
}

func pageQuery(c fiber.Ctx) (int, int, error) {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: limit", ErrMsgInvalidQuery)
	}
	offset, err := strconv.Atoi(c.Query("offset", strconv.Itoa(DefaultOffset)))
	if err != nil {
		return 0, 0, fmt.Errorf("%s: offset", ErrMsgInvalidQuery)
	}
	return limit, offset, nil
}

// handleError отображает ошибки бизнес-логики на HTTP-статусы.
func handleError(c fiber.Ctx, err error) error {
	ctx := requestContext(c)
	switch {
	case errors.Is(err, app.ErrNotFound):
		return respondError(c, fiber.StatusNotFound, ErrMsgNoteNotFound)
	case errors.Is(err, app.ErrInvalidParams):
		return respondError(c, fiber.StatusBadRequest, err.Error())
	default:
		logger.Log(ctx).Error(ctx, ErrorInternal, zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, ErrorInternal)
	}
}

func respondError(c fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// Package app implements application business logic for the notes service.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/api"
	"notecache/internal/notes/ports/cache"
	"notecache/internal/notes/ports/repositories"
	"notecache/pkg/logger"
)

// Ошибки уровня бизнес-логики.
var (
	ErrNotFound      = errors.New("note not found")
	ErrInvalidParams = errors.New("invalid parameters")
)

// Константы для логирования.
const (
	LogCacheDegraded   = "cache operation failed, continuing without cache"
	LogCacheHit        = "cache hit"
	LogCacheMiss       = "cache miss"
	LogListInvalidated = "note lists invalidated"

	ErrorFailedToCreateNote = "failed to create note"
	ErrorFailedToGetNote    = "failed to get note"
	ErrorFailedToUpdateNote = "failed to update note"
	ErrorFailedToDeleteNote = "failed to delete note"
	ErrorFailedToCountNotes = "failed to count notes"
	ErrorFailedToSearch     = "failed to search notes"
	ErrorFailedToGenerateID = "failed to generate note id"
)

// CacheMetrics учитывает попадания, промахи и сбои кэша.
type CacheMetrics interface {
	Hit(family string)
	Miss(family string)
	Failure(op string)
}

type noopMetrics struct{}

func (noopMetrics) Hit(string)     {}
func (noopMetrics) Miss(string)    {}
func (noopMetrics) Failure(string) {}

// Option настраивает NoteUseCase.
type Option func(*NoteUseCase)

// WithMetrics подключает учет метрик кэша.
func WithMetrics(m CacheMetrics) Option {
	return func(uc *NoteUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// WithPaginator подменяет стратегию пагинации.
func WithPaginator(p Paginator) Option {
	return func(uc *NoteUseCase) {
		if p != nil {
			uc.paginator = p
		}
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(uc *NoteUseCase) {
		if now != nil {
			uc.now = now
		}
	}
}

// NoteUseCase представляет собой бизнес-логику работы с заметками:
// чтение через кэш, инвалидацию при записи и обслуживание счетчиков.
type NoteUseCase struct {
	store     repositories.NoteStore
	cache     *NoteCache
	counters  *Counters
	paginator Paginator
	validate  *validator.Validate
	metrics   CacheMetrics
	now       func() time.Time
}

var _ api.NoteService = (*NoteUseCase)(nil)

// NewNoteUseCase создает новый экземпляр NoteUseCase.
func NewNoteUseCase(store repositories.NoteStore, backend cache.Cache, ttl time.Duration, opts ...Option) *NoteUseCase {
	noteCache := NewNoteCache(backend, ttl)
	uc := &NoteUseCase{
		store:     store,
		cache:     noteCache,
		counters:  NewCounters(noteCache),
		paginator: NewSortSlicePaginator(store),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   noopMetrics{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Create сохраняет новую заметку и обновляет кэш.
func (uc *NoteUseCase) Create(ctx context.Context, ownerID string, in entities.NoteInput) (*entities.Note, error) {
	if err := uc.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorFailedToGenerateID, err)
	}

	note, err := uc.store.Create(ctx, entities.NewNote(id.String(), ownerID, in, uc.now()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorFailedToCreateNote, err)
	}

	uc.degrade(ctx, uc.cache.SetNote(ctx, note))
	uc.invalidateAndCount(ctx, ownerID, uc.counters.NoteCreated)

	return note, nil
}

// Get возвращает заметку владельца.
func (uc *NoteUseCase) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	cached, ok, err := uc.cache.GetNote(ctx, ownerID, noteID)
	if uc.observe(ctx, FamilyNote, ok, err) {
		return cached, nil
	}

	note, err := uc.store.Get(ctx, ownerID, noteID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorFailedToGetNote, err)
	}
	if note == nil {
		return nil, ErrNotFound
	}

	uc.degrade(ctx, uc.cache.SetNote(ctx, note))
	return note, nil
}

// List возвращает страницу заметок, упорядоченную по updated_at по убыванию.
func (uc *NoteUseCase) List(ctx context.Context, ownerID string, params api.ListParams) ([]*entities.Note, error) {
	if err := uc.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	cached, ok, err := uc.cache.GetList(ctx, ownerID, params.IncludeDeleted, params.Limit, params.Offset)
	if uc.observe(ctx, FamilyList, ok, err) {
		return cached, nil
	}

	notes, err := uc.paginator.Page(ctx, ownerID, activeFilter(params.IncludeDeleted), params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}

	uc.degrade(ctx, uc.cache.SetList(ctx, ownerID, params.IncludeDeleted, params.Limit, params.Offset, notes))
	return notes, nil
}

// Update применяет переданные поля к заметке. Флаг удаления не изменяется.
func (uc *NoteUseCase) Update(ctx context.Context, ownerID, noteID string, patch entities.NotePatch) (*entities.Note, error) {
	if err := uc.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	if err := uc.ensureExists(ctx, ownerID, noteID); err != nil {
		return nil, err
	}

	note, err := uc.store.Update(ctx, ownerID, noteID, repositories.NoteChanges{
		Title:     patch.Title,
		Content:   patch.Content,
		Format:    patch.Format,
		Color:     patch.Color,
		IsPinned:  patch.IsPinned,
		UpdatedAt: uc.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorFailedToUpdateNote, err)
	}
	if note == nil {
		return nil, ErrNotFound
	}

	uc.degrade(ctx, uc.cache.SetNote(ctx, note))
	uc.invalidateLists(ctx, ownerID)

	return note, nil
}

// Delete мягко удаляет заметку. Повторное удаление не является ошибкой.
func (uc *NoteUseCase) Delete(ctx context.Context, ownerID, noteID string) error {
	if err := uc.ensureExists(ctx, ownerID, noteID); err != nil {
		return err
	}

	deleted := true
	note, err := uc.store.Update(ctx, ownerID, noteID, repositories.NoteChanges{
		IsDeleted: &deleted,
		UpdatedAt: uc.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToDeleteNote, err)
	}
	if note == nil {
		return ErrNotFound
	}

	uc.degrade(ctx, uc.cache.DeleteNote(ctx, ownerID, noteID))
	uc.invalidateAndCount(ctx, ownerID, uc.counters.NoteDeleted)

	return nil
}

// Count возвращает число заметок владельца.
func (uc *NoteUseCase) Count(ctx context.Context, ownerID string, includeDeleted bool) (int64, error) {
	cached, ok, err := uc.cache.GetCount(ctx, ownerID, includeDeleted)
	if uc.observe(ctx, FamilyCount, ok, err) {
		return cached, nil
	}

	notes, err := uc.store.Query(ctx, ownerID, activeFilter(includeDeleted), repositories.QueryOptions{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrorFailedToCountNotes, err)
	}
	n := int64(len(notes))

	uc.degrade(ctx, uc.cache.SetCount(ctx, ownerID, includeDeleted, n))
	return n, nil
}

// Search ищет подстроку в заголовке и тексте неудаленных заметок без учета регистра.
// Результаты не кэшируются.
func (uc *NoteUseCase) Search(ctx context.Context, ownerID string, params api.SearchParams) ([]*entities.Note, error) {
	if err := uc.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}

	notes, err := uc.store.Query(ctx, ownerID, activeFilter(false), repositories.QueryOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrorFailedToSearch, err)
	}

	q := strings.ToLower(params.Query)
	matched := make([]*entities.Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
			matched = append(matched, n)
		}
	}

	return paginate(matched, params.Limit, params.Offset), nil
}

func (uc *NoteUseCase) ensureExists(ctx context.Context, ownerID, noteID string) error {
	note, err := uc.store.Get(ctx, ownerID, noteID)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToGetNote, err)
	}
	if note == nil {
		return ErrNotFound
	}
	return nil
}

// invalidateAndCount параллельно сбрасывает списки владельца и сдвигает счетчики.
func (uc *NoteUseCase) invalidateAndCount(ctx context.Context, ownerID string, adjust func(context.Context, string) error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		uc.invalidateLists(gctx, ownerID)
		return nil
	})
	g.Go(func() error {
		uc.degrade(gctx, adjust(gctx, ownerID))
		return nil
	})
	_ = g.Wait()
}

func (uc *NoteUseCase) invalidateLists(ctx context.Context, ownerID string) {
	n, err := uc.cache.InvalidateLists(ctx, ownerID)
	if err != nil {
		uc.degrade(ctx, err)
		return
	}
	logger.Log(ctx).Debug(ctx, LogListInvalidated, zap.String("owner_id", ownerID), zap.Int64("deleted", n))
}

// observe учитывает результат чтения из кэша и сообщает, можно ли использовать значение.
func (uc *NoteUseCase) observe(ctx context.Context, family string, ok bool, err error) bool {
	if err != nil {
		uc.degrade(ctx, err)
	}
	if ok {
		uc.metrics.Hit(family)
		logger.Log(ctx).Debug(ctx, LogCacheHit, zap.String("family", family))
		return true
	}
	uc.metrics.Miss(family)
	logger.Log(ctx).Debug(ctx, LogCacheMiss, zap.String("family", family))
	return false
}

// degrade превращает сбой кэша в предупреждение в логе.
func (uc *NoteUseCase) degrade(ctx context.Context, err error) {
	if err == nil {
		return
	}
	op := "unknown"
	var cacheErr *CacheError
	if errors.As(err, &cacheErr) {
		op = cacheErr.Op
	}
	uc.metrics.Failure(op)
	logger.Log(ctx).Warn(ctx, LogCacheDegraded, zap.String("op", op), zap.Error(err))
}

func activeFilter(includeDeleted bool) []repositories.Filter {
	if includeDeleted {
		return nil
	}
	return []repositories.Filter{{Field: repositories.FieldIsDeleted, Op: repositories.OpEqual, Value: false}}
}

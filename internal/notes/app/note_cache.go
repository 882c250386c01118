package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"notecache/internal/notes/domain/entities"
	"notecache/internal/notes/ports/cache"
)

// Операции кэша, попадающие в CacheError.
const (
	OpGet            = "get"
	OpSet            = "set"
	OpDelete         = "delete"
	OpDeleteByPrefix = "delete_by_prefix"
	OpIncrement      = "increment"
	OpEncode         = "encode"
	OpDecode         = "decode"
)

// Семейства ключей кэша.
const (
	FamilyNote  = "note"
	FamilyList  = "list"
	FamilyCount = "count"
)

// keyPartEscaper экранирует разделитель ключа внутри идентификаторов.
var keyPartEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`)

func keyPart(id string) string {
	return keyPartEscaper.Replace(id)
}

// NoteKey возвращает ключ заметки владельца.
func NoteKey(noteID, ownerID string) string {
	return fmt.Sprintf("note:%s:user:%s", keyPart(noteID), keyPart(ownerID))
}

// ListKey возвращает ключ страницы списка.
func ListKey(ownerID string, includeDeleted bool, limit, offset int) string {
	return fmt.Sprintf("%sdeleted:%t:limit:%d:offset:%d", ListPrefix(ownerID), includeDeleted, limit, offset)
}

// CountKey возвращает ключ счетчика заметок.
func CountKey(ownerID string, includeDeleted bool) string {
	return fmt.Sprintf("notes_count:user:%s:deleted:%t", keyPart(ownerID), includeDeleted)
}

// ListPrefix покрывает все ключи списков владельца и только их.
func ListPrefix(ownerID string) string {
	return fmt.Sprintf("notes:user:%s:", keyPart(ownerID))
}

// CacheError - ошибка операции кэша. Репозиторий понижает ее до промаха или no-op.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// NoteCache - типизированный слой над cache.Cache.
type NoteCache struct {
	backend cache.Cache
	ttl     time.Duration
}

// NewNoteCache создает слой кэша с TTL по умолчанию.
func NewNoteCache(backend cache.Cache, ttl time.Duration) *NoteCache {
	return &NoteCache{backend: backend, ttl: ttl}
}

// Get возвращает значение по ключу; отсутствие не является ошибкой.
func (c *NoteCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		return "", false, &CacheError{Op: OpGet, Key: key, Err: err}
	}
	return v, ok, nil
}

// Set записывает значение с TTL по умолчанию.
func (c *NoteCache) Set(ctx context.Context, key, value string) error {
	if err := c.backend.Set(ctx, key, value, c.ttl); err != nil {
		return &CacheError{Op: OpSet, Key: key, Err: err}
	}
	return nil
}

// Delete удаляет ключ.
func (c *NoteCache) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil {
		return &CacheError{Op: OpDelete, Key: key, Err: err}
	}
	return nil
}

// DeleteByPrefix удаляет все ключи с префиксом.
func (c *NoteCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	n, err := c.backend.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return n, &CacheError{Op: OpDeleteByPrefix, Key: prefix, Err: err}
	}
	return n, nil
}

// Increment прибавляет delta и обновляет TTL; отсутствующий ключ становится равным delta.
func (c *NoteCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	v, err := c.backend.IncrBy(ctx, key, delta, c.ttl)
	if err != nil {
		return 0, &CacheError{Op: OpIncrement, Key: key, Err: err}
	}
	return v, nil
}

// GetNote читает заметку из кэша.
func (c *NoteCache) GetNote(ctx context.Context, ownerID, noteID string) (*entities.Note, bool, error) {
	key := NoteKey(noteID, ownerID)
	var note entities.Note
	ok, err := c.getJSON(ctx, key, &note)
	if !ok || err != nil {
		return nil, false, err
	}
	return &note, true, nil
}

// SetNote кладет заметку в кэш.
func (c *NoteCache) SetNote(ctx context.Context, note *entities.Note) error {
	return c.setJSON(ctx, NoteKey(note.ID, note.UserID), note)
}

// DeleteNote удаляет заметку из кэша.
func (c *NoteCache) DeleteNote(ctx context.Context, ownerID, noteID string) error {
	return c.Delete(ctx, NoteKey(noteID, ownerID))
}

// GetList читает страницу списка. Пустая страница является попаданием.
func (c *NoteCache) GetList(ctx context.Context, ownerID string, includeDeleted bool, limit, offset int) ([]*entities.Note, bool, error) {
	key := ListKey(ownerID, includeDeleted, limit, offset)
	var notes []*entities.Note
	ok, err := c.getJSON(ctx, key, &notes)
	if !ok || err != nil {
		return nil, false, err
	}
	if notes == nil {
		notes = []*entities.Note{}
	}
	return notes, true, nil
}

// SetList кладет страницу списка в кэш.
func (c *NoteCache) SetList(ctx context.Context, ownerID string, includeDeleted bool, limit, offset int, notes []*entities.Note) error {
	if notes == nil {
		notes = []*entities.Note{}
	}
	return c.setJSON(ctx, ListKey(ownerID, includeDeleted, limit, offset), notes)
}

// InvalidateLists удаляет все закэшированные страницы владельца.
func (c *NoteCache) InvalidateLists(ctx context.Context, ownerID string) (int64, error) {
	return c.DeleteByPrefix(ctx, ListPrefix(ownerID))
}

// GetCount читает счетчик. Ноль является попаданием.
func (c *NoteCache) GetCount(ctx context.Context, ownerID string, includeDeleted bool) (int64, bool, error) {
	key := CountKey(ownerID, includeDeleted)
	raw, ok, err := c.Get(ctx, key)
	if !ok || err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, &CacheError{Op: OpDecode, Key: key, Err: err}
	}
	return n, true, nil
}

// SetCount кладет счетчик в кэш десятичной строкой, чтобы к нему применялся INCRBY.
func (c *NoteCache) SetCount(ctx context.Context, ownerID string, includeDeleted bool, n int64) error {
	return c.Set(ctx, CountKey(ownerID, includeDeleted), strconv.FormatInt(n, 10))
}

// IncrementCount сдвигает уже закэшированный счетчик без сверки с хранилищем.
// Без базового значения счетчик не создается: его восстановит следующий Count.
func (c *NoteCache) IncrementCount(ctx context.Context, ownerID string, includeDeleted bool, delta int64) (int64, bool, error) {
	key := CountKey(ownerID, includeDeleted)
	v, ok, err := c.backend.IncrByIfExists(ctx, key, delta, c.ttl)
	if err != nil {
		return 0, false, &CacheError{Op: OpIncrement, Key: key, Err: err}
	}
	return v, ok, nil
}

func (c *NoteCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if !ok || err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, &CacheError{Op: OpDecode, Key: key, Err: err}
	}
	return true, nil
}

func (c *NoteCache) setJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &CacheError{Op: OpEncode, Key: key, Err: err}
	}
	return c.Set(ctx, key, string(data))
}

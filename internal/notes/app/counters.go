package app

import (
	"context"
	"errors"
)

// Counters поддерживает приблизительные счетчики заметок, живущие только в кэше.
// Сдвиги применяются только к счетчикам с базовым значением; отсутствующий счетчик
// пересчитывается из хранилища при следующем Count.
type Counters struct {
	cache *NoteCache
}

// NewCounters создает обслуживание счетчиков.
func NewCounters(c *NoteCache) *Counters {
	return &Counters{cache: c}
}

// NoteCreated учитывает новую активную заметку.
func (c *Counters) NoteCreated(ctx context.Context, ownerID string) error {
	_, _, err := c.cache.IncrementCount(ctx, ownerID, false, 1)
	return err
}

// NoteDeleted учитывает мягкое удаление: активных -1, счетчик с удаленными +1.
// Повторное удаление применяется повторно.
func (c *Counters) NoteDeleted(ctx context.Context, ownerID string) error {
	_, _, errActive := c.cache.IncrementCount(ctx, ownerID, false, -1)
	_, _, errDeleted := c.cache.IncrementCount(ctx, ownerID, true, 1)
	return errors.Join(errActive, errDeleted)
}

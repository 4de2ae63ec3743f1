package storage

import (
	"context"
	"errors"
)

// ErrSlotNotFound возвращается, когда в слоте ничего не сохранено
var ErrSlotNotFound = errors.New("storage: слот пуст")

// SlotStore хранилище документов по фиксированному ключу (аналог localStorage)
type SlotStore interface {
	// Put записывает данные в слот, заменяя прежние
	Put(ctx context.Context, key string, value []byte) error

	// Get читает данные слота или возвращает ErrSlotNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete очищает слот
	Delete(ctx context.Context, key string) error
}

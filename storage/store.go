// Package storage holds the order persistence backends and the fallback chain
// that routes every call to the first available one.
package storage

import (
	"context"
	"errors"

	"github.com/yeremiapane/fnb-kiosk/models"
)

var (
	ErrNotFound    = errors.New("order not found")
	ErrDuplicateID = errors.New("order id already exists")
	ErrUnavailable = errors.New("storage backend unavailable")
)

// OrderStore is the contract every backend implements. Implementations return
// ErrNotFound for unknown ids and ErrDuplicateID when Save hits an existing id.
// Any other error is treated by the Chain as the backend being down.
type OrderStore interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	MarkUnavailable(err error)

	Save(ctx context.Context, order *models.Order) error
	Find(ctx context.Context, orderID string) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, orderID string) error
	List(ctx context.Context) ([]models.Order, error)
	Clear(ctx context.Context) (int64, error)
}

// Volatile is implemented by backends that lose data on restart.
type Volatile interface {
	Volatile() bool
}

// Closer is implemented by backends holding connections.
type Closer interface {
	Close(ctx context.Context) error
}

func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicateID)
}

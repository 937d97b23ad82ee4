package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const DefaultTimeout = 3 * time.Second

// BackendStatus is one row of the /health backend report.
type BackendStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Volatile  bool   `json:"volatile"`
}

// ChainStatus describes which backend currently serves requests.
type ChainStatus struct {
	Active   string          `json:"active"`
	Volatile bool            `json:"volatile"`
	Backends []BackendStatus `json:"backends"`
}

// Chain routes every operation to the first backend whose IsAvailable is true,
// re-evaluated per call. A backend failure marks that backend down; the failing
// call is not retried elsewhere, the next call goes to the next backend.
//
// Orders written to a fallback stay there. When a higher backend comes back it
// serves its own data only; no reconciliation happens.
type Chain struct {
	stores  []OrderStore
	timeout time.Duration

	mu       sync.Mutex
	active   string
	onSwitch func(from, to string)
}

func NewChain(timeout time.Duration, stores ...OrderStore) *Chain {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Chain{stores: stores, timeout: timeout}
}

// OnSwitch registers fn to run whenever the serving backend changes. The first
// selection reports from as "".
func (c *Chain) OnSwitch(fn func(from, to string)) {
	c.mu.Lock()
	c.onSwitch = fn
	c.mu.Unlock()
}

// Active returns the backend that would serve a call right now, or nil when
// every backend is down.
func (c *Chain) Active(ctx context.Context) OrderStore {
	for _, s := range c.stores {
		if c.available(ctx, s) {
			c.noteActive(s.Name())
			return s
		}
	}
	c.noteActive("")
	return nil
}

// available bounds a backend's re-probe by the per-call timeout, so a dead
// host counts as down instead of stalling the request.
func (c *Chain) available(ctx context.Context, s OrderStore) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return s.IsAvailable(ctx)
}

func (c *Chain) noteActive(name string) {
	c.mu.Lock()
	from := c.active
	if from == name {
		c.mu.Unlock()
		return
	}
	c.active = name
	fn := c.onSwitch
	c.mu.Unlock()

	if from != "" {
		utils.InfoLogger.WithFields(logrus.Fields{"from": from, "to": name}).Warn("Storage backend switched")
	}
	if fn != nil {
		fn(from, name)
	}
}

func (c *Chain) ActiveName(ctx context.Context) string {
	if s := c.Active(ctx); s != nil {
		return s.Name()
	}
	return "none"
}

func (c *Chain) Status(ctx context.Context) ChainStatus {
	st := ChainStatus{Active: "none", Backends: make([]BackendStatus, 0, len(c.stores))}
	found := false
	for _, s := range c.stores {
		b := BackendStatus{Name: s.Name(), Available: c.available(ctx, s), Volatile: isVolatile(s)}
		if b.Available && !found {
			found = true
			st.Active = b.Name
			st.Volatile = b.Volatile
			c.noteActive(b.Name)
		}
		st.Backends = append(st.Backends, b)
	}
	return st
}

func isVolatile(s OrderStore) bool {
	v, ok := s.(Volatile)
	return ok && v.Volatile()
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) IsAvailable(ctx context.Context) bool { return c.Active(ctx) != nil }

func (c *Chain) MarkUnavailable(error) {}

// do runs fn against the active backend with the per-call timeout and decides
// whether a failure takes that backend out of rotation.
func (c *Chain) do(ctx context.Context, fn func(ctx context.Context, s OrderStore) error) error {
	store := c.Active(ctx)
	if store == nil {
		return ErrUnavailable
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := fn(callCtx, store)
	if err == nil || isDomainError(err) {
		return err
	}

	// the client went away; the backend did nothing wrong
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", store.Name(), err)
	}

	store.MarkUnavailable(err)
	utils.ErrorLogger.WithFields(logrus.Fields{
		"backend": store.Name(),
		"timeout": errors.Is(err, context.DeadlineExceeded),
	}).Errorf("Storage backend failed, marking unavailable: %v", err)
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, store.Name(), err)
}

func (c *Chain) Save(ctx context.Context, order *models.Order) error {
	return c.do(ctx, func(ctx context.Context, s OrderStore) error {
		return s.Save(ctx, order)
	})
}

func (c *Chain) Find(ctx context.Context, orderID string) (*models.Order, error) {
	var order *models.Order
	err := c.do(ctx, func(ctx context.Context, s OrderStore) error {
		var err error
		order, err = s.Find(ctx, orderID)
		return err
	})
	return order, err
}

func (c *Chain) Update(ctx context.Context, order *models.Order) error {
	return c.do(ctx, func(ctx context.Context, s OrderStore) error {
		return s.Update(ctx, order)
	})
}

func (c *Chain) Delete(ctx context.Context, orderID string) error {
	return c.do(ctx, func(ctx context.Context, s OrderStore) error {
		return s.Delete(ctx, orderID)
	})
}

func (c *Chain) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, func(ctx context.Context, s OrderStore) error {
		var err error
		orders, err = s.List(ctx)
		return err
	})
	return orders, err
}

func (c *Chain) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := c.do(ctx, func(ctx context.Context, s OrderStore) error {
		var err error
		n, err = s.Clear(ctx)
		return err
	})
	return n, err
}

// Close closes every backend that holds connections.
func (c *Chain) Close(ctx context.Context) error {
	var errs []error
	for _, s := range c.stores {
		if cl, ok := s.(Closer); ok {
			if err := cl.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yeremiapane/fnb-kiosk/models"
)

// fileDocument is the on-disk layout: {"orders": [...]}.
type fileDocument struct {
	Orders []models.Order `json:"orders"`
}

// FileStore keeps all orders in one JSON document. Every mutation reads the
// whole document, changes it in memory and writes it back, so writes are O(n).
// The write goes to a temp file first and is renamed over the old one.
type FileStore struct {
	path  string
	mu    sync.Mutex
	avail *availability
}

func NewFileStore(path string, probeInterval time.Duration) *FileStore {
	s := &FileStore{path: path}
	s.avail = newAvailability(probeInterval, s.ping)
	return s
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) IsAvailable(ctx context.Context) bool { return s.avail.check(ctx) }

func (s *FileStore) MarkUnavailable(err error) { s.avail.markDown(err) }

// Probe checks the data directory once; used at startup.
func (s *FileStore) Probe(ctx context.Context) error { return s.avail.probe(ctx) }

func (s *FileStore) ping(context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("data dir not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *FileStore) load() (*fileDocument, error) {
	doc := &fileDocument{}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return doc, nil
}

func (s *FileStore) persist(doc *fileDocument) error {
	if doc.Orders == nil {
		doc.Orders = []models.Order{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// mutate runs fn on the loaded document and writes the result back when fn
// succeeds. ctx is checked before the write so an aborted request leaves the
// file untouched.
func (s *FileStore) mutate(ctx context.Context, fn func(doc *fileDocument) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.persist(doc)
}

func indexIn(orders []models.Order, orderID string) int {
	for i := range orders {
		if orders[i].OrderID == orderID {
			return i
		}
	}
	return -1
}

func (s *FileStore) Save(ctx context.Context, order *models.Order) error {
	return s.mutate(ctx, func(doc *fileDocument) error {
		if indexIn(doc.Orders, order.OrderID) >= 0 {
			return ErrDuplicateID
		}
		doc.Orders = append(doc.Orders, *order.Clone())
		return nil
	})
}

func (s *FileStore) Find(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	i := indexIn(doc.Orders, orderID)
	if i < 0 {
		return nil, ErrNotFound
	}
	return &doc.Orders[i], nil
}

func (s *FileStore) Update(ctx context.Context, order *models.Order) error {
	return s.mutate(ctx, func(doc *fileDocument) error {
		i := indexIn(doc.Orders, order.OrderID)
		if i < 0 {
			return ErrNotFound
		}
		doc.Orders[i] = *order.Clone()
		return nil
	})
}

func (s *FileStore) Delete(ctx context.Context, orderID string) error {
	return s.mutate(ctx, func(doc *fileDocument) error {
		i := indexIn(doc.Orders, orderID)
		if i < 0 {
			return ErrNotFound
		}
		doc.Orders = append(doc.Orders[:i], doc.Orders[i+1:]...)
		return nil
	})
}

func (s *FileStore) List(context.Context) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Orders, nil
}

func (s *FileStore) Clear(ctx context.Context) (int64, error) {
	var n int64
	err := s.mutate(ctx, func(doc *fileDocument) error {
		n = int64(len(doc.Orders))
		doc.Orders = nil
		return nil
	})
	return n, err
}

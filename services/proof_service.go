package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/events"
	"github.com/yeremiapane/fnb-kiosk/metrics"
	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const (
	DefaultCleanupDelay = 5 * time.Second
	VerifiedMethod      = "qr_verified"
)

var allowedImageExt = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// ProofImage is an uploaded screenshot.
type ProofImage struct {
	Filename string
	Content  io.Reader
}

// ProofService keeps payment proofs in process memory and stores their images
// under the upload directory.
type ProofService struct {
	orders       *OrderService
	scheduler    *Scheduler
	uploadDir    string
	cleanupDelay time.Duration
	events       events.Publisher
	metrics      *metrics.Metrics
	now          func() time.Time

	mu     sync.RWMutex
	proofs map[string]*models.PaymentProof
}

type ProofConfig struct {
	UploadDir    string
	CleanupDelay time.Duration
}

func NewProofService(orders *OrderService, scheduler *Scheduler, cfg ProofConfig, pub events.Publisher, m *metrics.Metrics) *ProofService {
	if cfg.CleanupDelay <= 0 {
		cfg.CleanupDelay = DefaultCleanupDelay
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &ProofService{
		orders:       orders,
		scheduler:    scheduler,
		uploadDir:    cfg.UploadDir,
		cleanupDelay: cfg.CleanupDelay,
		events:       pub,
		metrics:      m,
		now:          time.Now,
		proofs:       make(map[string]*models.PaymentProof),
	}
}

func cleanupKey(proofID string) string { return "proof-image:" + proofID }

func (s *ProofService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		utils.ErrorLogger.WithField("event", e.Type).Warnf("Failed to publish event: %v", err)
	}
}

func (s *ProofService) saveImage(proofID string, img *ProofImage) (string, error) {
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if !allowedImageExt[ext] {
		return "", invalid("image", "unsupported image type %q", ext)
	}
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(s.uploadDir, proofID+ext)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, img.Content); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close image file: %w", err)
	}
	return path, nil
}

// Submit records a proof for an existing order. At least one of reference and
// image is required.
func (s *ProofService) Submit(ctx context.Context, orderID, reference string, img *ProofImage) (*models.PaymentProof, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" && img == nil {
		return nil, invalid("reference", "payment reference or image is required")
	}
	if _, err := s.orders.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}

	proof := &models.PaymentProof{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Reference: reference,
		Status:    models.ProofPending,
		CreatedAt: s.now(),
	}
	if img != nil {
		path, err := s.saveImage(proof.ID, img)
		if err != nil {
			return nil, err
		}
		proof.ImagePath = path
	}

	s.mu.Lock()
	s.proofs[proof.ID] = proof
	out := *proof
	s.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{"proofId": proof.ID, "orderId": orderID}).Info("Payment proof submitted")
	s.publish(ctx, events.New(events.ProofSubmitted, orderID, out))
	return &out, nil
}

// List returns all proofs, newest first.
func (s *ProofService) List() []models.PaymentProof {
	s.mu.RLock()
	out := make([]models.PaymentProof, 0, len(s.proofs))
	for _, p := range s.proofs {
		out = append(out, *p)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *ProofService) Get(proofID string) (*models.PaymentProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proofs[proofID]
	if !ok {
		return nil, ErrProofNotFound
	}
	out := *p
	return &out, nil
}

// Verify marks the proof verified and its order paid, then schedules removal of
// the image. The path is captured now, so the removal still runs exactly once
// for this file even if the proof is deleted or verified again meanwhile.
func (s *ProofService) Verify(ctx context.Context, proofID string) (*models.PaymentProof, *models.Order, error) {
	proof, err := s.Get(proofID)
	if err != nil {
		return nil, nil, err
	}

	order, err := s.orders.UpdatePayment(ctx, proof.OrderID, PaymentUpdate{
		Status: models.PaymentPaid,
		Method: VerifiedMethod,
	})
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	s.mu.Lock()
	p, ok := s.proofs[proofID]
	if !ok {
		s.mu.Unlock()
		return nil, nil, ErrProofNotFound
	}
	if p.Status != models.ProofVerified {
		p.Status = models.ProofVerified
		p.VerifiedAt = &now
	}
	imagePath := p.ImagePath
	out := *p
	s.mu.Unlock()

	if imagePath != "" {
		id := proofID
		s.scheduler.Schedule(cleanupKey(id), s.cleanupDelay, func() {
			s.removeImage(id, imagePath)
		})
	}
	if s.metrics != nil {
		s.metrics.ProofsVerified.Inc()
	}

	utils.InfoLogger.WithFields(logrus.Fields{"proofId": proofID, "orderId": proof.OrderID}).Info("Payment proof verified")
	s.publish(ctx, events.New(events.ProofVerified, proof.OrderID, out))
	return &out, order, nil
}

// removeImage deletes the file and clears the path on the proof if the proof
// still points at it.
func (s *ProofService) removeImage(proofID, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		utils.ErrorLogger.WithField("path", path).Errorf("Failed to remove payment proof image: %v", err)
	} else {
		utils.InfoLogger.WithField("path", path).Info("Payment proof image removed")
	}

	s.mu.Lock()
	if p, ok := s.proofs[proofID]; ok && p.ImagePath == path {
		p.ImagePath = ""
	}
	s.mu.Unlock()
}

// Delete removes the proof record. A pending image cleanup is left to run; with
// none pending the image is removed right away.
func (s *ProofService) Delete(proofID string) error {
	s.mu.Lock()
	p, ok := s.proofs[proofID]
	if !ok {
		s.mu.Unlock()
		return ErrProofNotFound
	}
	delete(s.proofs, proofID)
	path := p.ImagePath
	s.mu.Unlock()

	if path != "" && !s.scheduler.Pending(cleanupKey(proofID)) {
		s.removeImage(proofID, path)
	}
	return nil
}

// DeleteImage removes only the image, running a pending cleanup early if there
// is one.
func (s *ProofService) DeleteImage(proofID string) (*models.PaymentProof, error) {
	p, err := s.Get(proofID)
	if err != nil {
		return nil, err
	}
	if !s.scheduler.Trigger(cleanupKey(proofID)) && p.ImagePath != "" {
		s.removeImage(proofID, p.ImagePath)
	}
	return s.Get(proofID)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/fnb-kiosk/models"
)

// SQLStore persists orders through gorm (MySQL or SQLite).
type SQLStore struct {
	DB     *gorm.DB
	driver string
	avail  *availability
}

func NewSQLStore(db *gorm.DB, driver string, probeInterval time.Duration) *SQLStore {
	s := &SQLStore{DB: db, driver: driver}
	s.avail = newAvailability(probeInterval, s.ping)
	return s
}

func (s *SQLStore) Name() string {
	if s.driver == "" {
		return "sql"
	}
	return s.driver
}

func (s *SQLStore) IsAvailable(ctx context.Context) bool { return s.avail.check(ctx) }

func (s *SQLStore) MarkUnavailable(err error) { s.avail.markDown(err) }

func (s *SQLStore) Probe(ctx context.Context) error { return s.avail.probe(ctx) }

func (s *SQLStore) ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) Save(ctx context.Context, order *models.Order) error {
	row := order.Clone()
	row.ID = 0
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateID
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *SQLStore) Find(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &order, nil
}

// Update rewrites the mutable columns of one row in a single statement.
func (s *SQLStore) Update(ctx context.Context, order *models.Order) error {
	result := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("order_id = ?", order.OrderID).
		Updates(map[string]interface{}{
			"customer_name":  order.CustomerName,
			"customer_phone": order.CustomerPhone,
			"status":         order.Status,
			"payment_status": order.PaymentStatus,
			"payment_method": order.PaymentMethod,
			"updated_at":     order.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// MySQL reports changed rows, not matched rows
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Order{}).Where("order_id = ?", order.OrderID).Count(&count).Error; err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, orderID string) error {
	result := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.Order{})
	if result.Error != nil {
		return fmt.Errorf("delete order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *SQLStore) Clear(ctx context.Context) (int64, error) {
	result := s.DB.WithContext(ctx).Where("1 = 1").Delete(&models.Order{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear orders: %w", result.Error)
	}
	return result.RowsAffected, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/fnb-kiosk/events"
	"github.com/yeremiapane/fnb-kiosk/metrics"
	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/money"
	"github.com/yeremiapane/fnb-kiosk/storage"
	"github.com/yeremiapane/fnb-kiosk/utils"
)

const (
	orderIDPrefix   = "ORDER-"
	orderIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	orderIDSuffix   = 5
	maxIDAttempts   = 5

	// totals within one cent of each other agree
	totalTolerance money.Cents = 1
)

// OrderService validates submissions and owns the order lifecycle. It never
// caches orders; every call goes to the store.
//
// Status and payment updates are find-then-update without a lock, so two
// concurrent updates to the same order can lose one of them.
type OrderService struct {
	store   storage.OrderStore
	events  events.Publisher
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewOrderService(store storage.OrderStore, pub events.Publisher, m *metrics.Metrics) *OrderService {
	if pub == nil {
		pub = events.Nop{}
	}
	return &OrderService{store: store, events: pub, metrics: m, now: time.Now}
}

// CreateResult is the stored order plus the total mismatch, if any.
type CreateResult struct {
	Order    *models.Order
	Mismatch *TotalMismatch
}

type PaymentUpdate struct {
	Status        models.PaymentStatus
	Method        string
	CustomerPhone string
}

type DashboardStats struct {
	TotalOrders   int     `json:"totalOrders"`
	TodayOrders   int     `json:"todayOrders"`
	PendingOrders int     `json:"pendingOrders"`
	TotalRevenue  float64 `json:"totalRevenue"`
	TodayRevenue  float64 `json:"todayRevenue"`
}

type OrderExport struct {
	ExportedAt  time.Time      `json:"exported_at"`
	TotalOrders int            `json:"total_orders"`
	Orders      []models.Order `json:"orders"`
}

func newOrderID(now time.Time) string {
	suffix := make([]byte, orderIDSuffix)
	for i := range suffix {
		suffix[i] = orderIDAlphabet[rand.Intn(len(orderIDAlphabet))]
	}
	return orderIDPrefix + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(suffix)
}

// MaxLineQuantity caps a single order line.
const MaxLineQuantity = 1000

// boundedAmount converts a submitted amount, rejecting negatives and anything
// the order columns cannot store.
func boundedAmount(v float64) (money.Cents, bool) {
	c, err := money.ParseFloat(v)
	if err != nil || c < 0 {
		return 0, false
	}
	return c, true
}

// normalize checks the submission and turns it into an unsaved order with
// server-computed amounts.
func normalize(sub *models.OrderSubmission) (*models.Order, money.Cents, error) {
	if sub == nil {
		return nil, 0, invalid("", "order payload is required")
	}
	name := strings.TrimSpace(sub.CustomerName)
	if name == "" {
		return nil, 0, invalid("customer_name", "customer name is required")
	}
	if len(sub.OrderDetails) == 0 {
		return nil, 0, invalid("order_details", "order must contain at least one item")
	}

	items := make([]models.OrderItem, 0, len(sub.OrderDetails))
	var subtotal money.Cents
	for i, line := range sub.OrderDetails {
		lineName := strings.TrimSpace(line.Name)
		if lineName == "" {
			return nil, 0, invalid(fmt.Sprintf("order_details[%d].name", i), "item name is required")
		}
		if line.Quantity < 1 || line.Quantity > MaxLineQuantity {
			return nil, 0, invalid(fmt.Sprintf("order_details[%d].quantity", i),
				fmt.Sprintf("quantity must be between 1 and %d", MaxLineQuantity))
		}
		price, ok := boundedAmount(line.Price)
		if !ok {
			return nil, 0, invalid(fmt.Sprintf("order_details[%d].price", i), "price must be a non-negative number up to "+money.MaxAmount.String())
		}

		subtotal += price.Mul(line.Quantity)
		if subtotal > money.MaxAmount {
			return nil, 0, invalid("order_details", "order total exceeds "+money.MaxAmount.String())
		}
		items = append(items, models.OrderItem{
			ItemID:   strings.TrimSpace(line.ItemID),
			Name:     lineName,
			Price:    price.Float64(),
			Quantity: line.Quantity,
		})
	}

	var tip money.Cents
	if sub.TipAmount != nil {
		var ok bool
		if tip, ok = boundedAmount(*sub.TipAmount); !ok {
			return nil, 0, invalid("tip_amount", "tip must be a non-negative number up to "+money.MaxAmount.String())
		}
	}
	total := subtotal + tip
	if total > money.MaxAmount {
		return nil, 0, invalid("tip_amount", "order total exceeds "+money.MaxAmount.String())
	}

	return &models.Order{
		CustomerName:  name,
		Items:         items,
		Subtotal:      subtotal.Float64(),
		TipAmount:     tip.Float64(),
		Total:         total.Float64(),
		Status:        models.StatusReceived,
		PaymentStatus: models.PaymentPending,
	}, total, nil
}

func (s *OrderService) storageErr(op string, err error) error {
	if s.metrics != nil {
		s.metrics.StorageErrors.WithLabelValues(op).Inc()
	}
	utils.ErrorLogger.WithField("op", op).Errorf("Order storage failed: %v", err)
	return &StorageError{Op: op, Err: err}
}

func (s *OrderService) mapErr(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrOrderNotFound
	}
	return s.storageErr(op, err)
}

func (s *OrderService) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(context.WithoutCancel(ctx), e); err != nil {
		utils.ErrorLogger.WithField("event", e.Type).Warnf("Failed to publish event: %v", err)
	}
}

// touch stamps updatedAt so it strictly advances even on stores that keep
// coarse timestamps.
func (s *OrderService) touch(order *models.Order) {
	now := s.now()
	if !now.After(order.UpdatedAt) {
		now = order.UpdatedAt.Add(time.Millisecond)
	}
	order.UpdatedAt = now
}

// CreateOrder validates the submission, recomputes the amounts and stores the
// order under a fresh id. A total that disagrees with the recomputed one is
// reported in the result but does not block the order.
func (s *OrderService) CreateOrder(ctx context.Context, sub *models.OrderSubmission) (*CreateResult, error) {
	order, total, err := normalize(sub)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Order: order}
	if sub.TotalAmount != nil {
		submitted := money.FromFloat(*sub.TotalAmount)
		if (submitted - total).Abs() > totalTolerance {
			result.Mismatch = &TotalMismatch{Submitted: *sub.TotalAmount, Computed: total.Float64()}
		}
	}

	for attempt := 1; ; attempt++ {
		now := s.now()
		order.OrderID = newOrderID(now)
		order.CreatedAt = now
		order.UpdatedAt = now

		err = s.store.Save(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, storage.ErrDuplicateID) && attempt < maxIDAttempts {
			utils.InfoLogger.WithField("orderId", order.OrderID).Warn("Order id collision, regenerating")
			continue
		}
		return nil, s.storageErr("create", err)
	}

	fields := logrus.Fields{"orderId": order.OrderID, "customer": order.CustomerName, "total": utils.FormatCurrency(total)}
	if result.Mismatch != nil {
		fields["submittedTotal"] = result.Mismatch.Submitted
		utils.InfoLogger.WithFields(fields).Warn("Order total mismatch, accepting recomputed total")
		if s.metrics != nil {
			s.metrics.TotalMismatch.Inc()
		}
	} else {
		utils.InfoLogger.WithFields(fields).Info("Order created")
	}
	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}

	s.publish(ctx, events.New(events.OrderCreated, order.OrderID, order))
	return result, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.Find(ctx, orderID)
	if err != nil {
		return nil, s.mapErr("get", err)
	}
	return order, nil
}

// ListOrders returns every order, newest first. Equal timestamps are ordered by
// descending order id so listings are stable across backends.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, error) {
	orders, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storageErr("list", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].OrderID > orders[j].OrderID
	})
	return orders, nil
}

// UpdateStatus sets the kitchen status. Any status may follow any other; odd
// moves such as completed back to received are logged, not refused.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, invalid("status", "unknown status %q", status)
	}

	order, err := s.store.Find(ctx, orderID)
	if err != nil {
		return nil, s.mapErr("update_status", err)
	}

	prev := order.Status
	if (prev == models.StatusCompleted || prev == models.StatusCancelled) && prev != status {
		utils.InfoLogger.WithFields(logrus.Fields{"orderId": orderID, "from": prev, "to": status}).
			Info("Order leaving a terminal status")
	}

	order.Status = status
	s.touch(order)
	if err := s.store.Update(ctx, order); err != nil {
		return nil, s.mapErr("update_status", err)
	}

	s.publish(ctx, events.New(events.OrderStatus, orderID, order))
	return order, nil
}

// UpdatePayment sets the payment status, and the method and customer phone
// when given. Like UpdateStatus it enforces no transition order.
func (s *OrderService) UpdatePayment(ctx context.Context, orderID string, upd PaymentUpdate) (*models.Order, error) {
	if !upd.Status.Valid() {
		return nil, invalid("paymentStatus", "unknown payment status %q", upd.Status)
	}

	order, err := s.store.Find(ctx, orderID)
	if err != nil {
		return nil, s.mapErr("update_payment", err)
	}

	order.PaymentStatus = upd.Status
	if method := strings.TrimSpace(upd.Method); method != "" {
		order.PaymentMethod = method
	}
	if phone := strings.TrimSpace(upd.CustomerPhone); phone != "" {
		order.CustomerPhone = phone
	}
	s.touch(order)
	if err := s.store.Update(ctx, order); err != nil {
		return nil, s.mapErr("update_payment", err)
	}

	s.publish(ctx, events.New(events.OrderPayment, orderID, order))
	return order, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, orderID string) error {
	if err := s.store.Delete(ctx, orderID); err != nil {
		return s.mapErr("delete", err)
	}
	utils.InfoLogger.WithField("orderId", orderID).Info("Order deleted")
	s.publish(ctx, events.New(events.OrderDeleted, orderID, nil))
	return nil
}

// ClearOrders removes every order from the active backend and returns how many
// were removed.
func (s *OrderService) ClearOrders(ctx context.Context) (int64, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, s.storageErr("clear", err)
	}
	utils.InfoLogger.WithField("count", n).Warn("All orders cleared")
	s.publish(ctx, events.New(events.OrdersCleared, "", map[string]int64{"count": n}))
	return n, nil
}

// DashboardStats is recomputed from the full list on every call. "Today" is
// the server's local calendar date.
func (s *OrderService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	orders, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storageErr("stats", err)
	}

	now := s.now()
	stats := &DashboardStats{TotalOrders: len(orders)}
	var totalRevenue, todayRevenue money.Cents
	for i := range orders {
		o := &orders[i]
		today := o.IsToday(now)
		if today {
			stats.TodayOrders++
		}
		if o.Status == models.StatusReceived {
			stats.PendingOrders++
		}
		if o.PaymentStatus == models.PaymentPaid {
			amount := money.FromFloat(o.Total)
			totalRevenue += amount
			if today {
				todayRevenue += amount
			}
		}
	}
	stats.TotalRevenue = totalRevenue.Float64()
	stats.TodayRevenue = todayRevenue.Float64()
	return stats, nil
}

func (s *OrderService) Export(ctx context.Context) (*OrderExport, error) {
	orders, err := s.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderExport{
		ExportedAt:  s.now().UTC(),
		TotalOrders: len(orders),
		Orders:      orders,
	}, nil
}

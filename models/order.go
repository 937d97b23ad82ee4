package models

import (
	"time"
)

type OrderStatus string

const (
	StatusReceived  OrderStatus = "received"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRejected PaymentStatus = "rejected"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRejected:
		return true
	}
	return false
}

// Order is the durable record created from a submitted cart. The same struct is
// persisted by every storage backend, hence the gorm and bson tags side by side.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"-" bson:"-"`
	OrderID       string        `gorm:"type:varchar(50);uniqueIndex;not null" json:"orderId" bson:"orderId"`
	CustomerName  string        `gorm:"type:varchar(255);not null" json:"customerName" bson:"customerName"`
	CustomerPhone string        `gorm:"type:varchar(50)" json:"customerPhone,omitempty" bson:"customerPhone,omitempty"`
	Items         []OrderItem   `gorm:"serializer:json;type:text;not null" json:"items" bson:"items"`
	Subtotal      float64       `gorm:"type:decimal(10,2);not null" json:"subtotal" bson:"subtotal"`
	TipAmount     float64       `gorm:"type:decimal(10,2);not null;default:0" json:"tipAmount" bson:"tipAmount"`
	Total         float64       `gorm:"type:decimal(10,2);not null" json:"total" bson:"total"`
	Status        OrderStatus   `gorm:"type:varchar(20);not null;default:'received'" json:"status" bson:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"paymentStatus" bson:"paymentStatus"`
	PaymentMethod string        `gorm:"type:varchar(50)" json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	CreatedAt     time.Time     `gorm:"not null" json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `gorm:"not null" json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a copy that shares no memory with o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = CloneItems(o.Items)
	return &c
}

// IsToday reports whether the order was created on the same calendar date as now,
// in now's location.
func (o *Order) IsToday(now time.Time) bool {
	y1, m1, d1 := o.CreatedAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

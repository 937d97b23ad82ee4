// Package cart is the kiosk-side order in progress: selected items, quantities
// and tip, with totals derived on demand from integer cents.
package cart

import (
	"errors"
	"math"
	"strings"

	"github.com/yeremiapane/fnb-kiosk/models"
	"github.com/yeremiapane/fnb-kiosk/money"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrMissingCustomerName = errors.New("customer name is required")
)

// ValidationError is returned by BuildSubmission when the cart cannot be
// submitted as is.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Line is one distinct menu item in the cart. Quantity is always at least 1.
type Line struct {
	ItemID    string
	Name      string
	UnitPrice money.Cents
	Quantity  int
}

func (l Line) Amount() money.Cents { return l.UnitPrice.Mul(l.Quantity) }

type tipMode int

const (
	tipNone tipMode = iota
	tipPercent
	tipExplicit
)

// Cart is not safe for concurrent use; one cart belongs to one kiosk session.
type Cart struct {
	lines map[string]*Line
	order []string

	mode       tipMode
	tipPercent float64
	tipAmount  money.Cents
}

func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// AddItem adds one unit of itemID. A new line keeps the name and price given on
// first add; later adds only bump the quantity. Negative prices count as zero.
func (c *Cart) AddItem(itemID, name string, unitPrice float64) {
	if l, ok := c.lines[itemID]; ok {
		l.Quantity++
		return
	}
	price := money.FromFloat(unitPrice)
	if price < 0 {
		price = 0
	}
	c.lines[itemID] = &Line{ItemID: itemID, Name: name, UnitPrice: price, Quantity: 1}
	c.order = append(c.order, itemID)
}

// RemoveItem drops the whole line. Unknown ids are ignored.
func (c *Cart) RemoveItem(itemID string) {
	if _, ok := c.lines[itemID]; !ok {
		return
	}
	delete(c.lines, itemID)
	for i, id := range c.order {
		if id == itemID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// AdjustQuantity adds delta to a line's quantity and removes the line when the
// result drops to zero or below.
func (c *Cart) AdjustQuantity(itemID string, delta int) {
	l, ok := c.lines[itemID]
	if !ok {
		return
	}
	l.Quantity += delta
	if l.Quantity <= 0 {
		c.RemoveItem(itemID)
	}
}

// SetTipPercent makes the tip a fraction of the subtotal (0.15 for 15%) and
// clears any explicit amount.
func (c *Cart) SetTipPercent(fraction float64) {
	if fraction < 0 || math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		fraction = 0
	}
	c.mode = tipPercent
	c.tipPercent = fraction
	c.tipAmount = 0
}

// SetExplicitTip fixes the tip to amount and clears the percent mode. Negative
// or non-finite amounts count as zero.
func (c *Cart) SetExplicitTip(amount float64) {
	tip := money.FromFloat(amount)
	if tip < 0 {
		tip = 0
	}
	c.mode = tipExplicit
	c.tipAmount = tip
	c.tipPercent = 0
}

// SetExplicitTipInput is SetExplicitTip for raw user input; anything that does
// not parse as a non-negative number becomes a zero tip.
func (c *Cart) SetExplicitTipInput(input string) {
	tip, err := money.Parse(input)
	if err != nil || tip < 0 {
		tip = 0
	}
	c.mode = tipExplicit
	c.tipAmount = tip
	c.tipPercent = 0
}

func (c *Cart) ClearTip() {
	c.mode = tipNone
	c.tipPercent = 0
	c.tipAmount = 0
}

// Lines returns copies of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) IsEmpty() bool { return len(c.order) == 0 }

// ItemCount is the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() money.Cents {
	var sum money.Cents
	for _, l := range c.lines {
		sum += l.Amount()
	}
	return sum
}

func (c *Cart) Tip() money.Cents {
	switch c.mode {
	case tipExplicit:
		return c.tipAmount
	case tipPercent:
		return c.Subtotal().Percent(c.tipPercent)
	}
	return 0
}

func (c *Cart) Total() money.Cents {
	return c.Subtotal() + c.Tip()
}

// BuildSubmission snapshots the cart into the POST /api/orders payload.
func (c *Cart) BuildSubmission(customerName string) (*models.OrderSubmission, error) {
	if c.IsEmpty() {
		return nil, &ValidationError{Err: ErrEmptyCart}
	}
	name := strings.TrimSpace(customerName)
	if name == "" {
		return nil, &ValidationError{Err: ErrMissingCustomerName}
	}

	subtotal := c.Subtotal()
	tip := c.Tip()
	sub := &models.OrderSubmission{
		CustomerName: name,
		SubTotal:     floatPtr(subtotal.Float64()),
		TipAmount:    floatPtr(tip.Float64()),
		TotalAmount:  floatPtr((subtotal + tip).Float64()),
		OrderDetails: make([]models.SubmissionLine, 0, len(c.order)),
	}
	for _, l := range c.Lines() {
		sub.OrderDetails = append(sub.OrderDetails, models.SubmissionLine{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.UnitPrice.Float64(),
		})
	}
	return sub, nil
}

// Reset empties the cart and clears the tip.
func (c *Cart) Reset() {
	c.lines = make(map[string]*Line)
	c.order = nil
	c.ClearTip()
}

func floatPtr(v float64) *float64 { return &v }

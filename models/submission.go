package models

// OrderSubmission is the body of POST /api/orders. The cart produces it and the
// order service consumes it, so both sides share this definition.
type OrderSubmission struct {
	CustomerName string           `json:"customer_name"`
	SubTotal     *float64         `json:"sub_total,omitempty"`
	TipAmount    *float64         `json:"tip_amount,omitempty"`
	TotalAmount  *float64         `json:"total_amount,omitempty"`
	OrderDetails []SubmissionLine `json:"order_details"`
}

type SubmissionLine struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CreateOrderResponse is what POST /api/orders answers on success.
type CreateOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id"`
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
	Data    *Order `json:"data,omitempty"`
}

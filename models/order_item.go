package models

// OrderItem is a by-value snapshot of a cart line taken at submission time, so
// later menu price changes never alter a historical order.
type OrderItem struct {
	ItemID   string  `json:"itemId" bson:"itemId"`
	Name     string  `json:"name" bson:"name"`
	Price    float64 `json:"price" bson:"price"`
	Quantity int     `json:"quantity" bson:"quantity"`
}

func CloneItems(items []OrderItem) []OrderItem {
	if items == nil {
		return nil
	}
	out := make([]OrderItem, len(items))
	copy(out, items)
	return out
}

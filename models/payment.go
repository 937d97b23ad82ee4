package models

import (
	"time"
)

type ProofStatus string

const (
	ProofPending  ProofStatus = "pending"
	ProofVerified ProofStatus = "verified"
)

// PaymentProof is customer-submitted evidence of a manual payment. Verifying it
// is the only external trigger that marks an order paid.
type PaymentProof struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"orderId"`
	Reference  string      `json:"reference"`
	ImagePath  string      `json:"imagePath,omitempty"`
	Status     ProofStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	VerifiedAt *time.Time  `json:"verifiedAt,omitempty"`
}

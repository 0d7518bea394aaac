package orders

import "time"

const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

type Order struct {
	ID          int64
	UserID      int64
	PlanCode    string
	AmountToman int
	Status      string
	Provider    string
	ProviderRef string
	CreatedAt   time.Time
	PaidAt      *time.Time
}

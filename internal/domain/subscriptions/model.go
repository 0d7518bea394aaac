package subscriptions

import "time"

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusExpired   = "expired"
)

// SourcePlanTrial — подписка, выданная как тестовая, без заказа.
const SourcePlanTrial = "trial"

// ProxyAccount — одна учётка Xray, привязанная к слоту устройства подписки.
// Identity служит и ключом клиента в движке, и именем stats-счётчика.
// BaselineBytes — последнее виденное значение накопительного счётчика;
// BaselineSet отличает «ещё не наблюдали» от честного нуля.
type ProxyAccount struct {
	ID             int64
	SubscriptionID int64
	Slot           int
	Identity       string
	Secret         string
	BaselineBytes  uint64
	BaselineSet    bool
}

type Subscription struct {
	ID              int64
	UserID          int64
	OrderID         *int64
	SourcePlan      string
	QuotaBytes      uint64
	ConsumedBytes   uint64
	DeviceCount     int
	StartAt         time.Time
	EndAt           time.Time
	Status          string
	QuotaNotified   bool
	ExpiredNotified bool
	Accounts        []ProxyAccount // упорядочены по slot
}

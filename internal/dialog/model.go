package dialog

type State string

const (
	StateIdle         State = "idle"
	StateAwaitReceipt State = "await_receipt" // ждём скрин/реквизиты оплаты; payload: order_id
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

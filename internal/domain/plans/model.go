package plans

// Plan — тариф из каталога. Продаём объём в гигабайтах на срок в днях,
// devices — сколько слотов (клиентов Xray) выдаётся на одну подписку.
type Plan struct {
	ID         int64
	Code       string
	Title      string
	GB         int
	Days       int
	Devices    int
	PriceToman int
	Active     bool
}

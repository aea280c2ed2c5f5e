package models

type OrderStatus string

const (
	StatusOnTime OrderStatus = "ON_TIME"
	StatusLate   OrderStatus = "LATE"
	StatusOther  OrderStatus = "OTHER"
	StatusEmpty  OrderStatus = ""
)

type OrderTimingRecord struct {
	Order        string      `json:"order"`
	PromisedAt   Timestamp   `json:"promised_at"`
	DeliveredAt  Timestamp   `json:"delivered_at"`
	TimeDiffDays Number      `json:"time_diff_days"`
	Status       OrderStatus `json:"status"`
	StatusText   string      `json:"status_text,omitempty"`
	DelayReason  string      `json:"delay_reason,omitempty"`
}

type TimingTable struct {
	Columns []string            `json:"columns"`
	Records []OrderTimingRecord `json:"records"`
}

func (t *TimingTable) HasColumn(name string) bool {
	return hasColumn(t.Columns, name)
}

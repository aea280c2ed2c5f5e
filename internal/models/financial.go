package models

type FinancialRecord struct {
	OrderDate     Timestamp `json:"order_date"`
	Account       string    `json:"account,omitempty"`
	AccountName   string    `json:"account_name,omitempty"`
	Office        string    `json:"office,omitempty"`
	OrderNumber   string    `json:"order_number,omitempty"`
	PickupCost    Number    `json:"pickup_cost"`
	ShipCost      Number    `json:"ship_cost"`
	ManualCost    Number    `json:"manual_cost"`
	DeliveryCost  Number    `json:"delivery_cost"`
	TotalCost     Number    `json:"total_cost"`
	NetRevenue    Number    `json:"net_revenue"`
	Currency      string    `json:"currency,omitempty"`
	Diff          Number    `json:"diff"`
	GrossPercent  Number    `json:"gross_percent"`
	InvoiceNumber string    `json:"invoice_number,omitempty"`
	TotalAmount   Number    `json:"total_amount"`
	BillingStatus string    `json:"billing_status,omitempty"`
	PickupCountry string    `json:"pickup_country,omitempty"`
}

type FinancialTable struct {
	Columns []string          `json:"columns"`
	Records []FinancialRecord `json:"records"`
}

func (t *FinancialTable) HasColumn(name string) bool {
	return hasColumn(t.Columns, name)
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

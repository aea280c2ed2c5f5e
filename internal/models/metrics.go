package models

type DerivedMetrics struct {
	TotalVolume   int     `json:"total_volume"`
	TotalOrders   int     `json:"total_orders"`
	OnTimeOrders  int     `json:"on_time_orders"`
	LateOrders    int     `json:"late_orders"`
	OnTimePercent float64 `json:"on_time_percent"`
	TotalRevenue  float64 `json:"total_revenue"`
	TotalCost     float64 `json:"total_cost"`
	TotalMargin   float64 `json:"total_margin"`
	MarginPercent float64 `json:"margin_percent"`
	BilledRecords int     `json:"billed_records"`
}

type ReasonCount struct {
	Phrase   string        `json:"phrase"`
	Category DelayCategory `json:"category"`
	Count    int           `json:"count"`
}

type DelayBreakdown struct {
	Reasons    []ReasonCount         `json:"reasons"`
	Categories map[DelayCategory]int `json:"categories"`
}

type TimingStats struct {
	Samples  int     `json:"samples"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Early    int     `json:"early"`
	OnTarget int     `json:"on_target"`
	Late     int     `json:"late"`
}

type CostBreakdown struct {
	Pickup   float64 `json:"pickup"`
	Ship     float64 `json:"ship"`
	Manual   float64 `json:"manual"`
	Delivery float64 `json:"delivery"`
}

// MarginDistribution describes per-order gross margins, in percent.
type MarginDistribution struct {
	Samples         int     `json:"samples"`
	ProfitableShare float64 `json:"profitable_share"`
	HighMarginShare float64 `json:"high_margin_share"`
	Mean            float64 `json:"mean"`
	Median          float64 `json:"median"`
}

type CountryFinancial struct {
	Country       string  `json:"country"`
	Revenue       float64 `json:"revenue"`
	Cost          float64 `json:"cost"`
	Profit        float64 `json:"profit"`
	MarginPercent float64 `json:"margin_percent"`
	Orders        int     `json:"orders"`
}

type AccountProfit struct {
	Account string  `json:"account"`
	Profit  float64 `json:"profit"`
	Orders  int     `json:"orders"`
}

type LaneType string

const (
	LaneDomestic      LaneType = "domestic"
	LaneInternational LaneType = "international"
)

type RankedLane struct {
	LaneRecord
	Label string   `json:"label"`
	Type  LaneType `json:"type"`
}

type CodeVolume struct {
	Code   string `json:"code"`
	Volume int    `json:"volume"`
}

type LaneSummary struct {
	ActiveLanes    int          `json:"active_lanes"`
	TotalShipments int          `json:"total_shipments"`
	AveragePerLane float64      `json:"average_per_lane"`
	Origins        []CodeVolume `json:"origins"`
	Destinations   []CodeVolume `json:"destinations"`
	TopLanes       []RankedLane `json:"top_lanes"`
	Unrecognized   int          `json:"unrecognized"`
	Matrix         LaneMatrix   `json:"matrix"`
}

type Share struct {
	Code    string  `json:"code"`
	Volume  int     `json:"volume"`
	Percent float64 `json:"percent"`
}

type VolumeShares struct {
	Services  []Share `json:"services"`
	Countries []Share `json:"countries"`
}

// Summary bundles every derived view a report renders from one snapshot.
type Summary struct {
	Metrics        DerivedMetrics      `json:"metrics"`
	Delays         *DelayBreakdown     `json:"delays,omitempty"`
	Timing         *TimingStats        `json:"timing,omitempty"`
	Volumes        *VolumeShares       `json:"volumes,omitempty"`
	Lanes          *LaneSummary        `json:"lanes,omitempty"`
	Costs          *CostBreakdown      `json:"costs,omitempty"`
	Margins        *MarginDistribution `json:"margins,omitempty"`
	CountryFinance []CountryFinancial  `json:"country_finance,omitempty"`
	Accounts       []AccountProfit     `json:"accounts,omitempty"`
	LossAccounts   []AccountProfit     `json:"loss_accounts,omitempty"`
	Trend          *FinancialTrend     `json:"trend,omitempty"`
	Outliers       *DiffOutliers       `json:"outliers,omitempty"`

	// ProfitPerShipment is total margin over total volume; 0 without volume.
	ProfitPerShipment float64 `json:"profit_per_shipment"`
}

// PeriodTotals sums billed money over one calendar period. Cumulative
// profit runs across the periods in order.
type PeriodTotals struct {
	Period           string  `json:"period"`
	Orders           int     `json:"orders"`
	Revenue          float64 `json:"revenue"`
	Cost             float64 `json:"cost"`
	Diff             float64 `json:"diff"`
	CumulativeProfit float64 `json:"cumulative_profit"`
}

type FinancialTrend struct {
	Monthly   []PeriodTotals `json:"monthly"`
	Quarterly []PeriodTotals `json:"quarterly"`
	// Undated counts records left out for lacking a usable order date.
	Undated int `json:"undated"`
}

// DiffOutliers applies the 1.5 × IQR rule to per-order Diff values.
type DiffOutliers struct {
	Samples  int     `json:"samples"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
	IQR      float64 `json:"iqr"`
	Lower    float64 `json:"lower"`
	Upper    float64 `json:"upper"`
	Outliers int     `json:"outliers"`
	Low      int     `json:"low"`
	High     int     `json:"high"`
}

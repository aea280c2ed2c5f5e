package derive

import (
	"tms-dashboard/internal/models"
)

const (
	DefaultTopLanes     = 10
	DefaultLossAccounts = 10
)

// Options sizes the ranked lists in a report and picks the billed filter.
type Options struct {
	TopLanes      int
	LossAccounts  int
	// LiteralBilled counts every status containing "billed", negations included.
	LiteralBilled bool
}

func (o Options) billed() func(string) bool {
	if o.LiteralBilled {
		return ContainsBilled
	}
	return IsBilled
}

func DefaultOptions() Options {
	return Options{TopLanes: DefaultTopLanes, LossAccounts: DefaultLossAccounts}
}

// Report bundles the headline metrics with every view the entities allow.
// Views whose source entity is absent stay nil.
func Report(ds *models.Dataset) models.Summary {
	return ReportWith(ds, DefaultOptions())
}

func ReportWith(ds *models.Dataset, opts Options) models.Summary {
	s := models.Summary{Metrics: computeWith(ds, opts.billed())}
	if ds == nil {
		return s
	}

	if ds.Timing != nil {
		delays := ClassifyDelays(ds.Timing)
		timing := TimingStats(ds.Timing)
		s.Delays = &delays
		s.Timing = &timing
	}
	if ds.Volumes != nil {
		v := VolumeShares(ds.Volumes)
		s.Volumes = &v
	}
	if ds.Lanes != nil {
		l := LaneSummary(ds.Lanes, opts.TopLanes)
		s.Lanes = &l
	}
	if ds.Financials != nil {
		billed := filterBilled(ds.Financials, opts.billed())
		costs := CostBreakdown(billed)
		margins := MarginDistribution(billed)
		s.Costs = &costs
		s.Margins = &margins
		s.CountryFinance = CountryFinancials(billed)
		s.Accounts = AccountProfitability(billed)
		s.LossAccounts = LossAccounts(billed, opts.LossAccounts)
		trend := FinancialTrend(billed)
		outliers := DiffOutliers(billed)
		s.Trend = &trend
		s.Outliers = &outliers
	}
	s.ProfitPerShipment = ProfitPerShipment(s.Metrics)
	return s
}

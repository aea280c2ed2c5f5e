package derive

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"tms-dashboard/internal/models"
)

const highMarginPercent = 20

func CostBreakdown(records []models.FinancialRecord) models.CostBreakdown {
	var pickup, ship, manual, delivery money
	for _, r := range records {
		pickup.add(r.PickupCost)
		ship.add(r.ShipCost)
		manual.add(r.ManualCost)
		delivery.add(r.DeliveryCost)
	}
	return models.CostBreakdown{
		Pickup:   pickup.InexactFloat64(),
		Ship:     ship.InexactFloat64(),
		Manual:   manual.InexactFloat64(),
		Delivery: delivery.InexactFloat64(),
	}
}

// MarginDistribution reads the per-order gross fraction as a percentage.
func MarginDistribution(records []models.FinancialRecord) models.MarginDistribution {
	var margins []float64
	var profitable, high int
	for _, r := range records {
		if !r.GrossPercent.Present() {
			continue
		}
		p := r.GrossPercent.Value * 100
		margins = append(margins, p)
		if p > 0 {
			profitable++
		}
		if p >= highMarginPercent {
			high++
		}
	}

	return models.MarginDistribution{
		Samples:         len(margins),
		ProfitableShare: ratio(profitable, len(margins)),
		HighMarginShare: ratio(high, len(margins)),
		Mean:            mean(margins),
		Median:          median(margins),
	}
}

type countryAcc struct {
	revenue, cost money
	gross         []float64
	orders        int
}

// CountryFinancials groups records by pickup country. Every enumerated
// country is listed, with zeros when it has no rows.
func CountryFinancials(records []models.FinancialRecord) []models.CountryFinancial {
	groups := make(map[string]*countryAcc, len(models.Countries))
	for _, c := range models.Countries {
		groups[c] = &countryAcc{}
	}
	for _, r := range records {
		if r.PickupCountry == "" {
			continue
		}
		acc, ok := groups[r.PickupCountry]
		if !ok {
			acc = &countryAcc{}
			groups[r.PickupCountry] = acc
		}
		acc.revenue.add(r.NetRevenue)
		acc.cost.add(r.TotalCost)
		if r.GrossPercent.Present() {
			acc.gross = append(acc.gross, r.GrossPercent.Value)
		}
		acc.orders++
	}

	out := make([]models.CountryFinancial, 0, len(groups))
	for country, acc := range groups {
		out = append(out, models.CountryFinancial{
			Country:       country,
			Revenue:       acc.revenue.InexactFloat64(),
			Cost:          acc.cost.InexactFloat64(),
			Profit:        acc.revenue.Sub(acc.cost.Decimal).InexactFloat64(),
			MarginPercent: mean(acc.gross) * 100,
			Orders:        acc.orders,
		})
	}
	slices.SortFunc(out, func(a, b models.CountryFinancial) int {
		return cmp.Or(cmp.Compare(b.Revenue, a.Revenue), cmp.Compare(a.Country, b.Country))
	})
	return out
}

// AccountProfitability sums the margin per account name, most profitable first.
func AccountProfitability(records []models.FinancialRecord) []models.AccountProfit {
	return groupAccounts(records, func(models.FinancialRecord) bool { return true })
}

// LossAccounts returns the n accounts with the largest summed loss over
// loss-making orders, largest loss first.
func LossAccounts(records []models.FinancialRecord, n int) []models.AccountProfit {
	out := groupAccounts(records, func(r models.FinancialRecord) bool {
		return r.Diff.Present() && r.Diff.Value < 0
	})
	slices.Reverse(out)
	return out[:min(n, len(out))]
}

func groupAccounts(records []models.FinancialRecord, keep func(models.FinancialRecord) bool) []models.AccountProfit {
	type acc struct {
		profit decimal.Decimal
		orders int
	}
	groups := make(map[string]*acc)
	for _, r := range records {
		if r.AccountName == "" || !keep(r) {
			continue
		}
		g, ok := groups[r.AccountName]
		if !ok {
			g = &acc{}
			groups[r.AccountName] = g
		}
		if r.Diff.Present() {
			g.profit = g.profit.Add(decimal.NewFromFloat(r.Diff.Value))
		}
		g.orders++
	}

	out := make([]models.AccountProfit, 0, len(groups))
	for name, g := range groups {
		out = append(out, models.AccountProfit{Account: name, Profit: g.profit.InexactFloat64(), Orders: g.orders})
	}
	slices.SortFunc(out, func(a, b models.AccountProfit) int {
		return cmp.Or(cmp.Compare(b.Profit, a.Profit), cmp.Compare(a.Account, b.Account))
	})
	return out
}

package derive

import (
	"cmp"
	"slices"

	"tms-dashboard/internal/models"
)

// VolumeShares expresses each code's volume as a percentage of the row sum.
func VolumeShares(tables *models.VolumeTables) models.VolumeShares {
	if tables == nil {
		return models.VolumeShares{}
	}
	return models.VolumeShares{
		Services:  shares(tables.Services),
		Countries: shares(tables.Countries),
	}
}

func shares(table models.VolumeTable) []models.Share {
	total := table.Sum()
	out := make([]models.Share, 0, len(table.Counts))
	for code, n := range table.Counts {
		out = append(out, models.Share{Code: code, Volume: n, Percent: ratio(n, total)})
	}
	slices.SortFunc(out, func(a, b models.Share) int {
		return cmp.Or(cmp.Compare(b.Volume, a.Volume), cmp.Compare(a.Code, b.Code))
	})
	return out
}

package derive

import (
	"cmp"
	"slices"

	"tms-dashboard/internal/models"
)

func LaneSummary(network *models.LaneNetwork, topN int) models.LaneSummary {
	var s models.LaneSummary
	if network == nil {
		return s
	}

	origins := make(map[string]int)
	destinations := make(map[string]int)
	ranked := make([]models.RankedLane, 0, len(network.Lanes))
	for _, l := range network.Lanes {
		if l.Shipments <= 0 {
			continue
		}
		s.ActiveLanes++
		s.TotalShipments += l.Shipments
		origins[l.Origin] += l.Shipments
		destinations[l.Destination] += l.Shipments
		if !l.Recognized {
			s.Unrecognized++
		}

		typ := models.LaneInternational
		if l.Origin == l.Destination {
			typ = models.LaneDomestic
		}
		ranked = append(ranked, models.RankedLane{
			LaneRecord: l,
			Label:      l.Origin + " → " + l.Destination,
			Type:       typ,
		})
	}

	if s.ActiveLanes > 0 {
		s.AveragePerLane = float64(s.TotalShipments) / float64(s.ActiveLanes)
	}
	s.Origins = rankCodes(origins)
	s.Destinations = rankCodes(destinations)

	slices.SortFunc(ranked, func(a, b models.RankedLane) int {
		return cmp.Or(cmp.Compare(b.Shipments, a.Shipments), cmp.Compare(a.Label, b.Label))
	})
	if topN > 0 {
		ranked = ranked[:min(topN, len(ranked))]
	}
	s.TopLanes = ranked
	s.Matrix = network.Matrix()
	return s
}

func rankCodes(volumes map[string]int) []models.CodeVolume {
	out := make([]models.CodeVolume, 0, len(volumes))
	for code, v := range volumes {
		out = append(out, models.CodeVolume{Code: code, Volume: v})
	}
	slices.SortFunc(out, func(a, b models.CodeVolume) int {
		return cmp.Or(cmp.Compare(b.Volume, a.Volume), cmp.Compare(a.Code, b.Code))
	})
	return out
}

package ingest

import (
	"cmp"
	"errors"
	"slices"

	"tms-dashboard/internal/models"
)

var errNoLaneHeader = errors.New("no lane header row found")

// Header aliases for the long lane layout, after normalizeHeader.
var (
	originHeaders      = []string{"origin", "from", "pu country", "pickup country", "origin country"}
	destinationHeaders = []string{"destination", "dest", "to", "del country", "delivery country", "destination country"}
	volumeHeaders      = []string{"volume", "shipments", "count", "orders", "qty", "quantity", "total"}
)

const longHeaderScan = 10

type laneKey struct{ origin, destination string }

type laneAccumulator struct {
	counts map[laneKey]int
}

func (a *laneAccumulator) add(origin, destination string, n int) {
	if a.counts == nil {
		a.counts = make(map[laneKey]int)
	}
	a.counts[laneKey{origin, destination}] += n
}

func (a *laneAccumulator) network() *models.LaneNetwork {
	lanes := make([]models.LaneRecord, 0, len(a.counts))
	for k, n := range a.counts {
		lanes = append(lanes, models.LaneRecord{
			Origin:      k.origin,
			Destination: k.destination,
			Shipments:   n,
			Recognized:  models.IsLaneOrigin(k.origin) && models.IsCountry(k.destination),
		})
	}
	slices.SortFunc(lanes, func(x, y models.LaneRecord) int {
		return cmp.Or(cmp.Compare(x.Origin, y.Origin), cmp.Compare(x.Destination, y.Destination))
	})
	return &models.LaneNetwork{Lanes: lanes}
}

// parseLanes accepts either an origin x destination matrix or a long table
// with origin, destination and volume columns. Zero cells are not lanes.
func parseLanes(rows [][]string, res *SheetResult) (*models.LaneNetwork, error) {
	var acc laneAccumulator
	if hdr, cols, ok := findLongHeader(rows); ok {
		parseLaneList(rows[hdr+1:], cols, &acc, res)
	} else {
		hdr := findHeaderRow(rows, models.IsCountry)
		if hdr < 0 {
			return nil, errNoLaneHeader
		}
		parseLaneMatrix(rows[hdr], rows[hdr+1:], &acc, res)
	}

	network := acc.network()
	if len(network.Lanes) == 0 {
		res.warnf("sheet holds no lanes with shipments")
	}
	for _, l := range network.Lanes {
		if !l.Recognized {
			res.warnf("unrecognized lane %s-%s", l.Origin, l.Destination)
		}
	}
	return network, nil
}

type longColumns struct{ origin, destination, volume int }

func findLongHeader(rows [][]string) (int, longColumns, bool) {
	for i, row := range rows[:min(len(rows), longHeaderScan)] {
		cols := longColumns{-1, -1, -1}
		for j, c := range row {
			h := normalizeHeader(c)
			switch {
			case cols.origin < 0 && slices.Contains(originHeaders, h):
				cols.origin = j
			case cols.destination < 0 && slices.Contains(destinationHeaders, h):
				cols.destination = j
			case cols.volume < 0 && slices.Contains(volumeHeaders, h):
				cols.volume = j
			}
		}
		if cols.origin >= 0 && cols.destination >= 0 && cols.volume >= 0 {
			return i, cols, true
		}
	}
	return 0, longColumns{}, false
}

func parseLaneList(rows [][]string, cols longColumns, acc *laneAccumulator, res *SheetResult) {
	for _, row := range rows {
		if blank(row) {
			continue
		}
		origin := normalizeCode(cell(row, cols.origin))
		if isTotalLabel(origin) {
			continue
		}
		res.RowsRead++

		destination := normalizeCode(cell(row, cols.destination))
		raw := cell(row, cols.volume)
		n, ok := parseCount(raw)
		switch {
		case origin == "" || destination == "":
			res.RowsDropped++
			res.warnf("lane row without origin or destination skipped")
		case !ok && raw != "":
			res.RowsDropped++
			res.warnf("%s-%s: invalid volume %q", origin, destination, raw)
		case n == 0:
			res.RowsDropped++
		default:
			acc.add(origin, destination, n)
			res.RowsKept++
		}
	}
}

func parseLaneMatrix(header []string, rows [][]string, acc *laneAccumulator, res *SheetResult) {
	destinations, _ := codeColumns(header)
	for _, row := range rows {
		if blank(row) {
			continue
		}
		origin := normalizeCode(cell(row, 0))
		if isTotalLabel(origin) {
			continue
		}
		res.RowsRead++
		if origin == "" {
			res.RowsDropped++
			res.warnf("lane row without origin skipped")
			continue
		}

		for _, d := range destinations {
			raw := cell(row, d.idx)
			n, ok := parseCount(raw)
			if !ok {
				if raw != "" {
					res.warnf("%s-%s: invalid volume %q", origin, d.code, raw)
				}
				continue
			}
			if n > 0 {
				acc.add(origin, d.code, n)
			}
		}
		res.RowsKept++
	}
}

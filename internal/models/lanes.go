package models

import "slices"

type LaneRecord struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Shipments   int    `json:"shipments"`
	Recognized  bool   `json:"recognized"`
}

type LaneNetwork struct {
	Lanes []LaneRecord `json:"lanes"`
}

type LaneMatrix struct {
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
	Cells        [][]int  `json:"cells"`
}

// Matrix materializes the network as origin x destination; absent pairs are 0.
func (n *LaneNetwork) Matrix() LaneMatrix {
	var origins, destinations []string
	for _, l := range n.Lanes {
		if !slices.Contains(origins, l.Origin) {
			origins = append(origins, l.Origin)
		}
		if !slices.Contains(destinations, l.Destination) {
			destinations = append(destinations, l.Destination)
		}
	}
	slices.Sort(origins)
	slices.Sort(destinations)

	cells := make([][]int, len(origins))
	for i := range cells {
		cells[i] = make([]int, len(destinations))
	}
	for _, l := range n.Lanes {
		i := slices.Index(origins, l.Origin)
		j := slices.Index(destinations, l.Destination)
		cells[i][j] += l.Shipments
	}

	return LaneMatrix{Origins: origins, Destinations: destinations, Cells: cells}
}

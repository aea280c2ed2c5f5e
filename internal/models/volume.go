package models

type VolumeTable struct {
	Counts       map[string]int `json:"counts"`
	Unrecognized []string       `json:"unrecognized,omitempty"`
}

func (v *VolumeTable) Sum() int {
	total := 0
	for _, n := range v.Counts {
		total += n
	}
	return total
}

// ServiceCountryMatrix maps country code to service code to shipment count.
type ServiceCountryMatrix map[string]map[string]int

type VolumeTables struct {
	Services      VolumeTable          `json:"services"`
	Countries     VolumeTable          `json:"countries"`
	Matrix        ServiceCountryMatrix `json:"matrix"`
	ReportedTotal *int                 `json:"reported_total,omitempty"`
}

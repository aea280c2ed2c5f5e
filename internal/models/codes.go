package models

import "slices"

// Closed code sets of the TMS export. They validate codes found in the
// uploaded sheets; they never stand in for volumes.
var (
	ServiceTypes = []string{"CTX", "CX", "EF", "EGD", "FF", "RGD", "ROU", "SF"}
	Countries    = []string{"AT", "AU", "BE", "DE", "DK", "ES", "FR", "GB", "IT", "N1", "NL", "NZ", "SE", "US"}
	LaneOrigins  = []string{"AT", "BE", "CH", "CN", "DE", "DK", "FI", "FR", "GB", "HK", "IT", "NL", "PL"}
)

func IsServiceType(code string) bool {
	return slices.Contains(ServiceTypes, code)
}

func IsCountry(code string) bool {
	return slices.Contains(Countries, code)
}

// IsLaneOrigin accepts pickup countries outside the delivery set as well.
func IsLaneOrigin(code string) bool {
	return slices.Contains(LaneOrigins, code) || IsCountry(code)
}

type DelayCategory string

const (
	CategoryCustomer DelayCategory = "Customer Related"
	CategorySystem   DelayCategory = "System Error"
	CategoryDelivery DelayCategory = "Delivery Issue"
)

var DelayCategories = []DelayCategory{CategoryCustomer, CategorySystem, CategoryDelivery}

type DelayReason struct {
	Phrase   string        `json:"phrase"`
	Category DelayCategory `json:"category"`
}

// DelayReasons is the QC-name lookup, in the order reports list it.
var DelayReasons = []DelayReason{
	{Phrase: "MNX-Incorrect QDT", Category: CategorySystem},
	{Phrase: "Customer-Changed delivery parameters", Category: CategoryCustomer},
	{Phrase: "Consignee-Driver waiting at delivery", Category: CategoryDelivery},
	{Phrase: "Customer-Requested delay", Category: CategoryCustomer},
	{Phrase: "Customer-Shipment not ready", Category: CategoryCustomer},
	{Phrase: "Del Agt-Late del", Category: CategoryDelivery},
	{Phrase: "Consignee-Changed delivery parameters", Category: CategoryDelivery},
}

package models

import "time"

type RawSheet struct {
	Name string     `json:"name"`
	Rows [][]string `json:"rows"`
}

// RawSheetSet is keyed by sheet name exactly as stored in the container.
type RawSheetSet map[string]RawSheet

type RawTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

type Source struct {
	UploadID    string    `json:"upload_id"`
	FileName    string    `json:"file_name"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	ParsedAt    time.Time `json:"parsed_at"`
}

// Dataset is the normalized model of one upload. Entities whose sheet was
// absent or failed to parse are nil.
type Dataset struct {
	Source     Source          `json:"source"`
	RawData    *RawTable       `json:"raw_data,omitempty"`
	Timing     *TimingTable    `json:"timing,omitempty"`
	Volumes    *VolumeTables   `json:"volumes,omitempty"`
	Lanes      *LaneNetwork    `json:"lanes,omitempty"`
	Financials *FinancialTable `json:"financials,omitempty"`
}

package model

import "time"

// Combination identifies the refs collected for one vehicle type, part
// category (gamme) and manufacturer brand
type Combination struct {
	TypeID  int    `json:"type_id"`
	GammeID int    `json:"gamme_id"`
	Marque  string `json:"marque"`
}

// PrefixAudit is the stored outcome of running the pipeline on a combination
type PrefixAudit struct {
	Combination
	Prefixes          []string  `json:"prefixes"`
	TotalRefs         int       `json:"total_refs"`
	FilteredCount     int       `json:"filtered_count"`
	ReductionPercent  int       `json:"reduction_percent"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	FilterApplied     bool      `json:"filter_applied"`
	AuditedAt         time.Time `json:"audited_at"`
}

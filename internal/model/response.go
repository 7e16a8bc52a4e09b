package model

import "time"

// FilterRefsRequest carries caller-supplied OEM refs for one combination
type FilterRefsRequest struct {
	Refs    []string `json:"refs"`
	TypeID  int      `json:"type_id"`
	GammeID int      `json:"gamme_id"`
	Marque  string   `json:"marque"`
}

// FilterByPrefixesRequest filters refs against prefixes the caller already knows
type FilterByPrefixesRequest struct {
	Refs     []string `json:"refs"`
	Prefixes []string `json:"prefixes"`
}

type FilterByPrefixesResponse struct {
	Refs  []string `json:"refs"`
	Total int      `json:"total"`
}

// HealthResponse reports service and database status
type HealthResponse struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

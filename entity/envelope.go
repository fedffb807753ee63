package entity

// Envelope is pagination information returned by list endpoints. Display
// values are always derived, never stored.
type Envelope struct {
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	Total       int  `json:"total"`
	Limit       int  `json:"limit"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// ListResponse is a single page of records.
type ListResponse struct {
	Data       []Record       `json:"data"`
	Pagination Envelope       `json:"pagination"`
	Stats      map[string]any `json:"stats,omitempty"`
}

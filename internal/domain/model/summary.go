package model

// AppSummary is an ephemeral per-process usage aggregate over a queried range.
// It is recomputed on every query and never persisted.
type AppSummary struct {
	ProcessName  string  `json:"process_name"`
	TotalSeconds int64   `json:"total_seconds"`
	Percentage   float64 `json:"percentage"` // Share of all tracked seconds in the range, 0-100.
}

// DomainSummary is the per-domain counterpart of AppSummary. Only rows with a
// non-empty domain ever contribute to domain summaries.
type DomainSummary struct {
	Domain       string  `json:"domain"`
	TotalSeconds int64   `json:"total_seconds"`
	Percentage   float64 `json:"percentage"`
}

// GroupTotal is a raw (name, seconds) pair as returned by the store's grouped
// sum queries, before percentages are computed.
type GroupTotal struct {
	Name         string
	TotalSeconds int64
}

// UploadPayload is the aggregate-upload contract consumed by the upstream
// collector. Summaries are already filtered by MinDurationSeconds so the
// receiver needs no additional computation.
type UploadPayload struct {
	UserID             string          `json:"user_id"`
	MachineName        string          `json:"machine_name,omitempty"`
	Date               string          `json:"date"`
	MinDurationSeconds int64           `json:"min_duration_seconds"`
	Apps               []AppSummary    `json:"apps"`
	Domains            []DomainSummary `json:"domains"`
}

// UploadResult is the success/failure envelope returned by the upload server.
type UploadResult struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message,omitempty"`
}

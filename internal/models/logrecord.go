package models

// LogRecord is a persisted, immutable record of one HTTP interaction.
// Created once per probe, never updated, retained until an explicit clear.
type LogRecord struct {
	ID           string `gorm:"primaryKey" json:"id"`
	Timestamp    int64  `gorm:"index" json:"timestamp"` // unix milliseconds
	Kind         string `json:"kind"`
	EndpointID   string `gorm:"index" json:"endpoint_id"`
	EndpointName string `json:"endpoint_name"`
	Model        string `json:"model,omitempty"`
	Method       string `json:"method"`
	URL          string `json:"url"`
	StatusCode   int    `gorm:"index" json:"status_code"` // 0 = transport failure
	LatencyMs    int64  `json:"latency_ms"`
	RequestBody  string `gorm:"type:text" json:"request_body,omitempty"`
	ResponseBody string `gorm:"type:text" json:"response_body,omitempty"`
	Error        string `json:"error,omitempty"`
}

// LogStats holds rolling statistics over the recent log window.
type LogStats struct {
	Total        int64 `json:"total"`
	SuccessCount int64 `json:"success_count"`
	ErrorCount   int64 `json:"error_count"`
	AvgLatencyMs int64 `json:"avg_latency_ms"`
}

// LogFilter narrows a log query. Zero values leave a dimension unfiltered.
type LogFilter struct {
	EndpointID string
	StatusMin  int
	StatusMax  int
	// ErrorsOnly keeps records outside [200,300), including transport
	// failures recorded with status 0. Applied before Limit/Offset.
	ErrorsOnly bool
	Limit      int
	Offset     int
}

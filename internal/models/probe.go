package models

import "time"

// ProbeKind discriminates the four kinds of outbound probe.
type ProbeKind string

const (
	ProbeKindModels  ProbeKind = "models-fetch"
	ProbeKindLatency ProbeKind = "latency-test"
	ProbeKindTool    ProbeKind = "tool-support-test"
	ProbeKindChat    ProbeKind = "chat-exchange"
)

// ProbeStatus classifies the outcome of one probe.
type ProbeStatus string

const (
	StatusSuccess     ProbeStatus = "success"
	StatusError       ProbeStatus = "error"
	StatusSupported   ProbeStatus = "supported"
	StatusUnsupported ProbeStatus = "unsupported"
)

// OK reports whether the status counts as a success for aggregation.
func (s ProbeStatus) OK() bool {
	return s == StatusSuccess || s == StatusSupported
}

// ProbeResult is the outcome of one HTTP attempt.
//
// Status success (or supported) implies StatusCode in [200,300) and a fully
// consumed response body. StatusCode 0 means the request never reached the
// wire (transport failure or timeout).
type ProbeResult struct {
	Kind         ProbeKind   `json:"kind"`
	Status       ProbeStatus `json:"status"`
	LatencyMs    int64       `json:"latency_ms"`
	StatusCode   int         `json:"status_code"`
	Message      string      `json:"message,omitempty"`
	RequestBody  string      `json:"request_body,omitempty"`
	ResponseBody string      `json:"response_body,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
}

// AggregatedResult is the rollup of all rounds run so far for one task.
type AggregatedResult struct {
	Status       ProbeStatus `json:"status"`
	AvgLatencyMs int64       `json:"avg_latency_ms"`
	SuccessCount int         `json:"success_count"`
	Rounds       int         `json:"rounds"`
	// Message carries the most recent round's message, for display.
	Message string `json:"message,omitempty"`
}

// Model is one entry of a provider's model list.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

package dto

// JobSpec describes one background analysis invocation. The backend
// treats the contents as opaque; only the lifecycle contract matters here.
type JobSpec struct {
	Kind  string `json:"kind"`            // "full-analysis" or "quick-check"
	Query string `json:"query,omitempty"` // quick-check prompt, unused for full runs
}

type RunAnalysisResponse struct {
	JobID   string `json:"job_id"`
	BatchID string `json:"batch_id,omitempty"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
}

type QuickCheckResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Answer string `json:"answer,omitempty"`
}

type EngineStatusResponse struct {
	Status string `json:"status"`
}

package dto

// ExecuteRequest is the transport envelope for one NLQ job. An empty
// nlq is accepted here and rejected by the pipeline as INTENT_UNCLEAR
// so the caller gets suggestions instead of a bare 400. A missing
// task_id is assigned by the handler.
type ExecuteRequest struct {
	TaskID   string   `json:"task_id,omitempty"`
	Locale   string   `json:"locale,omitempty"`
	TaskData TaskData `json:"task_data" binding:"required"`
}

type TaskData struct {
	NLQ     string          `json:"nlq"`
	Options *ExecuteOptions `json:"options,omitempty"`
}

// ExecuteOptions tunes one request. Timeout is in seconds.
type ExecuteOptions struct {
	Timeout    int    `json:"timeout,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Locale     string `json:"locale,omitempty"`
	CountTotal bool   `json:"count_total,omitempty"`
	NoCache    bool   `json:"no_cache,omitempty"`
}

// EffectiveLocale resolves the per-request locale: options win over the
// envelope field.
func (r ExecuteRequest) EffectiveLocale() string {
	if r.TaskData.Options != nil && r.TaskData.Options.Locale != "" {
		return r.TaskData.Options.Locale
	}
	return r.Locale
}

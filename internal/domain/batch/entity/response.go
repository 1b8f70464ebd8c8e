package entity

// ResultEntry is one row of the client-facing batch result
type ResultEntry struct {
	Topic                string `json:"topic"`
	Status               string `json:"status"`
	Title                string `json:"title,omitempty"`
	PostID               string `json:"postId,omitempty"`
	ContentPreview       string `json:"contentPreview,omitempty"`
	UsesFallbackProvider bool   `json:"usesFallbackProvider"`
	Provider             string `json:"provider,omitempty"`
	Error                string `json:"error,omitempty"`
	Warning              string `json:"warning,omitempty"`
}

// Response is the client-facing shape of a bulk or cluster run
type Response struct {
	Success     bool          `json:"success"`
	TotalTopics int           `json:"totalTopics"`
	Successful  int           `json:"successful"`
	Results     []ResultEntry `json:"results"`
	RunID       string        `json:"runId"`
	Mode        Mode          `json:"mode"`
	Status      RunStatus     `json:"status"`
	Error       string        `json:"error,omitempty"`
}

// Response renders the run for clients, one row per input topic in input order
func (r *Run) Response() Response {
	results := make([]ResultEntry, len(r.Entries))
	for i, e := range r.Entries {
		results[i] = ResultEntry{
			Topic:                e.Topic,
			Status:               e.State.ClientStatus(),
			Title:                e.Title,
			PostID:               e.PostID,
			ContentPreview:       e.ContentPreview,
			UsesFallbackProvider: e.UsesFallbackProvider,
			Provider:             e.Provider,
			Error:                e.Error,
			Warning:              e.Warning,
		}
	}

	return Response{
		Success:     r.Error == "",
		TotalTopics: len(r.Entries),
		Successful:  r.Successful(),
		Results:     results,
		RunID:       r.ID,
		Mode:        r.Mode,
		Status:      r.Status,
		Error:       r.Error,
	}
}

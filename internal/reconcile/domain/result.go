package domain

// BatchResult summarizes one reconciliation pass.
type BatchResult struct {
	// Attempted counts records claimed and dispatched.
	Attempted int `json:"attempted"`
	// Succeeded counts records that ended synced.
	Succeeded int `json:"succeeded"`
	// Failed counts records that ended failed or could not be resolved.
	Failed int `json:"failed"`
	// Skipped counts due records another worker claimed first.
	Skipped int `json:"skipped"`
}

// Add accumulates other into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Attempted += other.Attempted
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

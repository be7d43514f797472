package jobs

import "whisper-desktop/internal/domain"

// isFinished reports whether a job has reached a terminal status.
func isFinished(status domain.JobStatus) bool {
	return status == domain.JobStatusComplete || status == domain.JobStatusFailed
}

// isValidTransition enforces the allowed job state machine edges. Pending
// jobs may fail directly when a run is cancelled before reaching them.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending:
		return to == domain.JobStatusProcessing || to == domain.JobStatusFailed
	case domain.JobStatusProcessing:
		return to == domain.JobStatusComplete || to == domain.JobStatusFailed
	default:
		return false
	}
}

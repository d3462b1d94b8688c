package model

import "time"

// Job is one queued valuation request.
type Job struct {
	ID         string
	PlayerID   string
	EnqueuedAt time.Time

	// Reply receives the result. It must be buffered so a worker never blocks
	// on a caller that stopped waiting.
	Reply chan ValuationResult

	// Release frees the player's in-flight slot once the job is finished.
	Release func()
}

// NewJob creates a job with a one-slot reply channel.
func NewJob(id, playerID string, release func()) Job {
	return Job{
		ID:         id,
		PlayerID:   playerID,
		EnqueuedAt: time.Now(),
		Reply:      make(chan ValuationResult, 1),
		Release:    release,
	}
}

// Finish releases the in-flight slot and then delivers res, so a caller
// holding the result can immediately ask again. It is safe to call on a job
// without a reply channel or release func.
func (j Job) Finish(res ValuationResult) {
	if j.Release != nil {
		j.Release()
	}
	if j.Reply != nil {
		select {
		case j.Reply <- res:
		default:
		}
	}
}

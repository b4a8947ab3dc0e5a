package hermes

import "time"

// JobMatchedEvent is published after a job and its offers are committed.
type JobMatchedEvent struct {
	JobID     string            `json:"job_id"`
	Urgency   string            `json:"urgency"`
	Picks     map[string]string `json:"picks"` // task name -> worker id
	OfferIDs  []string          `json:"offer_ids"`
	Timestamp time.Time         `json:"timestamp"`
}

type JobNoMatchEvent struct {
	Task      string    `json:"task"`
	Skill     string    `json:"skill"`
	Urgency   string    `json:"urgency"`
	Timestamp time.Time `json:"timestamp"`
}

// RosterUpdatedEvent is emitted by whatever owns the worker roster.
type RosterUpdatedEvent struct {
	WorkerIDs []string  `json:"worker_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

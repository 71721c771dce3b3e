package store

import "time"

// SessionRecord is a stored session.
type SessionRecord struct {
	Token       string        `json:"token"`
	Policy      string        `json:"policy"`
	Dedupe      bool          `json:"dedupe"`
	HandoffSet  bool          `json:"handoff_set"`
	Handoff     time.Duration `json:"handoff"`
	HandoffSeq  int64         `json:"handoff_seq,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	ToolVersion string        `json:"tool_version"`

	// EntryCount is filled on read.
	EntryCount int `json:"entry_count"`
}

// EntryRecord is one stored click.
type EntryRecord struct {
	SessionToken   string        `json:"session_token"`
	Seq            int64         `json:"seq"`
	EventID        string        `json:"event_id"`
	Target         string        `json:"target,omitempty"`
	Timestamp      time.Duration `json:"timestamp"`
	Phase          string        `json:"phase,omitempty"`
	Classification string        `json:"classification,omitempty"`
	WasStable      bool          `json:"was_stable"`
	Suppressed     bool          `json:"suppressed"`
	Index          int           `json:"index,omitempty"`
	DisplayTime    string        `json:"display_time,omitempty"`
}

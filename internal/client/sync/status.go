package sync

// State is the user-visible sync state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
	StatePaused  State = "paused"
)

// Stats accumulates per-run counters.
type Stats struct {
	Pulled            int
	Pushed            int
	Conflicts         int
	Errors            int
	AttachmentsPushed int
	AttachmentBytes   int64
}

type Progress struct {
	Phase   string
	Current int
	Total   int
}

// Status is one frame of the status stream.
type Status struct {
	State    State
	Message  string
	Progress *Progress
	Stats    Stats
}

// StatusFunc receives status frames. A nil StatusFunc is allowed.
type StatusFunc func(Status)

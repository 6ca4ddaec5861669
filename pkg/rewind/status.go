package rewind

// Status is the engine's lifecycle state.
type Status int

const (
	// StatusIdle means the engine was closed.
	StatusIdle Status = iota

	// StatusReady means the cursor is valid and no move is in flight.
	StatusReady

	// StatusReplaying means a move is running, or a deamortized move is
	// pending between calls.
	StatusReplaying

	// StatusExhausted means the last move hit a boundary. The cursor is
	// still valid; a move the other way resumes.
	StatusExhausted
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusReady:
		return "ready"
	case StatusReplaying:
		return "replaying"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Stats are cumulative engine counters.
type Stats struct {
	// Steps counts every step invocation, replays included.
	Steps int64
	// ReplaySteps counts step invocations spent reaching backward targets.
	ReplaySteps int64

	Forwards  int64
	Backwards int64
	Seeks     int64

	// Restores counts backward moves served by a checkpoint without replay.
	Restores int64

	// LastMoveSteps and MaxMoveSteps are per committed move.
	LastMoveSteps int64
	MaxMoveSteps  int64

	// ReplanErrors counts plans that could not be rebuilt after the end of
	// the sequence was found. The previous plan stays in use.
	ReplanErrors int64

	// Checkpoints is the current table size, anchor excluded.
	Checkpoints int
}

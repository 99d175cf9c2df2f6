package models

// Level bounds for todo priority and allocated hours
const (
	MinLevel = 1
	MaxLevel = 3
)

// RemainingExpired is the terminal timer value. An expired timer cannot be
// restarted without removing and recreating the item.
const RemainingExpired = -1

// TodoItem is a todo entry with an optional running countdown timer
type TodoItem struct {
	ID string `json:"id"`
	// Text is non-empty after trimming; items that sanitize to empty text are
	// dropped on load.
	Text     string `json:"text"`
	Priority int    `json:"priority"`
	// AllocatedHours is fixed at creation and determines the initial countdown
	// duration (AllocatedHours * 3600 seconds).
	AllocatedHours   int  `json:"allocated_hours"`
	RemainingSeconds int  `json:"remaining_seconds"`
	Done             bool `json:"done"`
	IsRunning        bool `json:"is_running"`
}

// Expired reports whether the item's timer has reached the terminal state
func (t *TodoItem) Expired() bool {
	return t.RemainingSeconds == RemainingExpired
}

// ValidLevel reports whether v is an allowed priority/hours level
func ValidLevel(v int) bool {
	return v >= MinLevel && v <= MaxLevel
}

// DailyCounter is the persisted daily upload counter blob. The counter resets
// whenever the stored date stamp differs from the current calendar day.
type DailyCounter struct {
	Count     int    `json:"count"`
	DateStamp string `json:"date_stamp"`
}

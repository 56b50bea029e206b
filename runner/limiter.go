package runner

import "fmt"

// TurnLimitError is returned when a session exceeds its configured turn cap.
type TurnLimitError struct {
	Max int
}

func (e *TurnLimitError) Error() string {
	return fmt.Sprintf("turn limit exceeded: session would exceed %d provider calls", e.Max)
}

// TurnLimiter caps the number of provider calls in a single session. A model
// that always requests tools would otherwise loop until the context is
// cancelled. Each session owns its limiter; it is not shared across goroutines.
type TurnLimiter struct {
	max   int // 0 = unlimited
	count int
}

// NewTurnLimiter constructs a limiter allowing max provider calls, 0 meaning
// unlimited.
func NewTurnLimiter(max int) *TurnLimiter {
	return &TurnLimiter{max: max}
}

// Take consumes one turn, failing with *TurnLimitError once the cap is hit.
func (l *TurnLimiter) Take() error {
	if l.max > 0 && l.count >= l.max {
		return &TurnLimitError{Max: l.max}
	}
	l.count++
	return nil
}

// Count returns the number of turns consumed so far.
func (l *TurnLimiter) Count() int { return l.count }

package domain

import "fmt"

// InsufficientPointsError is returned when a redemption asks for more points
// than the session's balance holds. It carries both numbers so callers can
// tell the user exactly how short they are.
type InsufficientPointsError struct {
	Balance  int
	Required int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: balance %d, required %d", e.Balance, e.Required)
}

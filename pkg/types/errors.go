package types

import "fmt"

// VenueError represents a failed call to a venue or oracle API.
type VenueError struct {
	Venue      Venue  // Venue that failed
	Op         string // Operation, e.g. "fetch-markets"
	StatusCode int    // HTTP status if the failure was a non-2xx response
	Err        error
}

func (e *VenueError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed: status %d: %v", e.Venue, e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s %s failed: %v", e.Venue, e.Op, e.Err)
}

func (e *VenueError) Unwrap() error {
	return e.Err
}

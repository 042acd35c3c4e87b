package domain

import "time"

// Event represents a ticketed event (zone-based inventory). Gate scans only
// admit tickets whose parent event is currently marked active.
type Event struct {
	ID       string
	Name     string
	StartsAt time.Time
	Active   bool
}

package domain

import "time"

// ValidationRecord is the append-only audit row created exactly once per
// successful admission. The storage layer enforces a unique constraint on
// TicketID; that constraint, not application logic, is what makes admission
// exactly-once under concurrent scans.
type ValidationRecord struct {
	ID           string
	TicketID     string
	OperatorID   string
	Observations string
	Device       string
	RecordedAt   time.Time
}

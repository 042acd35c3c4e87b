package domain

import "time"

type TicketState string

const (
	TicketStateActive TicketState = "ACTIVE"
	TicketStateUsed   TicketState = "USED"
	TicketStateVoid   TicketState = "VOID"
)

// Ticket is a single admission right tied to one holder and one zone.
// Its identity is a random UUID so codes cannot be guessed or enumerated.
// IssuedToken holds the exact token bytes handed out at issuance; gate
// validation compares scanned codes against it to reject re-encrypted clones.
// Tickets are never deleted, only transitioned to USED or VOID.
type Ticket struct {
	ID          string
	Serial      int64
	ZoneID      string
	EventID     string
	HolderID    string
	HolderName  string
	State       TicketState
	IssuedToken string
	VoidReason  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanConsume checks the ACTIVE→USED transition without touching storage.
func (t Ticket) CanConsume() error {
	if t.State != TicketStateActive {
		return ErrAlreadyConsumed
	}
	return nil
}

// CanVoid checks the ACTIVE→VOID transition. A USED ticket is permanently
// non-voidable so the admission audit trail stays intact.
func (t Ticket) CanVoid() error {
	switch t.State {
	case TicketStateUsed:
		return ErrCannotVoidUsed
	case TicketStateVoid:
		return ErrAlreadyVoided
	}
	return nil
}

// MaxActiveTicketsPerHolder caps how many ACTIVE tickets one holder may hold
// for the same event, counted across all of the event's zones.
const MaxActiveTicketsPerHolder = 3

// ValidHolderID reports whether s is a well-formed national ID (8 digits).
func ValidHolderID(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package domain

// Zone represents a priced access tier for an event with a hard capacity
// ceiling. ActiveCount is the number of capacity slots currently taken;
// USED tickets keep their slot (capacity reflects total issued access),
// only voiding a ticket releases one.
type Zone struct {
	ID          string
	EventID     string
	Name        string
	Capacity    int
	ActiveCount int
	PriceCents  int64
}

// Remaining reports how many tickets can still be issued for the zone.
func (z Zone) Remaining() int {
	if z.ActiveCount >= z.Capacity {
		return 0
	}
	return z.Capacity - z.ActiveCount
}

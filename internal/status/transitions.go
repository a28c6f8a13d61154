package status

// validNext is the allowed transition graph. Terminal states map to an
// empty set; transitions to the same state are handled in CanTransition.
var validNext = map[State]map[State]bool{
	Pending:    {Processing: true, Shipped: true, Cancelled: true},
	Processing: {Shipped: true, Cancelled: true},
	Shipped:    {Delivered: true, Returned: true},
	Delivered:  {Completed: true, Returned: true, Refunded: true},
	Completed:  {Returned: true, Refunded: true},
	Cancelled:  {},
	Returned:   {},
	Refunded:   {},
}

// CanTransition reports whether a status change from one canonical state
// to another is allowed. Same-state changes are idempotent no-ops, and a
// transition involving an unknown label is permitted unconditionally
// (permissive fallback for labels that fail to normalize).
func CanTransition(from, to State) bool {
	if from == Unknown || to == Unknown {
		return true
	}
	if from == to {
		return true
	}
	return validNext[from][to]
}

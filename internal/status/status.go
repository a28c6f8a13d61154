package status

// State is one of the canonical lifecycle states shared by orders and
// order lines. Free-text labels (localized variants included) are mapped
// onto this closed set via Normalize; the transition graph and the
// aggregator only ever operate on canonical states.
type State string

const (
	Pending    State = "pending"
	Processing State = "processing"
	Shipped    State = "shipped"
	Delivered  State = "delivered"
	Completed  State = "completed"
	Cancelled  State = "cancelled"
	Returned   State = "returned"
	Refunded   State = "refunded"

	// Unknown is returned for labels that match no keyword set. Transitions
	// involving an unknown state are deliberately unconstrained.
	Unknown State = "unknown"
)

// Canonical lists every canonical state in lifecycle order.
var Canonical = []State{
	Pending, Processing, Shipped, Delivered,
	Completed, Cancelled, Returned, Refunded,
}

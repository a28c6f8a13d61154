package status

// Aggregate derives the order-level state from the set of per-line states.
// Rules apply in priority order, first match wins; this is what keeps the
// order-level status meaningful when sellers of a multi-vendor order
// fulfill their lines independently. Unknown or missing line states count
// as pending.
func Aggregate(lines []State) State {
	if len(lines) == 0 {
		return Pending
	}

	var (
		allCancelled      = true
		anyRefunded       bool
		anyReturned       bool
		allDeliveredDone  = true
		anyShippedOrLater bool
		anyProcessing     bool
	)
	for _, s := range lines {
		if s == Unknown {
			s = Pending
		}
		if s != Cancelled {
			allCancelled = false
		}
		if s != Delivered && s != Completed {
			allDeliveredDone = false
		}
		switch s {
		case Refunded:
			anyRefunded = true
		case Returned:
			anyReturned = true
		case Shipped, Delivered, Completed:
			anyShippedOrLater = true
		case Processing:
			anyProcessing = true
		}
	}

	switch {
	case allCancelled:
		return Cancelled
	case anyRefunded:
		return Refunded
	case anyReturned:
		return Returned
	case allDeliveredDone:
		return Delivered
	case anyShippedOrLater:
		return Shipped
	case anyProcessing:
		return Processing
	default:
		return Pending
	}
}

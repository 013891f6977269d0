package payment

// NextStatus maps a status string observed at the gateway onto the
// internal status. The mapping is fixed per transaction kind; anything
// unrecognized means "no change" so that a new or misspelled gateway
// status can never invent a terminal state. A terminal current status is
// never left.
func NextStatus(kind Kind, current Status, observed string) Status {
	if current.Terminal() {
		return current
	}

	switch kind {
	case KindDeposit:
		switch observed {
		case "Paid", "Completed":
			return StatusPaid
		case "Expired":
			return StatusExpired
		case "Failed":
			return StatusFailed
		}
	case KindWithdraw:
		switch observed {
		case "Completed", "Success":
			return StatusCompleted
		case "Rejected", "Failed":
			return StatusRejected
		}
	}

	return current
}

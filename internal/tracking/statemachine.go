package tracking

// allowedTransitions is the authoritative fulfillment state machine: linear
// forward progression, with cancellation possible from any non-terminal
// state. Backward transitions are illegal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether the state machine permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// SuccessorsOf returns the legal next statuses from the given one, in
// progression order.
func SuccessorsOf(from Status) []Status {
	order := []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	var successors []Status
	for _, s := range order {
		if allowedTransitions[from][s] {
			successors = append(successors, s)
		}
	}
	return successors
}

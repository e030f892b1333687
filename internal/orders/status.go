package orders

type Status string

const (
	StatusPending          Status = "PENDING"
	StatusPaymentInitiated Status = "PAYMENT_INITIATED"
	StatusPaid             Status = "PAID"
	StatusCancelled        Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:          {StatusPaymentInitiated: true},
	StatusPaymentInitiated: {StatusPaid: true, StatusCancelled: true},
	StatusPaid:             {},
	StatusCancelled:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no transition leaves the state.
func (s Status) Terminal() bool {
	return len(validNext[s]) == 0
}

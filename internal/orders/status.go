package orders

// Status keeps the numeric codes the back office has always stored.
type Status int

const (
	StatusPlaced    Status = 0
	StatusPaid      Status = 1
	StatusShipped   Status = 2
	StatusDelivered Status = 3
	StatusCancelled Status = 9
)

var validNext = map[Status]map[Status]bool{
	StatusPlaced:    {StatusPaid: true, StatusCancelled: true},
	StatusPaid:      {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

package orders

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var allStatuses = map[Status]bool{
	StatusPlaced:    true,
	StatusPreparing: true,
	StatusReady:     true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// ValidStatus is a membership check only. Any status may move to any other,
// including out of completed/cancelled; the admin endpoint is deliberately
// permissive.
func ValidStatus(s Status) bool { return allStatuses[s] }

// ActiveStatuses are the kitchen-facing states.
var ActiveStatuses = []Status{StatusPlaced, StatusPreparing, StatusReady}

// FinishedStatuses are the states shown on the history tab.
var FinishedStatuses = []Status{StatusCompleted, StatusCancelled}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentAwaiting PaymentStatus = "awaiting_confirmation"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentUPI PaymentMethod = "upi"
	PaymentCOD PaymentMethod = "cod"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	return m == PaymentUPI || m == PaymentCOD
}

type PaymentAction string

const (
	ActionConfirm PaymentAction = "confirm"
	ActionReject  PaymentAction = "reject"
)

type OrderType string

const (
	TypeDineIn   OrderType = "dine-in"
	TypeTakeaway OrderType = "takeaway"
)

func ValidOrderType(t OrderType) bool {
	return t == TypeDineIn || t == TypeTakeaway
}

// TakeawaySurcharge is added once to the total at placement.
const TakeawaySurcharge = 10

package orders

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bookcourier/internal/apperr"
)

// rank orders the fulfillment pipeline. Cancelled is off the pipeline.
var rank = map[Status]int{
	StatusPending:   0,
	StatusShipped:   1,
	StatusDelivered: 2,
}

// Transition is a guarded status change: it applies only when the current
// status is one of From.
type Transition struct {
	From   []Status
	To     Status
	Reason string
}

// Allows reports whether the transition may be applied to an order in current.
func (t Transition) Allows(current Status) bool {
	return slices.Contains(t.From, current)
}

// NoOp reports whether applying the transition to current leaves it unchanged.
func (t Transition) NoOp(current Status) bool {
	return current == t.To
}

// Cancellation moves a pending order to cancelled.
func Cancellation() Transition {
	return Transition{
		From:   []Status{StatusPending},
		To:     StatusCancelled,
		Reason: "only pending orders can be cancelled",
	}
}

// Fulfillment moves an order forward along the pipeline to target. Staying
// in place is allowed and reported as unmodified.
func Fulfillment(target Status) Transition {
	from := []Status{}
	for s, r := range rank {
		if r <= rank[target] {
			from = append(from, s)
		}
	}
	slices.SortFunc(from, func(a, b Status) int { return rank[a] - rank[b] })
	return Transition{
		From:   from,
		To:     target,
		Reason: "order cannot move from its current status to " + string(target),
	}
}

// ParseFulfillmentTarget validates a requested fulfillment status.
func ParseFulfillmentTarget(raw string) (Status, error) {
	s := Status(raw)
	if _, ok := rank[s]; !ok {
		return "", apperr.Validation("status must be one of pending, shipped, delivered")
	}
	return s, nil
}

// CanTransition reports whether an order may move from current to target
// through either the cancellation or the fulfillment path.
func CanTransition(current, target Status) bool {
	if target == StatusCancelled {
		return Cancellation().Allows(current)
	}
	if _, ok := rank[target]; !ok {
		return false
	}
	return Fulfillment(target).Allows(current)
}

// PaymentStatusFor maps a requested payment value onto the payment axis.
// Anything other than "paid" means unpaid.
func PaymentStatusFor(requested string) PaymentStatus {
	if PaymentStatus(requested) == PaymentPaid {
		return PaymentPaid
	}
	return PaymentUnpaid
}

// NewOrder builds a pending, unpaid order for book. The title is taken from
// the book when the request leaves it blank.
func NewOrder(userEmail string, book BookRef, title string, amount decimal.Decimal, now time.Time) *Order {
	if title == "" {
		title = book.Title
	}
	return &Order{
		ID:            uuid.New(),
		UserEmail:     userEmail,
		BookID:        book.ID,
		BookTitle:     title,
		Amount:        amount,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

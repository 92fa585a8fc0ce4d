// internal/orders/domain.go
package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the fulfillment state of an order. It is independent of payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is the simulated payment flag of an order.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Order is a buyer's purchase of one book.
type Order struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	UserEmail     string          `json:"userEmail" db:"user_email"`
	BookID        uuid.UUID       `json:"bookId" db:"book_id"`
	BookTitle     string          `json:"bookTitle" db:"book_title"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Status        Status          `json:"status" db:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus" db:"payment_status"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// PlaceOrder is the buyer's create request. Status fields sent by the client
// are decoded but never used.
type PlaceOrder struct {
	UserEmail     string           `json:"userEmail" validate:"required,email"`
	BookID        string           `json:"bookId" validate:"required,uuid"`
	BookTitle     string           `json:"bookTitle"`
	Amount        *decimal.Decimal `json:"amount" validate:"required"`
	Status        string           `json:"status,omitempty"`
	PaymentStatus string           `json:"paymentStatus,omitempty"`
}

// BookRef is the part of a catalog book an order needs.
type BookRef struct {
	ID      uuid.UUID
	Title   string
	AddedBy string
}

// Result is the outcome of a mutation. Modified is false when the write
// matched but left the order as it was.
type Result struct {
	Order    *Order
	Modified bool
}

// Filter narrows an order scan.
type Filter struct {
	PaymentStatus PaymentStatus
}

// OrderPlacedEvent is recorded when a buyer places an order.
type OrderPlacedEvent struct {
	ID        uuid.UUID       `json:"id"`
	UserEmail string          `json:"userEmail"`
	BookID    uuid.UUID       `json:"bookId"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderCancelledEvent is recorded on a successful cancellation.
type OrderCancelledEvent struct {
	ID uuid.UUID `json:"id"`
	By string    `json:"by"`
}

// OrderStatusChangedEvent is recorded when fulfillment moves an order.
type OrderStatusChangedEvent struct {
	ID   uuid.UUID `json:"id"`
	From Status    `json:"from"`
	To   Status    `json:"to"`
}

// OrderPaymentChangedEvent is recorded when the payment flag changes.
type OrderPaymentChangedEvent struct {
	ID            uuid.UUID     `json:"id"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

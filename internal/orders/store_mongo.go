package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

// OrdersCollection holds one document per order.
const OrdersCollection = "orders"

type orderDocument struct {
	ID            string               `bson:"_id"`
	UserEmail     string               `bson:"userEmail"`
	BookID        string               `bson:"bookId"`
	BookTitle     string               `bson:"bookTitle"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Status        string               `bson:"status"`
	PaymentStatus string               `bson:"paymentStatus"`
	CreatedAt     time.Time            `bson:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"`
}

func toOrderDocument(o *Order) (orderDocument, error) {
	amount, err := primitive.ParseDecimal128(o.Amount.String())
	if err != nil {
		return orderDocument{}, fmt.Errorf("encode amount: %w", err)
	}
	return orderDocument{
		ID:            o.ID.String(),
		UserEmail:     o.UserEmail,
		BookID:        o.BookID.String(),
		BookTitle:     o.BookTitle,
		Amount:        amount,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}, nil
}

func (d orderDocument) order() (*Order, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode order id %q: %w", d.ID, err)
	}
	bookID, err := uuid.Parse(d.BookID)
	if err != nil {
		return nil, fmt.Errorf("decode book id of order %s: %w", d.ID, err)
	}
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("decode amount of order %s: %w", d.ID, err)
	}
	return &Order{
		ID:            id,
		UserEmail:     d.UserEmail,
		BookID:        bookID,
		BookTitle:     d.BookTitle,
		Amount:        amount,
		Status:        Status(d.Status),
		PaymentStatus: PaymentStatus(d.PaymentStatus),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

type mongoStore struct {
	orders *mongo.Collection
}

// NewMongoStore returns a Store over the orders collection of db.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{orders: db.Collection(OrdersCollection)}
}

func (s *mongoStore) Insert(ctx context.Context, order *Order) error {
	doc, err := toOrderDocument(order)
	if err != nil {
		return apperr.Store("insert order", err)
	}
	if _, err := s.orders.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("order %s already exists", order.ID)
		}
		return apperr.Store("insert order", err)
	}
	return nil
}

func (s *mongoStore) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	var doc orderDocument
	err := s.orders.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("order %s", id)
	}
	if err != nil {
		return nil, apperr.Store("get order", err)
	}
	order, err := doc.order()
	if err != nil {
		return nil, apperr.Store("get order", err)
	}
	return order, nil
}

func scopeFilter(scope visibility.OrderScope) bson.D {
	filter := bson.D{}
	if scope.ByBook {
		ids := lo.Map(scope.BookIDs, func(id uuid.UUID, _ int) string { return id.String() })
		filter = append(filter, bson.E{Key: "bookId", Value: bson.D{{Key: "$in", Value: ids}}})
	}
	if scope.UserEmail != "" {
		filter = append(filter, bson.E{Key: "userEmail", Value: scope.UserEmail})
	}
	return filter
}

func (s *mongoStore) List(ctx context.Context, scope visibility.OrderScope, filter Filter) ([]*Order, error) {
	orders := []*Order{}
	if scope.Empty() {
		return orders, nil
	}

	query := scopeFilter(scope)
	if filter.PaymentStatus != "" {
		query = append(query, bson.E{Key: "paymentStatus", Value: string(filter.PaymentStatus)})
	}
	cur, err := s.orders.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, apperr.Store("list orders", err)
	}
	var docs []orderDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperr.Store("list orders", err)
	}
	for _, doc := range docs {
		order, err := doc.order()
		if err != nil {
			return nil, apperr.Store("list orders", err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// setIfChanged is an update pipeline stage writing value to field and moving
// updatedAt only when the stored value differs.
func setIfChanged(field, value string, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "updatedAt", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$" + field, value}}},
				"$updatedAt",
				now,
			}}}},
			{Key: field, Value: value},
		}}},
	}
}

// findAndSet runs a guarded update and returns the order after the write and
// the value field held before it.
func (s *mongoStore) findAndSet(ctx context.Context, filter bson.D, field, value string, now time.Time) (*Order, string, error) {
	var before orderDocument
	err := s.orders.FindOneAndUpdate(ctx, filter, setIfChanged(field, value, now),
		options.FindOneAndUpdate().SetReturnDocument(options.Before)).Decode(&before)
	if err != nil {
		return nil, "", err
	}
	order, err := before.order()
	if err != nil {
		return nil, "", err
	}
	var previous string
	switch field {
	case "status":
		previous = string(order.Status)
		order.Status = Status(value)
	case "paymentStatus":
		previous = string(order.PaymentStatus)
		order.PaymentStatus = PaymentStatus(value)
	}
	if previous != value {
		order.UpdatedAt = now
	}
	return order, previous, nil
}

func (s *mongoStore) Transition(ctx context.Context, id uuid.UUID, t Transition, scope *visibility.OrderScope, now time.Time) (*Order, Status, error) {
	if scope != nil && scope.Empty() {
		return nil, "", apperr.NotFound("order %s", id)
	}

	from := lo.Map(t.From, func(st Status, _ int) string { return string(st) })
	filter := bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "status", Value: bson.D{{Key: "$in", Value: from}}},
	}
	if scope != nil {
		filter = append(filter, scopeFilter(*scope)...)
	}

	order, previous, err := s.findAndSet(ctx, filter, "status", string(t.To), now)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, getErr := s.Get(ctx, id)
		return nil, "", classifyMiss(current, getErr, id, t, scope)
	}
	if err != nil {
		return nil, "", apperr.Store("transition order", err)
	}
	return order, Status(previous), nil
}

func (s *mongoStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, ps PaymentStatus, now time.Time) (*Order, bool, error) {
	order, previous, err := s.findAndSet(ctx, bson.D{{Key: "_id", Value: id.String()}}, "paymentStatus", string(ps), now)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, apperr.NotFound("order %s", id)
	}
	if err != nil {
		return nil, false, apperr.Store("update order payment", err)
	}
	return order, previous != string(ps), nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.orders.Database().Client().Ping(ctx, nil)
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bookcourier/internal/apperr"
	"bookcourier/internal/visibility"
)

// BooksCollection holds one document per book.
const BooksCollection = "books"

type bookDocument struct {
	ID          string               `bson:"_id"`
	CustomID    string               `bson:"customId,omitempty"`
	BookName    string               `bson:"bookName"`
	BookAuthor  string               `bson:"bookAuthor"`
	BookImage   string               `bson:"bookImage"`
	Price       primitive.Decimal128 `bson:"price"`
	Category    string               `bson:"category,omitempty"`
	Description string               `bson:"description,omitempty"`
	AddedBy     string               `bson:"addedBy"`
	Status      string               `bson:"status"`
	CreatedAt   time.Time            `bson:"createdAt"`
	UpdatedAt   time.Time            `bson:"updatedAt"`
}

func toBookDocument(b *Book) (bookDocument, error) {
	price, err := primitive.ParseDecimal128(b.Price.String())
	if err != nil {
		return bookDocument{}, fmt.Errorf("encode price: %w", err)
	}
	return bookDocument{
		ID:          b.ID.String(),
		CustomID:    b.CustomID,
		BookName:    b.BookName,
		BookAuthor:  b.BookAuthor,
		BookImage:   b.BookImage,
		Price:       price,
		Category:    b.Category,
		Description: b.Description,
		AddedBy:     b.AddedBy,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}, nil
}

func (d bookDocument) book() (*Book, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode book id %q: %w", d.ID, err)
	}
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("decode price of book %s: %w", d.ID, err)
	}
	return &Book{
		ID:          id,
		CustomID:    d.CustomID,
		BookName:    d.BookName,
		BookAuthor:  d.BookAuthor,
		BookImage:   d.BookImage,
		Price:       price,
		Category:    d.Category,
		Description: d.Description,
		AddedBy:     d.AddedBy,
		Status:      BookStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type mongoStore struct {
	books *mongo.Collection
}

// NewMongoStore returns a Store over the books collection of db.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{books: db.Collection(BooksCollection)}
}

func (s *mongoStore) Insert(ctx context.Context, book *Book) error {
	doc, err := toBookDocument(book)
	if err != nil {
		return apperr.Store("insert book", err)
	}
	if _, err := s.books.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Conflict("custom id %q is already in use", book.CustomID)
		}
		return apperr.Store("insert book", err)
	}
	return nil
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.D, notFound error) (*Book, error) {
	var doc bookDocument
	err := s.books.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, apperr.Store("find book", err)
	}
	book, err := doc.book()
	if err != nil {
		return nil, apperr.Store("find book", err)
	}
	return book, nil
}

func (s *mongoStore) Get(ctx context.Context, id uuid.UUID) (*Book, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}}, apperr.NotFound("book %s", id))
}

func (s *mongoStore) GetByCustomID(ctx context.Context, customID string) (*Book, error) {
	notFound := apperr.NotFound("book with custom id %q", customID)
	if customID == "" {
		return nil, notFound
	}
	return s.findOne(ctx, bson.D{{Key: "customId", Value: customID}}, notFound)
}

func (s *mongoStore) List(ctx context.Context, scope visibility.BookScope) ([]*Book, error) {
	books := []*Book{}
	if scope.IsZero() {
		return books, nil
	}

	filter := bson.D{}
	if scope.PublishedOnly {
		filter = append(filter, bson.E{Key: "status", Value: visibility.Published})
	}
	if scope.AddedBy != "" {
		filter = append(filter, bson.E{Key: "addedBy", Value: scope.AddedBy})
	}

	cur, err := s.books.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, apperr.Store("list books", err)
	}
	var docs []bookDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, apperr.Store("list books", err)
	}
	for _, doc := range docs {
		book, err := doc.book()
		if err != nil {
			return nil, apperr.Store("list books", err)
		}
		books = append(books, book)
	}
	return books, nil
}

func (s *mongoStore) Update(ctx context.Context, id uuid.UUID, patch BookPatch, now time.Time) (*Book, error) {
	set := bson.D{{Key: "updatedAt", Value: now}}
	unset := bson.D{}
	field := func(key string, value interface{}) { set = append(set, bson.E{Key: key, Value: value}) }

	if patch.CustomID != nil {
		if *patch.CustomID == "" {
			unset = append(unset, bson.E{Key: "customId", Value: ""})
		} else {
			field("customId", *patch.CustomID)
		}
	}
	if patch.BookName != nil {
		field("bookName", *patch.BookName)
	}
	if patch.BookAuthor != nil {
		field("bookAuthor", *patch.BookAuthor)
	}
	if patch.BookImage != nil {
		field("bookImage", *patch.BookImage)
	}
	if patch.Price != nil {
		price, err := primitive.ParseDecimal128(patch.Price.String())
		if err != nil {
			return nil, apperr.Validation("price: %v", err)
		}
		field("price", price)
	}
	if patch.Category != nil {
		field("category", *patch.Category)
	}
	if patch.Description != nil {
		field("description", *patch.Description)
	}
	if patch.Status != nil {
		field("status", string(*patch.Status))
	}

	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}
	filter := bson.D{{Key: "_id", Value: id.String()}, {Key: "addedBy", Value: patch.AddedBy}}

	var doc bookDocument
	err := s.books.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("book %s for librarian %s", id, patch.AddedBy)
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Conflict("custom id is already in use")
		}
		return nil, apperr.Store("update book", err)
	}
	book, err := doc.book()
	if err != nil {
		return nil, apperr.Store("update book", err)
	}
	return book, nil
}

func (s *mongoStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.books.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return apperr.Store("delete book", err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("book %s", id)
	}
	return nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.books.Database().Client().Ping(ctx, nil)
}

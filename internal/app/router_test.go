package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookcourier/internal/config"
)

type client struct {
	t   *testing.T
	srv *httptest.Server
}

func newServer(t *testing.T, mutate ...func(*config.Config)) *client {
	t.Helper()
	cfg := config.Config{
		StoreDriver:    config.DriverMemory,
		RequestTimeout: 5 * time.Second,
		CORSOrigins:    []string{"*"},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), RoleAll)
	require.NoError(t, err)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = a.Close(context.Background())
	})
	return &client{t: t, srv: srv}
}

func (c *client) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, rdr)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

func (c *client) decode(method, path string, body any, wantStatus int, out any) {
	c.t.Helper()
	status, raw := c.do(method, path, body)
	require.Equal(c.t, wantStatus, status, string(raw))
	if out != nil {
		require.NoError(c.t, json.Unmarshal(raw, out))
	}
}

type ack struct {
	Acknowledged  bool   `json:"acknowledged"`
	InsertedID    string `json:"insertedId"`
	MatchedCount  *int   `json:"matchedCount"`
	ModifiedCount *int   `json:"modifiedCount"`
	DeletedCount  *int   `json:"deletedCount"`
}

type orderView struct {
	ID            string          `json:"id"`
	UserEmail     string          `json:"userEmail"`
	BookID        string          `json:"bookId"`
	BookTitle     string          `json:"bookTitle"`
	Amount        json.RawMessage `json:"amount"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
}

func book(owner string, extra map[string]any) map[string]any {
	b := map[string]any{
		"bookName":   "Things Fall Apart",
		"bookAuthor": "Chinua Achebe",
		"bookImage":  "https://img.example.com/tfa.jpg",
		"price":      18.5,
		"addedBy":    owner,
	}
	for k, v := range extra {
		b[k] = v
	}
	return b
}

func (c *client) createBook(owner string, extra map[string]any) string {
	c.t.Helper()
	var a ack
	c.decode(http.MethodPost, "/librarian/books", book(owner, extra), http.StatusCreated, &a)
	require.True(c.t, a.Acknowledged)
	return a.InsertedID
}

func (c *client) placeOrder(user, bookID string) string {
	c.t.Helper()
	var a ack
	c.decode(http.MethodPost, "/orders", map[string]any{
		"userEmail": user,
		"bookId":    bookID,
		"amount":    18.5,
	}, http.StatusCreated, &a)
	return a.InsertedID
}

func TestBannerAndHealth(t *testing.T) {
	c := newServer(t)

	status, body := c.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "BookCourier Server Running...", string(body))

	var health map[string]string
	c.decode(http.MethodGet, "/healthz", nil, http.StatusOK, &health)
	assert.Equal(t, "ok", health["status"])

	status, _ = c.do(http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCatalogVisibility(t *testing.T) {
	c := newServer(t)
	published := c.createBook("lib@example.com", nil)
	hidden := c.createBook("lib@example.com", map[string]any{"status": "unpublished", "customId": "tfa-draft"})

	var books []map[string]any
	c.decode(http.MethodGet, "/books", nil, http.StatusOK, &books)
	require.Len(t, books, 1)
	assert.Equal(t, published, books[0]["id"])
	assert.Equal(t, 18.5, books[0]["price"], "prices are JSON numbers")

	status, _ := c.do(http.MethodGet, "/books/"+hidden, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = c.do(http.MethodGet, "/books/custom/tfa-draft", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = c.do(http.MethodGet, "/books/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	c.decode(http.MethodGet, "/librarian/lib@example.com/books", nil, http.StatusOK, &books)
	assert.Len(t, books, 2)
	for _, b := range books {
		if b["id"] == published {
			assert.Equal(t, "published", b["status"], "omitted status defaults to published")
		}
	}
}

func TestCreateBookMissingFields(t *testing.T) {
	c := newServer(t)
	var body map[string]string
	c.decode(http.MethodPost, "/librarian/books", map[string]any{"bookName": "x"}, http.StatusBadRequest, &body)
	assert.Contains(t, body["error"], "missing required fields")

	var books []map[string]any
	c.decode(http.MethodGet, "/books", nil, http.StatusOK, &books)
	assert.Empty(t, books)
}

func TestBookUpdateAndDelete(t *testing.T) {
	c := newServer(t)
	id := c.createBook("lib@example.com", nil)

	status, _ := c.do(http.MethodPatch, "/librarian/books/"+id, map[string]any{"addedBy": "thief@example.com", "bookName": "Mine"})
	assert.Equal(t, http.StatusNotFound, status)

	var a ack
	c.decode(http.MethodPatch, "/librarian/books/"+id, map[string]any{"addedBy": "lib@example.com", "status": "unpublished"}, http.StatusOK, &a)
	assert.Equal(t, 1, *a.MatchedCount)

	status, _ = c.do(http.MethodGet, "/books/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)

	c.decode(http.MethodDelete, "/librarian/books/"+id, nil, http.StatusOK, &a)
	assert.Equal(t, 1, *a.DeletedCount)
	status, _ = c.do(http.MethodDelete, "/librarian/books/"+id, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	c := newServer(t)
	bookID := c.createBook("lib@example.com", nil)

	var a ack
	c.decode(http.MethodPost, "/orders", map[string]any{
		"userEmail":     "buyer@example.com",
		"bookId":        bookID,
		"amount":        18.5,
		"status":        "paid",
		"paymentStatus": "paid",
	}, http.StatusCreated, &a)
	orderID := a.InsertedID

	var o orderView
	c.decode(http.MethodGet, "/orders/"+orderID, nil, http.StatusOK, &o)
	assert.Equal(t, "pending", o.Status)
	assert.Equal(t, "unpaid", o.PaymentStatus)
	assert.Equal(t, "Things Fall Apart", o.BookTitle)

	c.decode(http.MethodPatch, "/orders/"+orderID, map[string]any{"status": "paid"}, http.StatusOK, &a)
	assert.Equal(t, 1, *a.ModifiedCount)
	c.decode(http.MethodGet, "/orders/"+orderID, nil, http.StatusOK, &o)
	assert.Equal(t, "pending", o.Status, "payment never writes status")
	assert.Equal(t, "paid", o.PaymentStatus)

	status, _ := c.do(http.MethodPatch, "/librarian/orders/"+orderID+"/status", map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusBadRequest, status)

	c.decode(http.MethodPatch, "/librarian/orders/"+orderID+"/status", map[string]any{"status": "shipped", "librarianEmail": "lib@example.com"}, http.StatusOK, &a)
	assert.Equal(t, 1, *a.ModifiedCount)
	c.decode(http.MethodPatch, "/librarian/orders/"+orderID+"/status", map[string]any{"status": "shipped"}, http.StatusOK, &a)
	assert.Equal(t, 0, *a.ModifiedCount)

	status, _ = c.do(http.MethodPatch, "/orders/cancel/"+orderID, nil)
	assert.Equal(t, http.StatusConflict, status)

	var payments []orderView
	c.decode(http.MethodGet, "/user/payments/buyer@example.com", nil, http.StatusOK, &payments)
	require.Len(t, payments, 1)
	assert.Equal(t, orderID, payments[0].ID)

	var history []map[string]any
	c.decode(http.MethodGet, "/orders/"+orderID+"/history", nil, http.StatusOK, &history)
	types := make([]any, len(history))
	for i, e := range history {
		types[i] = e["eventType"]
	}
	assert.Equal(t, []any{"OrderPlaced", "OrderPaymentChanged", "OrderStatusChanged"}, types)
}

func TestCancelTwiceOverHTTP(t *testing.T) {
	c := newServer(t)
	orderID := c.placeOrder("buyer@example.com", c.createBook("lib@example.com", nil))

	var a ack
	c.decode(http.MethodPatch, "/orders/cancel/"+orderID, map[string]any{"userEmail": "buyer@example.com"}, http.StatusOK, &a)
	assert.Equal(t, 1, *a.ModifiedCount)

	var body map[string]string
	c.decode(http.MethodPatch, "/orders/cancel/"+orderID, nil, http.StatusConflict, &body)
	assert.Contains(t, body["error"], "only pending orders can be cancelled")

	status, _ := c.do(http.MethodPatch, "/orders/cancel/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestOrderAgainstUnpublishedBook(t *testing.T) {
	c := newServer(t)
	hidden := c.createBook("lib@example.com", map[string]any{"status": "unpublished"})

	status, _ := c.do(http.MethodPost, "/orders", map[string]any{"userEmail": "buyer@example.com", "bookId": hidden, "amount": 5})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLibrarianOrdersOverHTTP(t *testing.T) {
	c := newServer(t)
	mine := c.placeOrder("buyer@example.com", c.createBook("a@example.com", nil))
	c.placeOrder("buyer@example.com", c.createBook("b@example.com", nil))

	var got []orderView
	c.decode(http.MethodGet, "/librarian/a@example.com/orders", nil, http.StatusOK, &got)
	require.Len(t, got, 1)
	assert.Equal(t, mine, got[0].ID)

	c.decode(http.MethodGet, "/librarian/nobody@example.com/orders", nil, http.StatusOK, &got)
	assert.Empty(t, got)

	c.decode(http.MethodGet, "/user/orders/buyer@example.com", nil, http.StatusOK, &got)
	assert.Len(t, got, 2)
}

func TestLibrarianCancelPolicyOverHTTP(t *testing.T) {
	c := newServer(t)
	orderID := c.placeOrder("buyer@example.com", c.createBook("lib@example.com", nil))
	status, _ := c.do(http.MethodPatch, "/librarian/orders/"+orderID+"/cancel", map[string]any{"librarianEmail": "lib@example.com"})
	assert.Equal(t, http.StatusForbidden, status)

	c = newServer(t, func(cfg *config.Config) { cfg.AllowLibrarianCancel = true })
	orderID = c.placeOrder("buyer@example.com", c.createBook("lib@example.com", nil))
	status, _ = c.do(http.MethodPatch, "/librarian/orders/"+orderID+"/cancel", map[string]any{"librarianEmail": "lib@example.com"})
	assert.Equal(t, http.StatusOK, status)
}

func TestCORSPreflight(t *testing.T) {
	c := newServer(t)
	req, err := http.NewRequest(http.MethodOptions, c.srv.URL+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

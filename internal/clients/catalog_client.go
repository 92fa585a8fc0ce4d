// internal/clients/catalog_client.go
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sony/gobreaker"

	"bookcourier/internal/apperr"
	"bookcourier/internal/catalog"
	"bookcourier/internal/orders"
)

// CatalogClient resolves books through the catalog service's public HTTP
// routes. It satisfies orders.BookDirectory for the split deployment.
type CatalogClient struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "catalog",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			// A missing book is an answer, not a catalog failure.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, apperr.ErrNotFound)
			},
		}),
	}
}

var _ orders.BookDirectory = (*CatalogClient)(nil)

func (c *CatalogClient) PublishedBook(ctx context.Context, id uuid.UUID) (orders.BookRef, error) {
	var book catalog.Book
	if err := c.get(ctx, "/books/"+id.String(), &book); err != nil {
		return orders.BookRef{}, err
	}
	return orders.BookRef{ID: book.ID, Title: book.BookName, AddedBy: book.AddedBy}, nil
}

func (c *CatalogClient) OwnedBookIDs(ctx context.Context, librarian string) ([]uuid.UUID, error) {
	var books []catalog.Book
	if err := c.get(ctx, "/librarian/"+url.PathEscape(librarian)+"/books", &books); err != nil {
		return nil, err
	}
	return lo.Map(books, func(b catalog.Book, _ int) uuid.UUID { return b.ID }), nil
}

func (c *CatalogClient) get(ctx context.Context, path string, out any) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, path, out)
	})
	if err == nil || apperr.Classified(err) {
		return err
	}
	return apperr.Store("catalog request "+path, err)
}

func (c *CatalogClient) do(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return json.NewDecoder(resp.Body).Decode(out)
	case http.StatusNotFound:
		return apperr.NotFound("catalog %s", path)
	case http.StatusBadRequest:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperr.Validation("catalog rejected %s: %s", path, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// internal/catalog/handler.go
package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookcourier/internal/httpx"
)

type Handler struct {
	service Service
	log     *slog.Logger
}

func NewHandler(service Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Register mounts the buyer and librarian catalog routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/books", h.handleListPublished)
	r.Get("/books/custom/{customID}", h.handleGetByCustomID)
	r.Get("/books/{id}", h.handleGetPublished)

	r.Post("/librarian/books", h.handleCreate)
	r.Patch("/librarian/books/{id}", h.handleUpdate)
	r.Delete("/librarian/books/{id}", h.handleDelete)
	r.Get("/librarian/{email}/books", h.handleListByLibrarian)
}

func (h *Handler) handleListPublished(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.PublishedBooks(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

func (h *Handler) handleGetPublished(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "book")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	book, err := h.service.PublishedBook(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) handleGetByCustomID(w http.ResponseWriter, r *http.Request) {
	customID, err := httpx.PathString(r, "customID")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	book, err := h.service.PublishedBookByCustomID(r.Context(), customID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req NewBook
	if err := httpx.Decode(r, &req, false); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	book, err := h.service.CreateBook(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Inserted(book.ID))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "book")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var patch BookPatch
	if err := httpx.Decode(r, &patch, false); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if _, err := h.service.UpdateBook(r.Context(), id, patch); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Updated(true))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "book")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.Deleted())
}

func (h *Handler) handleListByLibrarian(w http.ResponseWriter, r *http.Request) {
	email, err := httpx.PathString(r, "email")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	books, err := h.service.LibrarianBooks(r.Context(), email)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, books)
}

// internal/orders/handler.go
package orders

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

// Register mounts the buyer, user and librarian order routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/orders", h.handlePlace)
	r.Get("/orders/{id}", h.handleGet)
	r.Get("/orders/{id}/history", h.handleHistory)
	r.Patch("/orders/cancel/{id}", h.handleCancelByUser)
	r.Patch("/orders/{id}", h.handlePayment)

	r.Get("/user/orders/{email}", h.handleUserOrders)
	r.Get("/user/payments/{email}", h.handleUserPayments)

	r.Get("/librarian/{email}/orders", h.handleLibrarianOrders)
	r.Patch("/librarian/orders/{id}/status", h.handleFulfillment)
	r.Patch("/librarian/orders/{id}/cancel", h.handleCancelByLibrarian)
}

func (h *Handler) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrder
	if err := httpx.Decode(r, &req, false); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	order, err := h.service.PlaceOrder(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, httpx.Inserted(order.ID))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "order")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "order")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	events, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, events)
}

func (h *Handler) handleCancelByUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "order")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req struct {
		UserEmail string `json:"userEmail"`
	}
	if err := httpx.Decode(r, &req, true); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.service.CancelByUser(r.Context(), id, req.UserEmail))
}

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "order")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := httpx.Decode(r, &req, true); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.service.UpdatePayment(r.Context(), id, req.Status))
}

func (h *Handler) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	email, err := httpx.PathString(r, "email")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	orders, err := h.service.UserOrders(r.Context(), email)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) handleUserPayments(w http.ResponseWriter, r *http.Request) {
	email, err := httpx.PathString(r, "email")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	orders, err := h.service.UserPayments(r.Context(), email)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) handleLibrarianOrders(w http.ResponseWriter, r *http.Request) {
	email, err := httpx.PathString(r, "email")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	orders, err := h.service.LibrarianOrders(r.Context(), email)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) handleFulfillment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "order")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req struct {
		Status         string `json:"status"`
		LibrarianEmail string `json:"librarianEmail"`
	}
	if err := httpx.Decode(r, &req, false); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.service.UpdateFulfillment(r.Context(), id, req.Status, req.LibrarianEmail))
}

func (h *Handler) handleCancelByLibrarian(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id", "order")
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var req struct {
		LibrarianEmail string `json:"librarianEmail"`
	}
	if err := httpx.Decode(r, &req, true); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	h.respond(w, r)(h.service.CancelByLibrarian(r.Context(), id, req.LibrarianEmail))
}

// respond writes the acknowledgment for a single-order mutation.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request) func(Result, error) {
	return func(res Result, err error) {
		if err != nil {
			httpx.Error(w, r, h.log, err)
			return
		}
		httpx.JSON(w, http.StatusOK, httpx.Updated(res.Modified))
	}
}

package item

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wardrobe/service/internal/middleware"
	"github.com/wardrobe/service/internal/response"
)

// Handler holds HTTP handlers for item endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new item Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Routes returns the item endpoints. Callers must mount them behind RequireAuth.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
	return r
}

// Create godoc
//
//	@Summary		Create item
//	@Description	Stores a wardrobe item whose photo was uploaded beforehand. imageKey must be one of the caller's own keys.
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateInput	true	"Item attributes"
//	@Success		201		{object}	response.Envelope{data=Item}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/items [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	if owner == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	it, err := h.svc.Create(r.Context(), owner, in)
	if errors.Is(err, ErrInvalid) {
		response.BadRequest(w, err.Error())
		return
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, it)
}

// List godoc
//
//	@Summary		List items
//	@Tags			items
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Item}
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/items [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	if owner == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	items, err := h.svc.List(r.Context(), owner)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, items)
}

// Get godoc
//
//	@Summary		Get item
//	@Tags			items
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Item ID"
//	@Success		200	{object}	response.Envelope{data=Item}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/items/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	if owner == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	it, err := h.svc.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "item not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, it)
}

// Delete godoc
//
//	@Summary		Delete item
//	@Description	Deletes the item and removes its photo from object storage.
//	@Tags			items
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Item ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/items/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner := middleware.UserID(r.Context())
	if owner == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.svc.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "item not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]bool{"deleted": true})
}

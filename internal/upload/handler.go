package upload

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/wardrobe/service/internal/middleware"
	"github.com/wardrobe/service/internal/response"
)

// CacheControl marks proxied objects as immutable: a key is never rewritten in place.
const CacheControl = "public, max-age=31536000, immutable"

// multipartOverhead bounds the non-file bytes accepted around an upload.
const multipartOverhead = 1 << 20

// Handler holds HTTP handlers for upload endpoints.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes mounts the upload endpoints. requireAuth guards everything but retrieval.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/image/*", h.FetchImage)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", h.UploadDirect)
		r.Get("/presign", h.IssueUploadGrant)
		r.Post("/presign", h.IssueUploadGrant)
	})
	return r
}

type presignRequest struct {
	Filename    string `json:"filename"    example:"shoe.png"`
	ContentType string `json:"contentType" example:"image/png"`
}

// IssueUploadGrant godoc
//
//	@Summary		Issue presigned upload
//	@Description	Returns a signed form the client POSTs directly to object storage. Only image/* uploads between 1000 and 10000000 bytes are accepted; the grant expires after one hour.
//	@Tags			upload
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			filename	query		string			false	"Original file name"
//	@Param			contentType	query		string			false	"MIME type, must start with image/"
//	@Param			request		body		presignRequest	false	"Alternative to query parameters"
//	@Success		200			{object}	UploadGrant
//	@Failure		400			{object}	response.Envelope
//	@Failure		401			{object}	response.Envelope
//	@Failure		500			{object}	response.Envelope
//	@Router			/upload/presign [get]
//	@Router			/upload/presign [post]
func (h *Handler) IssueUploadGrant(w http.ResponseWriter, r *http.Request) {
	req := presignRequest{
		Filename:    r.URL.Query().Get("filename"),
		ContentType: r.URL.Query().Get("contentType"),
	}
	if r.Method == http.MethodPost && r.ContentLength != 0 && isJSON(r) {
		var body presignRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if body.Filename != "" {
			req.Filename = body.Filename
		}
		if body.ContentType != "" {
			req.ContentType = body.ContentType
		}
	}
	if req.Filename == "" || req.ContentType == "" {
		response.BadRequest(w, "filename and contentType are required")
		return
	}

	grant, err := h.svc.IssueUploadGrant(r.Context(), req.Filename, req.ContentType, ownerID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, grant)
}

// UploadDirect godoc
//
//	@Summary		Upload image through the server
//	@Description	Fallback to presigned upload. Accepts a multipart "file" field, validates it is an image of 1000 to 10000000 bytes and stores it.
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	Uploaded
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/upload [post]
func (h *Handler) UploadDirect(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)
	if owner == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+multipartOverhead)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, "file too large")
			return
		}
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		response.BadRequest(w, "could not read file")
		return
	}

	result, err := h.svc.UploadDirect(r.Context(), owner, &File{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		FileName:    header.Filename,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}

// FetchImage godoc
//
//	@Summary		Fetch stored image
//	@Description	Streams the object stored at key. The key may be sent as one escaped segment or as multiple path segments. Responses are cacheable for one year.
//	@Tags			upload
//	@Produce		octet-stream
//	@Param			key	path		string	true	"Storage key"
//	@Success		200	{file}		binary
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/upload/image/{key} [get]
func (h *Handler) FetchImage(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromPath(r)
	if err != nil {
		response.NotFound(w, "image not found")
		return
	}

	obj, err := h.svc.FetchObject(r.Context(), key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", CacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		h.log.Debug().Err(err).Str("key", key).Msg("client went away during image write")
	}
}

// writeError maps service errors onto HTTP statuses. Storage details never reach the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		response.Unauthorized(w, "unauthorized")
	case errors.Is(err, ErrValidation):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "image not found")
	default:
		response.InternalError(w)
	}
}

// keyFromPath rebuilds the storage key from the wildcard segment(s).
// chi routes on the escaped path when the request carried escapes, so the
// segments are unescaped only in that case.
func keyFromPath(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return raw, nil
	}
	segments := strings.Split(raw, "/")
	for i, seg := range segments {
		s, err := url.PathUnescape(seg)
		if err != nil {
			return "", err
		}
		segments[i] = s
	}
	return strings.Join(segments, "/"), nil
}

func ownerID(r *http.Request) string {
	return middleware.UserID(r.Context())
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

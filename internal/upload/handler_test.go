package upload

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobe/service/internal/auth"
	"github.com/wardrobe/service/internal/middleware"
	"github.com/wardrobe/service/internal/response"
)

const testSecret = "handler-test-secret"

func newTestRouter(t *testing.T, b *recordingBackend) http.Handler {
	t.Helper()
	h := NewHandler(newTestService(b), zerolog.Nop())
	r := chi.NewRouter()
	r.Mount("/api/upload", h.Routes(middleware.RequireAuth(testSecret)))
	return r
}

func bearer(t *testing.T, owner string) string {
	t.Helper()
	token, err := auth.IssueToken(testSecret, owner, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func multipartBody(t *testing.T, fileName, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestPresignEndpointQuery(t *testing.T) {
	b := newRecordingBackend()
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodGet, "/api/upload/presign?filename=shoe.png&contentType=image/png", nil)
	req.Header.Set("Authorization", bearer(t, "user_42"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var grant UploadGrant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	assert.Regexp(t, grantKeyPattern, grant.Key)
	assert.NotEmpty(t, grant.URL)
	assert.Equal(t, grant.Key, grant.Fields["key"])
}

func TestPresignEndpointJSONBody(t *testing.T) {
	b := newRecordingBackend()
	router := newTestRouter(t, b)

	body := strings.NewReader(`{"filename":"shoe.png","contentType":"image/png"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/presign", body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "user_42"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var grant UploadGrant
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	assert.Regexp(t, grantKeyPattern, grant.Key)
}

func TestPresignEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		method string
		target string
		body   string
		auth   bool
		status int
	}{
		{"no identity", http.MethodGet, "/api/upload/presign?filename=a.png&contentType=image/png", "", false, http.StatusUnauthorized},
		{"missing params", http.MethodGet, "/api/upload/presign?filename=a.png", "", true, http.StatusBadRequest},
		{"pdf", http.MethodGet, "/api/upload/presign?filename=a.pdf&contentType=application/pdf", "", true, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/upload/presign", "{", true, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newRecordingBackend()
			router := newTestRouter(t, b)

			req := httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tc.auth {
				req.Header.Set("Authorization", bearer(t, "user_42"))
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
			assert.Zero(t, b.calls)
		})
	}
}

func TestPresignEndpointStorageFailure(t *testing.T) {
	b := newRecordingBackend()
	b.fail = errors.New("signature backend exploded")
	router := newTestRouter(t, b)

	req := httptest.NewRequest(http.MethodGet, "/api/upload/presign?filename=shoe.png&contentType=image/png", nil)
	req.Header.Set("Authorization", bearer(t, "user_42"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "exploded")
}

func TestDirectUploadThenFetch(t *testing.T) {
	b := newRecordingBackend()
	router := newTestRouter(t, b)
	data := testPNG(t, 40)

	body, ct := multipartBody(t, "a.png", "image/png", data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "user_7"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var up Uploaded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.Regexp(t, `^wardrobe/user_7/\d+-a\.png$`, up.Key)
	assert.True(t, strings.HasPrefix(up.URL, "/api/upload/image/wardrobe%2Fuser_7%2F"), up.URL)

	for _, target := range []string{up.URL, ImagePathPrefix + up.Key} {
		t.Run(target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, data, rec.Body.Bytes())
			assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
			assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get("Cache-Control"))
		})
	}
}

func TestDirectUploadRejectsPDF(t *testing.T) {
	b := newRecordingBackend()
	router := newTestRouter(t, b)

	body, ct := multipartBody(t, "a.pdf", "application/pdf", bytes.Repeat([]byte("%PDF-1.4 "), 200))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "user_7"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error, "image/")
	assert.Zero(t, b.Len())
}

func TestDirectUploadErrors(t *testing.T) {
	b := newRecordingBackend()
	router := newTestRouter(t, b)

	// No identity.
	body, ct := multipartBody(t, "a.png", "image/png", testPNG(t, 40))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// No file part.
	var empty bytes.Buffer
	mw := multipart.NewWriter(&empty)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/upload", &empty)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", bearer(t, "user_7"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Backend failure.
	b.fail = errors.New("disk full on node 3")
	body, ct = multipartBody(t, "a.png", "image/png", testPNG(t, 40))
	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, "user_7"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")
}

func TestFetchImageNotFound(t *testing.T) {
	b := newRecordingBackend()
	router := newTestRouter(t, b)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/upload/image/wardrobe%2Fnobody%2F1-x.png", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "image not found", env.Error)
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestFetchImageBackendFailure(t *testing.T) {
	b := newRecordingBackend()
	b.fail = errors.New("secret endpoint http://10.0.0.5:9000 unreachable")
	router := newTestRouter(t, b)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/upload/image/wardrobe/u/1-x.png", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

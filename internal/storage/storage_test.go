package storage

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

// objectServer answers every request like an S3 endpoint holding a single
// object at "wardrobe/u/1-a.png". Other keys get NoSuchKey; keys under
// "locked/" get AccessDenied.
func objectServer(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/test-bucket/wardrobe/u/1-a.png":
			w.Header().Set("Content-Type", "image/png")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
			w.Header().Set("Last-Modified", time.Unix(1700000000, 0).UTC().Format(http.TimeFormat))
			w.WriteHeader(http.StatusOK)
			if r.Method != http.MethodHead {
				_, _ = w.Write(body)
			}
		case "/test-bucket/locked/1-a.png":
			writeS3Error(w, r, http.StatusForbidden, "AccessDenied")
		default:
			writeS3Error(w, r, http.StatusNotFound, "NoSuchKey")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeS3Error(w http.ResponseWriter, r *http.Request, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("X-Amz-Request-Id", "test-request")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>%s</Code><Message>%s</Message><Resource>%s</Resource><RequestId>test-request</RequestId></Error>`,
		code, code, r.URL.Path)
}

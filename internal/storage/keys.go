package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// ErrInvalidKeyPart is returned when an owner, file name or namespace cannot form a safe key.
var ErrInvalidKeyPart = errors.New("invalid key component")

// Namer mints storage keys of the form <namespace>/<owner>/<millis>-<fileName>.
// Stamps are strictly increasing within a process, so two keys minted by the
// same Namer never share a stamp even when requested in the same millisecond.
type Namer struct {
	now  func() time.Time
	last atomic.Int64
}

// NewNamer returns a Namer reading the wall clock.
func NewNamer() *Namer {
	return &Namer{now: time.Now}
}

// NewNamerWithClock returns a Namer reading the given clock. Used in tests.
func NewNamerWithClock(now func() time.Time) *Namer {
	return &Namer{now: now}
}

var defaultNamer = NewNamer()

// MakeKey mints a key with the process-wide Namer.
func MakeKey(ownerID, fileName, namespace string) (string, error) {
	return defaultNamer.MakeKey(ownerID, fileName, namespace)
}

// MakeKey builds a key for ownerID's upload of fileName inside namespace.
// fileName is kept verbatim; separators in it are literal characters, but
// "." and ".." segments are rejected.
func (n *Namer) MakeKey(ownerID, fileName, namespace string) (string, error) {
	if ownerID == "" || strings.Contains(ownerID, "/") || isDotSegment(ownerID) {
		return "", fmt.Errorf("%w: owner %q", ErrInvalidKeyPart, ownerID)
	}
	if fileName == "" || hasDotSegment(fileName) {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidKeyPart, fileName)
	}
	if namespace == "" || hasDotSegment(namespace) || strings.HasPrefix(namespace, "/") {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidKeyPart, namespace)
	}

	stamp := n.stamp()
	return namespace + "/" + ownerID + "/" + strconv.FormatInt(stamp, 10) + "-" + fileName, nil
}

// stamp returns the current unix millis, bumped past the last issued stamp if needed.
func (n *Namer) stamp() int64 {
	for {
		now := n.now().UnixMilli()
		last := n.last.Load()
		if now <= last {
			now = last + 1
		}
		if n.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// ValidKey reports whether key is non-empty and free of "." and ".." segments.
func ValidKey(key string) bool {
	return key != "" && !hasDotSegment(key)
}

func hasDotSegment(s string) bool {
	for _, seg := range strings.Split(s, "/") {
		if isDotSegment(seg) {
			return true
		}
	}
	return false
}

func isDotSegment(s string) bool {
	return s == "." || s == ".."
}

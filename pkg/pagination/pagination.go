// Package pagination implements the keyset cursors of list endpoints. A
// cursor names the last row of a page by (created_at, id); the next page
// starts strictly after it in created_at DESC, id DESC order.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Cursor is the position of the last row already returned.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit applies DefaultLimit and MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer is the normalized limit plus one lookahead row that tells
// whether another page exists.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts a lookahead query result back to the page size. It returns the
// page and the last row on it when another page follows.
func Trim[T any](rows []T, limitWithBuffer int) ([]T, *T) {
	size := limitWithBuffer - 1
	if size <= 0 || len(rows) <= size {
		return rows, nil
	}
	page := rows[:size]
	return page, &page[size-1]
}

// EncodeCursor renders the cursor for a query string. The encoding is URL
// safe so clients can pass it back without escaping.
func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes EncodeCursor output. Padded standard base64 is still
// accepted for cursors issued before the switch to URL-safe encoding. An empty
// value means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		legacy, legacyErr := base64.StdEncoding.DecodeString(value)
		if legacyErr != nil {
			return nil, fmt.Errorf("decode cursor: %w", err)
		}
		decoded = legacy
	}
	createdAt, id, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: t, ID: parsed}, nil
}

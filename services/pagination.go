package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"geo_atlas_go/apperr"

	"gorm.io/gorm"
)

// DefaultPageSize matches the fixed page size per listing type
const DefaultPageSize = 5

// DefaultOrderField is the column listings are ordered by unless a caller
// picks another one via PaginateBy.
const DefaultOrderField = "name"

// Listings are ordered by name descending with the record id as tie-break,
// which gives a total order even when names repeat. A page is everything
// strictly after the cursor position in that order, so inserts and deletes
// outside the already-returned range never duplicate or skip rows.

// Keyed is implemented by records that can be cursor-paginated.
type Keyed interface {
	PaginationKey() (name string, id string)
}

// Page is one bounded slice of a listing plus the cursor for the next one.
// NextCursor is empty on the last page.
type Page[T Keyed] struct {
	Items      []T    `json:"results"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type CursorPos struct {
	Name string `json:"n"`
	ID   string `json:"i"`
}

func cursorMAC(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// EncodeCursor produces an opaque token for the last-seen (name, id) pair.
// The token carries an HMAC tag so tampering is detectable.
func EncodeCursor(secret, name, id string) string {
	payload, _ := json.Marshal(CursorPos{Name: name, ID: id})
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + cursorMAC(secret, payload)
}

// DecodeCursor verifies and unpacks a cursor token. Any malformed or
// tampered token is rejected; there is no silent fallback to page one.
func DecodeCursor(secret, token string) (*CursorPos, error) {
	body, tag, ok := strings.Cut(token, ".")
	if !ok {
		return nil, apperr.ErrInvalidCursor
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return nil, apperr.ErrInvalidCursor
	}
	if !hmac.Equal([]byte(cursorMAC(secret, payload)), []byte(tag)) {
		return nil, apperr.ErrInvalidCursor
	}
	var pos CursorPos
	if err := json.Unmarshal(payload, &pos); err != nil {
		return nil, apperr.ErrInvalidCursor
	}
	return &pos, nil
}

// Paginate returns the page after the cursor (or the first page for an
// empty cursor) for the given query, ordered by the default field. The
// query may already carry filters and preloads; ordering and limits are
// applied here.
func Paginate[T Keyed](query *gorm.DB, secret, cursor string, pageSize int) (*Page[T], error) {
	return PaginateBy[T](query, secret, cursor, pageSize, DefaultOrderField)
}

// PaginateBy pages the query ordered by the given column descending, with
// the record id as tie-break. The column must be the one PaginationKey
// reports for T, or cursors would not line up between pages.
func PaginateBy[T Keyed](query *gorm.DB, secret, cursor string, pageSize int, field string) (*Page[T], error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if field == "" {
		field = DefaultOrderField
	}

	if cursor != "" {
		pos, err := DecodeCursor(secret, cursor)
		if err != nil {
			return nil, err
		}
		// Strictly after (field, id) in (field DESC, id DESC) order
		query = query.Where(fmt.Sprintf("(%s < ? OR (%s = ? AND id < ?))", field, field), pos.Name, pos.Name, pos.ID)
	}

	var rows []T
	// Fetch one extra row to know whether another page exists
	err := query.Order(fmt.Sprintf("%s DESC, id DESC", field)).Limit(pageSize + 1).Find(&rows).Error
	if err != nil {
		return nil, apperr.StoreRead(err)
	}

	page := &Page[T]{Items: rows}
	if len(rows) > pageSize {
		page.Items = rows[:pageSize]
		name, id := page.Items[pageSize-1].PaginationKey()
		page.NextCursor = EncodeCursor(secret, name, id)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

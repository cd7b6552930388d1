package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Pagination is the page metadata returned with offset-paginated lists
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// PaginationParams are the page and per_page query parameters
type PaginationParams struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`
}

// DefaultPagination returns the first page with the default size
func DefaultPagination() *PaginationParams {
	return &PaginationParams{Page: 1, PerPage: DefaultPerPage}
}

// Validate clamps the parameters into range
func (p *PaginationParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Offset is the number of rows to skip
func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// NewPagination builds page metadata from a total row count
func NewPagination(page, perPage int, total int64) *Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(perPage)))
	}

	return &Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		Total:       total,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// PaginatedResult is one page of items
type PaginatedResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewPaginatedResult creates a new paginated result
func NewPaginatedResult[T any](items []T, pagination *Pagination) *PaginatedResult[T] {
	return &PaginatedResult[T]{Items: items, Pagination: pagination}
}

// CursorDirection selects which side of the cursor to read
type CursorDirection string

const (
	CursorDirectionNext CursorDirection = "next"
	CursorDirectionPrev CursorDirection = "prev"
)

// ErrInvalidCursor is returned for cursors that were not produced by Encode
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the (created_at, id) keyset position of a row
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

// Encode returns the opaque URL-safe form of the cursor
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor produced by Encode
func DecodeCursor(raw string) (*Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil || cursor.ID == uuid.Nil {
		return nil, ErrInvalidCursor
	}
	return &cursor, nil
}

// CursorParams are the cursor, direction and limit query parameters
type CursorParams struct {
	Cursor    string          `form:"cursor" json:"cursor"`
	Direction CursorDirection `form:"direction" json:"direction"`
	Limit     int             `form:"limit" json:"limit"`
}

// Validate clamps the limit and defaults the direction to next
func (c *CursorParams) Validate() {
	if c.Limit < 1 {
		c.Limit = DefaultPerPage
	}
	if c.Limit > MaxPerPage {
		c.Limit = MaxPerPage
	}
	if c.Direction != CursorDirectionPrev {
		c.Direction = CursorDirectionNext
	}
}

// DecodeCursor returns nil when no cursor was given
func (c *CursorParams) DecodeCursor() (*Cursor, error) {
	if c.Cursor == "" {
		return nil, nil
	}
	return DecodeCursor(c.Cursor)
}

// Backwards reports whether the page is read before the cursor
func (c *CursorParams) Backwards() bool {
	return c.Cursor != "" && c.Direction == CursorDirectionPrev
}

// CursorPagination is the metadata returned with keyset-paginated lists
type CursorPagination struct {
	NextCursor *string `json:"next_cursor,omitempty"`
	PrevCursor *string `json:"prev_cursor,omitempty"`
	HasNext    bool    `json:"has_next"`
	HasPrev    bool    `json:"has_prev"`
	Limit      int     `json:"limit"`
}

// CursorPaginatedResult is one keyset page of items
type CursorPaginatedResult[T any] struct {
	Items      []T               `json:"items"`
	Pagination *CursorPagination `json:"pagination"`
}

// NewCursorPage trims a result fetched with Limit+1 rows in ascending order
// and fills in the cursors. For a backwards read the extra row is the first.
func NewCursorPage[T any](items []T, params *CursorParams, key func(T) Cursor) *CursorPaginatedResult[T] {
	hasMore := len(items) > params.Limit
	backwards := params.Backwards()

	if hasMore {
		if backwards {
			items = items[len(items)-params.Limit:]
		} else {
			items = items[:params.Limit]
		}
	}

	page := &CursorPagination{Limit: params.Limit}
	if backwards {
		page.HasPrev = hasMore
		page.HasNext = true
	} else {
		page.HasNext = hasMore
		page.HasPrev = params.Cursor != ""
	}

	if len(items) > 0 {
		if page.HasNext {
			next := key(items[len(items)-1]).Encode()
			page.NextCursor = &next
		}
		if page.HasPrev {
			prev := key(items[0]).Encode()
			page.PrevCursor = &prev
		}
	}

	return &CursorPaginatedResult[T]{Items: items, Pagination: page}
}

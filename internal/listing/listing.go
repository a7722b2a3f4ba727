// Package listing turns raw query-string parameters into a validated
// pagination window and filter for post listings.
package listing

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds the raw listing parameters. A nil field was not supplied.
type Params struct {
	Page      *string
	Limit     *string
	Category  *string
	Published *string
	Search    *string
}

// ParamsFromQuery reads listing parameters from the request query string.
func ParamsFromQuery(c *fiber.Ctx) Params {
	args := c.Context().QueryArgs()
	get := func(key string) *string {
		if !args.Has(key) {
			return nil
		}
		v := string(args.Peek(key))
		return &v
	}
	return Params{
		Page:      get("page"),
		Limit:     get("limit"),
		Category:  get("category"),
		Published: get("published"),
		Search:    get("search"),
	}
}

// Pagination is a resolved page window.
type Pagination struct {
	Page  int
	Limit int
	Skip  int
}

// Filter is the conjunction of optional listing predicates.
type Filter struct {
	CategoryID *uuid.UUID
	Published  *bool
	Search     string
}

// Query is a complete listing request.
type Query struct {
	Filter     Filter
	Pagination Pagination
}

// Build resolves p into a Query. It never fails: unusable values fall back
// to defaults or are dropped.
func Build(p Params) Query {
	return Query{
		Filter:     BuildFilter(p),
		Pagination: BuildPagination(p),
	}
}

// BuildPagination clamps page to at least 1 and limit to [1, MaxLimit].
func BuildPagination(p Params) Pagination {
	page := DefaultPage
	if n, ok := parseLeadingInt(p.Page); ok && n > 1 {
		page = n
	}

	limit := DefaultLimit
	if n, ok := parseLeadingInt(p.Limit); ok {
		switch {
		case n < 1:
			limit = 1
		case n > MaxLimit:
			limit = MaxLimit
		default:
			limit = n
		}
	}

	return Pagination{Page: page, Limit: limit, Skip: (page - 1) * limit}
}

// BuildFilter keeps only the predicates that were supplied and usable.
func BuildFilter(p Params) Filter {
	var f Filter

	if p.Category != nil {
		if id, err := uuid.Parse(strings.TrimSpace(*p.Category)); err == nil {
			f.CategoryID = &id
		}
	}

	if p.Published != nil {
		published := *p.Published == "true"
		f.Published = &published
	}

	if p.Search != nil {
		f.Search = *p.Search
	}

	return f
}

// maxParsed bounds parsed values so skip arithmetic cannot overflow.
const maxParsed = 1 << 30

// parseLeadingInt reads an optionally signed run of leading digits after
// leading whitespace, ignoring any trailing text ("12abc" is 12).
func parseLeadingInt(s *string) (int, bool) {
	if s == nil {
		return 0, false
	}
	v := strings.TrimLeft(*s, " \t\n\r\v\f")
	neg := false
	if v != "" && (v[0] == '+' || v[0] == '-') {
		neg = v[0] == '-'
		v = v[1:]
	}

	n, digits := 0, 0
	for ; digits < len(v) && v[digits] >= '0' && v[digits] <= '9'; digits++ {
		if n < maxParsed {
			n = n*10 + int(v[digits]-'0')
		}
	}
	if digits == 0 {
		return 0, false
	}
	if n > maxParsed {
		n = maxParsed
	}
	if neg {
		n = -n
	}
	return n, true
}

// Scope applies the filter predicates to a posts query.
func (f Filter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.CategoryID != nil {
			db = db.Where("category_id = ?", *f.CategoryID)
		}
		if f.Published != nil {
			db = db.Where("published = ?", *f.Published)
		}
		if f.Search != "" {
			db = db.Where(searchClause(db), searchPattern(f.Search), searchPattern(f.Search))
		}
		return db
	}
}

// Scope applies offset and limit.
func (p Pagination) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Skip).Limit(p.Limit)
	}
}

// searchClause matches title or content case-insensitively. Postgres uses
// ILIKE; elsewhere LOWER is applied, which on SQLite folds ASCII letters only.
func searchClause(db *gorm.DB) string {
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		return `(title ILIKE ? ESCAPE '\' OR content ILIKE ? ESCAPE '\')`
	}
	return `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`
}

func searchPattern(term string) string {
	return "%" + escapeLike(strings.ToLower(term)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Page is the listing response envelope.
type Page[T any] struct {
	Count int   `json:"count"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Posts []T   `json:"posts"`
}

// NewPage wraps items with their pagination metadata.
func NewPage[T any](items []T, total int64, p Pagination) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Count: len(items),
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Posts: items,
	}
}

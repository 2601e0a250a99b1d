package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is wrapped by lookups that match no row.
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped by input that fails a business rule.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is wrapped when a write collides with a unique key.
	ErrConflict = errors.New("conflict")
)

// OrderType selects which side of the business an order belongs to.
type OrderType string

const (
	OrderTypeCustomer OrderType = "customer"
	OrderTypeSupplier OrderType = "supplier"
)

// Valid reports whether t is a known order type.
func (t OrderType) Valid() bool {
	return t == OrderTypeCustomer || t == OrderTypeSupplier
}

// Party is a customer or supplier record.
type Party struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Type      OrderType `json:"type"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// PartyInput holds the fields required to create a party.
type PartyInput struct {
	Name  string
	Type  OrderType
	Email string
	Phone string
}

// Page describes one page of a paginated listing.
type Page struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage computes TotalPages for the given total.
func NewPage(page, limit, total int) Page {
	p := Page{Page: page, Limit: limit, Total: total}
	if limit > 0 {
		p.TotalPages = (total + limit - 1) / limit
	}
	return p
}

// normalizePaging applies defaults and bounds to page/limit.
func normalizePaging(page, limit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

// round2 rounds to the storage precision of NUMERIC(15,2) columns.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal returns round(quantity × unitPrice, 2).
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return round2(quantity.Mul(unitPrice))
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

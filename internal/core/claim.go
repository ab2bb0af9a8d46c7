package core

import (
	"strings"
	"time"
)

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Claim categories. The stored value is the label the list screen shows.
const (
	CategoryTransport     = "Transportasi"
	CategoryMeals         = "Makan"
	CategoryAccommodation = "Akomodasi"
	CategoryCommunication = "Komunikasi"
)

// CreatedAtLayout matches the millisecond UTC ISO-8601 form persisted in createdAt.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z"

// ClaimDateLayout is the MM-DD-YYYY HH:mm:ss form the submission form writes into date.
const ClaimDateLayout = "01-02-2006 15:04:05"

type (
	Status string

	// Claim is one persisted reimbursement request. JSON names are the
	// on-disk format and must not change.
	Claim struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		Amount    string `json:"amount"`
		Date      string `json:"date"`
		Status    Status `json:"status"`
		Type      string `json:"type"`
		Detail    string `json:"detail"`
		CreatedAt string `json:"createdAt"`
	}

	// ClaimFields are the caller-supplied parts of a new claim. Status is
	// accepted for symmetry with the stored record but always overridden.
	ClaimFields struct {
		Title  string
		Amount string
		Date   string
		Type   string
		Detail string
		Status Status
	}

	// ClaimPatch is a shallow partial update; nil fields are left alone.
	ClaimPatch struct {
		Title  *string `json:"title,omitempty"`
		Amount *string `json:"amount,omitempty"`
		Date   *string `json:"date,omitempty"`
		Status *Status `json:"status,omitempty"`
		Type   *string `json:"type,omitempty"`
		Detail *string `json:"detail,omitempty"`
	}
)

var categories = []string{
	CategoryTransport,
	CategoryMeals,
	CategoryAccommodation,
	CategoryCommunication,
}

// Categories returns the selectable claim types in display order.
func Categories() []string {
	return append([]string(nil), categories...)
}

// IsCategory reports whether t is one of the known claim types.
func IsCategory(t string) bool {
	for _, c := range categories {
		if c == t {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// Validate checks the patch values that have a closed domain.
func (p ClaimPatch) Validate() error {
	var invalid []string
	if p.Status != nil && !p.Status.Valid() {
		invalid = append(invalid, "status")
	}
	if p.Type != nil && strings.TrimSpace(*p.Type) != "" && !IsCategory(*p.Type) {
		invalid = append(invalid, "type")
	}
	if len(invalid) > 0 {
		return &ValidationError{Invalid: invalid}
	}
	return nil
}

// IsEmpty reports whether the patch would change nothing.
func (p ClaimPatch) IsEmpty() bool {
	return p.Title == nil && p.Amount == nil && p.Date == nil &&
		p.Status == nil && p.Type == nil && p.Detail == nil
}

// Apply returns c with the non-nil patch fields merged in. ID and CreatedAt
// are never touched.
func (p ClaimPatch) Apply(c Claim) Claim {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Amount != nil {
		c.Amount = *p.Amount
	}
	if p.Date != nil {
		c.Date = *p.Date
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Detail != nil {
		c.Detail = *p.Detail
	}
	return c
}

// FormatClaimDate renders t the way the submission form does.
func FormatClaimDate(t time.Time) string {
	return t.Format(ClaimDateLayout)
}

// FormatCreatedAt renders t as a createdAt value.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

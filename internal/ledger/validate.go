package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kapital-dev/kapital/internal/model"
)

// ErrValidation matches every error returned for rejected input.
var ErrValidation = errors.New("validation failed")

// ErrAccountNotFound is returned when a transaction targets a missing account.
var ErrAccountNotFound = errors.New("account not found")

// ValidationError describes one rejected field.
type ValidationError struct {
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationErrors is the set of problems found in one input.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(msgs, "; "))
}

// Is lets errors.Is(err, ErrValidation) match.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Has reports whether field was rejected.
func (e ValidationErrors) Has(field string) bool {
	for _, ve := range e {
		if ve.Field == field {
			return true
		}
	}
	return false
}

// prefixed returns a copy of e with prefix prepended to every field.
func (e ValidationErrors) prefixed(prefix string) ValidationErrors {
	out := make(ValidationErrors, len(e))
	for i, ve := range e {
		ve.Field = prefix + ve.Field
		out[i] = ve
	}
	return out
}

func (e ValidationErrors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

var hundred = decimal.NewFromInt(100)

// ValidateAccountName checks a user supplied account name.
func ValidateAccountName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationErrors{{Field: "name", Description: "must not be blank"}}
	}
	return nil
}

// ValidateTransaction checks the user supplied fields of a transaction
// against the calendar day of now.
func ValidateTransaction(t model.Transaction, now time.Time) error {
	return validateTransaction(t, now).orNil()
}

func validateTransaction(t model.Transaction, now time.Time) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(t.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Description: "must not be blank"})
	}

	switch {
	case !t.Amount.IsPositive():
		errs = append(errs, ValidationError{Field: "amount", Description: fmt.Sprintf("must be greater than zero, got %s", t.Amount)})
	case !t.Amount.Mul(hundred).Equal(t.Amount.Mul(hundred).Floor()):
		errs = append(errs, ValidationError{Field: "amount", Description: fmt.Sprintf("%s has more than 2 decimal places", t.Amount)})
	}

	info, ok := t.Category.Info()
	switch {
	case !ok:
		errs = append(errs, ValidationError{Field: "category", Description: fmt.Sprintf("unknown category %q", t.Category)})
	case info.Income != t.IsIncome:
		kind := "expense"
		if t.IsIncome {
			kind = "income"
		}
		errs = append(errs, ValidationError{Field: "category", Description: fmt.Sprintf("%s is not an %s category", t.Category, kind)})
	}

	switch {
	case t.Date.IsZero():
		errs = append(errs, ValidationError{Field: "date", Description: "is required"})
	case afterDay(t.Date, now):
		errs = append(errs, ValidationError{Field: "date", Description: fmt.Sprintf("%s is in the future", t.Date.Format("2006-01-02"))})
	}

	return errs
}

// afterDay reports whether d falls on a later calendar day than now, both
// read in now's location.
func afterDay(d, now time.Time) bool {
	d = d.In(now.Location())
	dy, dm, dd := d.Date()
	ny, nm, nd := now.Date()
	if dy != ny {
		return dy > ny
	}
	if dm != nm {
		return dm > nm
	}
	return dd > nd
}

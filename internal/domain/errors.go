package domain

import (
	"fmt"
	"strings"
)

// ValidationError is returned when a link spec lacks required fields
// or carries a value that cannot be served.
type ValidationError struct {
	Fields  []string // missing
	Invalid []string // present but rejected
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		if len(e.Invalid) > 0 {
			return "invalid " + strings.Join(e.Invalid, ", ")
		}
		return "invalid request"
	}
	for _, f := range e.Fields {
		if f != "originalUrl" && f != "appScheme" {
			return strings.Join(e.Fields, ", ") + " required"
		}
	}
	// Clients match on this exact message whichever of the two is missing.
	return "originalUrl and appScheme are required"
}

// NotFoundError is returned when a link ID is unknown.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Kind)
}

// LinkNotFound builds the NotFoundError for an unknown link.
func LinkNotFound(id string) *NotFoundError {
	return &NotFoundError{Kind: "Link", ID: id}
}

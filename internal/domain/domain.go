// Package domain is the boundary to the system that actually performs
// create/update operations once a user confirms. The engine only ever calls
// Execute; authorization and idempotency are the domain's own problem.
package domain

import (
	"context"

	"luna/internal/action"
)

// Result is what a successful execution reports back: a deep link to the
// created or updated object and a human-readable confirmation.
type Result struct {
	Href    string `json:"href,omitempty"`
	Message string `json:"message,omitempty"`
}

// API executes a confirmed action.
type API interface {
	Execute(ctx context.Context, t action.Type, fields []action.Field) (Result, error)
}

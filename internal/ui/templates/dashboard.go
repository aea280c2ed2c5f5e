// Package templates renders the dashboard page and the fragments patched
// into it over SSE.
//
//go:generate templ generate
package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"
)

// Fragment ids patched by the SSE endpoints.
const (
	KPIsID       = "kpi-content"
	OTPID        = "otp-content"
	LanesID      = "lanes-content"
	FinancialsID = "financials-content"
	StatusID     = "upload-status"
)

// Render writes a component to a string for SSE patches.
func Render(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

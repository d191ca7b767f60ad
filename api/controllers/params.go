package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
)

// pathParam returns the decoded, trimmed route parameter or a validation error.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, name+" is required")
	}
	return value, nil
}

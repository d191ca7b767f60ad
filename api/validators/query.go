package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/greenheaven/floorsync/pkg/enums"
	pkgerrors "github.com/greenheaven/floorsync/pkg/errors"
)

const dateLayout = "2006-01-02"

func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// ParseQueryDate accepts an optional YYYY-MM-DD business date.
func ParseQueryDate(r *http.Request, key string) (string, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a YYYY-MM-DD date").WithDetails(map[string]any{"field": key})
	}
	return raw, nil
}

func ParseQueryOrderStatus(r *http.Request, key string) (enums.OrderStatus, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return "", nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"field": key, "value": raw})
	}
	return status, nil
}

func ParseQueryOrderOrigin(r *http.Request, key string) (enums.OrderOrigin, error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return "", nil
	}
	origin, err := enums.ParseOrderOrigin(raw)
	if err != nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown order origin").WithDetails(map[string]any{"field": key, "value": raw})
	}
	return origin, nil
}

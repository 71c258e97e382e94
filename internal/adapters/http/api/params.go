package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const dateLayout = "2006-01-02"

// clientID reads the {id} path value as a positive decimal integer. Values
// cast would coerce, such as "1.5" or "0x1f", are rejected.
func clientID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := cast.ToInt64E(raw)
	if err != nil || id <= 0 || cast.ToString(id) != raw {
		return 0, fmt.Errorf("%w: %q", ErrBadClient, r.PathValue("id"))
	}
	return id, nil
}

// queryTime reads an optional RFC3339 timestamp or calendar date from the
// query string. Missing values yield the zero time.
func queryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s=%q", ErrBadTime, key, raw)
}

// queryBool reads an optional boolean flag from the query string.
func queryBool(r *http.Request, key string) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrBadRequest, key, raw)
	}
	return v, nil
}

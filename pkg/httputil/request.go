package httputil

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/chainload/pkg/plugins"
)

// GUIDVar is the route variable holding a plugin GUID
const GUIDVar = "guid"

// ErrMissingGUID is returned when a route carries no {guid} variable
var ErrMissingGUID = errors.New("missing path parameter: " + GUIDVar)

// PluginGUID returns the {guid} route variable. GUIDs that could never have been
// declared by a plugin are rejected before any lookup.
func PluginGUID(r *http.Request) (string, error) {
	guid := mux.Vars(r)[GUIDVar]
	if guid == "" {
		return "", ErrMissingGUID
	}
	if !plugins.IsValidGUID(guid) {
		return "", fmt.Errorf("invalid plugin GUID %q", guid)
	}
	return guid, nil
}

// PluginGUIDOrError is PluginGUID answering 400 on failure
func PluginGUIDOrError(w http.ResponseWriter, r *http.Request) (string, bool) {
	guid, err := PluginGUID(r)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return "", false
	}
	return guid, true
}

// QueryError reports a query parameter whose value does not parse
type QueryError struct {
	Param string
	Value string
	Want  string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("invalid %s for query param %s: %s", e.Want, e.Param, e.Value)
}

// QueryString returns the trimmed value of key, or def when it is absent or blank
func QueryString(r *http.Request, key, def string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return v
	}
	return def
}

// QueryInt parses key as an integer, e.g. ?depth=2
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := QueryString(r, key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &QueryError{Param: key, Value: raw, Want: "integer"}
	}
	return v, nil
}

// QueryBool parses key with strconv.ParseBool, e.g. ?faults=true
func QueryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := QueryString(r, key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &QueryError{Param: key, Value: raw, Want: "boolean"}
	}
	return v, nil
}

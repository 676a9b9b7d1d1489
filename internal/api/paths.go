package api

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the public deployment of the expenses API.
const DefaultBaseURL = "https://alejandro-borbolla.com/expensestracker/api"

const (
	pathLogin      = "/auth/login"
	pathLogout     = "/logout"
	pathUsers      = "/user"
	pathSpaces     = "/space"
	pathSpace      = "/space/:space_id"
	pathExpenses   = "/space/:space_id/expense"
	pathExpense    = "/space/:space_id/expense/:expense_id"
	pathCategories = "/space/:space_id/category"
	pathCategory   = "/space/:space_id/category/:category_id"
	pathSpaceUsers = "/space/:space_id/user"
	pathSpaceUser  = "/space/:space_id/user/:username"
	pathJoin       = "/space/:space_id/join"
	pathQuit       = "/space/:space_id/quit"
)

// expand fills the :name segments of tmpl from params, given as name/value
// pairs. Values are percent-encoded so ids cannot change the route.
func expand(tmpl string, params ...string) (string, error) {
	if len(params)%2 != 0 {
		return "", fmt.Errorf("expand %s: odd number of params", tmpl)
	}
	values := make(map[string]string, len(params)/2)
	for i := 0; i < len(params); i += 2 {
		values[params[i]] = params[i+1]
	}

	segments := strings.Split(tmpl, "/")
	for i, seg := range segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok {
			continue
		}
		v := values[name]
		if strings.TrimSpace(v) == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingParam, name)
		}
		segments[i] = url.PathEscape(v)
	}
	return strings.Join(segments, "/"), nil
}

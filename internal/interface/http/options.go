package http

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/devtrophies/trophies/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERY OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Recognized option keys. Both snake_case and the camelCase spelling used by
// existing embeds are accepted.
const (
	keyUsername   = "username"
	keyColumns    = "columns"
	keyTheme      = "theme"
	keyAnimation  = "animation"
	keyShowLocked = "show_locked"
	keyShowHidden = "show_hidden"
)

var optionAliases = map[string]string{
	keyColumns:    keyColumns,
	keyTheme:      keyTheme,
	keyAnimation:  keyAnimation,
	keyShowLocked: keyShowLocked,
	"showLocked":  keyShowLocked,
	keyShowHidden: keyShowHidden,
	"showHidden":  keyShowHidden,
}

// optionError is a malformed or unknown query option.
type optionError struct {
	msg string
}

func (e *optionError) Error() string { return e.msg }

func optionErrorf(format string, args ...any) error {
	return &optionError{msg: fmt.Sprintf(format, args...)}
}

// parseTrophiesQuery builds a query from URL values. pathUsername is set for
// the path-style route, in which case a username key is rejected.
func parseTrophiesQuery(values url.Values, pathUsername string) (query.GetTrophiesQuery, error) {
	allowUsername := pathUsername == ""

	unknown := lo.Filter(lo.Keys(values), func(k string, _ int) bool {
		if k == keyUsername {
			return !allowUsername
		}
		_, ok := optionAliases[k]
		return !ok
	})
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return query.GetTrophiesQuery{}, optionErrorf("unknown option(s): %s", strings.Join(unknown, ", "))
	}

	username := pathUsername
	if allowUsername {
		v, err := single(values, keyUsername)
		if err != nil {
			return query.GetTrophiesQuery{}, err
		}
		username = v
	}

	q := query.NewGetTrophiesQuery(username)
	seen := make(map[string]string, len(values))

	for key := range values {
		if key == keyUsername {
			continue
		}
		canonical := optionAliases[key]
		if prev, dup := seen[canonical]; dup {
			return query.GetTrophiesQuery{}, optionErrorf("option %q given twice (as %q and %q)", canonical, prev, key)
		}
		seen[canonical] = key

		raw, err := single(values, key)
		if err != nil {
			return query.GetTrophiesQuery{}, err
		}

		switch canonical {
		case keyColumns:
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil || n < 0 {
				return query.GetTrophiesQuery{}, optionErrorf("columns must be a non-negative integer, got %q", raw)
			}
			q.Columns = n
		case keyTheme:
			q.Theme = strings.ToLower(strings.TrimSpace(raw))
		case keyAnimation:
			b, err := parseBool(key, raw)
			if err != nil {
				return query.GetTrophiesQuery{}, err
			}
			q.Animation = b
		case keyShowLocked:
			b, err := parseBool(key, raw)
			if err != nil {
				return query.GetTrophiesQuery{}, err
			}
			q.ShowLocked = b
		case keyShowHidden:
			b, err := parseBool(key, raw)
			if err != nil {
				return query.GetTrophiesQuery{}, err
			}
			q.ShowHidden = b
		}
	}

	return q, nil
}

func single(values url.Values, key string) (string, error) {
	v := values[key]
	switch len(v) {
	case 0:
		return "", nil
	case 1:
		return v[0], nil
	default:
		return "", optionErrorf("option %q must be given once", key)
	}
}

func parseBool(key, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "on", "yes":
		return true, nil
	case "false", "0", "off", "no":
		return false, nil
	default:
		return false, optionErrorf("%s must be a boolean (true/false/on/off), got %q", key, raw)
	}
}

package resolver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// tokenPattern matches "[type:name]" placeholders, e.g. [node:nid] or [date:custom:Y]
var tokenPattern = regexp.MustCompile(`\[([a-z_]+):([^\[\]\s]+)\]`)

// TokenData is the set of objects placeholders may draw from.
// Nil members leave their placeholders untouched.
type TokenData struct {
	Node  *domain.Entity
	Media *domain.Media
	Term  *domain.Term
}

// TokenReplacer expands path templates
type TokenReplacer struct {
	now func() time.Time
}

// NewTokenReplacer creates a TokenReplacer. A nil clock uses time.Now.
func NewTokenReplacer(now func() time.Time) *TokenReplacer {
	if now == nil {
		now = time.Now
	}
	return &TokenReplacer{now: now}
}

// Replace expands every known placeholder in template. Unknown or unavailable
// placeholders are left verbatim.
func (r *TokenReplacer) Replace(template string, data TokenData) string {
	now := r.now()

	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		if value, ok := tokenValue(m[1], m[2], data, now); ok {
			return value
		}
		return token
	})
}

func tokenValue(kind, name string, data TokenData, now time.Time) (string, bool) {
	switch kind {
	case "date":
		format, ok := strings.CutPrefix(name, "custom:")
		if !ok {
			return "", false
		}
		return formatDate(format, now), true

	case "node":
		if data.Node == nil {
			return "", false
		}
		switch name {
		case "nid":
			return strconv.FormatInt(data.Node.ID, 10), true
		case "uuid":
			return data.Node.UUID.String(), true
		case "title":
			return data.Node.Label, true
		}

	case "media":
		if data.Media == nil {
			return "", false
		}
		switch name {
		case "mid":
			return strconv.FormatInt(data.Media.ID, 10), true
		case "uuid":
			return data.Media.UUID.String(), true
		case "name":
			return data.Media.Name, true
		}

	case "term":
		if data.Term == nil {
			return "", false
		}
		switch name {
		case "tid":
			return strconv.FormatInt(data.Term.ID, 10), true
		case "uuid":
			return data.Term.UUID.String(), true
		case "name":
			return data.Term.Name, true
		}
	}

	return "", false
}

// formatDate renders the subset of PHP date() format characters used in path templates.
// A backslash escapes the next character.
func formatDate(format string, t time.Time) string {
	var b strings.Builder
	escaped := false

	for _, c := range format {
		if escaped {
			b.WriteRune(c)
			escaped = false
			continue
		}

		switch c {
		case '\\':
			escaped = true
		case 'Y':
			fmt.Fprintf(&b, "%04d", t.Year())
		case 'y':
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case 'm':
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case 'n':
			b.WriteString(strconv.Itoa(int(t.Month())))
		case 'd':
			fmt.Fprintf(&b, "%02d", t.Day())
		case 'j':
			b.WriteString(strconv.Itoa(t.Day()))
		case 'H':
			fmt.Fprintf(&b, "%02d", t.Hour())
		case 'i':
			fmt.Fprintf(&b, "%02d", t.Minute())
		case 's':
			fmt.Fprintf(&b, "%02d", t.Second())
		default:
			b.WriteRune(c)
		}
	}

	return b.String()
}

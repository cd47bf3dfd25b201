package search

import (
	"strconv"
	"strings"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is a parsed message search. Terms go to the full text index, the
// other fields narrow the results.
type Query struct {
	RawInput string
	Terms    string
	With     string // counterpart user id
	Language string // ISO 639-1 code
	Limit    int
}

// NewSearchQuery parses a raw string with command-line style flags.
// Example: rematch tonight --with 42 --lang en --limit 5
func NewSearchQuery(input string) Query {
	query := Query{RawInput: input, Limit: DefaultLimit}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			value := parts[i+1]
			switch strings.TrimPrefix(part, "--") {
			case "with":
				query.With = value
			case "lang":
				query.Language = strings.ToLower(value)
			case "limit":
				if limit, err := strconv.Atoi(value); err == nil {
					query.Limit = limit
				}
			default:
				textTerms = append(textTerms, part, value)
			}
			i++
			continue
		}
		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	query.Limit = clampLimit(query.Limit)
	return query
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

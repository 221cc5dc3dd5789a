package client

import (
	"net/url"
	"strconv"
	"strings"
)

// JoinURL joins a base URL and a path with exactly one slash between them.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

type queryParam struct {
	key      string
	value    string
	hasValue bool
}

// Query is an ordered set of query-string parameters.
// Unlike url.Values it keeps insertion order and supports bare keys.
type Query struct {
	params []queryParam
}

// Set appends key=value.
func (q *Query) Set(key, value string) *Query {
	q.params = append(q.params, queryParam{key: key, value: value, hasValue: true})
	return q
}

// SetInt appends key=value for an integer value.
func (q *Query) SetInt(key string, value int) *Query {
	return q.Set(key, strconv.Itoa(value))
}

// SetKey appends a bare key without a value.
func (q *Query) SetKey(key string) *Query {
	q.params = append(q.params, queryParam{key: key})
	return q
}

// Len returns the number of parameters.
func (q *Query) Len() int {
	if q == nil {
		return 0
	}
	return len(q.params)
}

// Encode renders the query string including the leading "?".
// An empty query renders as "".
//
// Example:
//
//	(&Query{}).SetInt("offset", 0).SetInt("limit", 50).Encode() // "?offset=0&limit=50"
func (q *Query) Encode() string {
	if q.Len() == 0 {
		return ""
	}

	var b strings.Builder
	sep := "?"
	for _, p := range q.params {
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(p.key))
		if p.hasValue {
			b.WriteString("=")
			b.WriteString(url.QueryEscape(p.value))
		}
		sep = "&"
	}
	return b.String()
}

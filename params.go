package gcurl

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// Param is one key-value pair of a query string or form body.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of pairs. Unlike [url.Values] it keeps the
// insertion order when encoded.
type Params []Param

// Add appends a pair.
func (p *Params) Add(key, value string) {
	*p = append(*p, Param{Key: key, Value: value})
}

// Encode renders the pairs in form encoding, in order.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(kv.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(kv.Value))
	}

	return b.String()
}

// ParamsFromMap builds Params from m, sorted by key.
func ParamsFromMap(m map[string]string) Params {
	params := make(Params, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		params = append(params, Param{Key: k, Value: m[k]})
	}

	return params
}

// ParseParams builds Params from "key=value" strings. A pair without "="
// gets an empty value.
func ParseParams(pairs ...string) (Params, error) {
	params := make(Params, 0, len(pairs))
	for _, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		if key == "" {
			return nil, fmt.Errorf("param %q has an empty key", pair)
		}
		params = append(params, Param{Key: key, Value: value})
	}

	return params, nil
}

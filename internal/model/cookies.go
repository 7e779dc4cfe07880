package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CookieKind tells which variant a CookieMaterial holds
type CookieKind int

const (
	// CookiesNone means no cookie material was supplied
	CookiesNone CookieKind = iota
	// CookiesKeyValue holds ordered name/value pairs
	CookiesKeyValue
	// CookiesRawHeader holds a raw Cookie header value
	CookiesRawHeader
)

// CookieHeaderPrefix is stripped from raw header input when present.
const CookieHeaderPrefix = "cookie:"

// CookiePair is one name/value cookie
type CookiePair struct {
	Name  string
	Value string
}

// CookieMaterial is the authentication context forwarded to the extraction
// tool. The zero value carries no cookies.
type CookieMaterial struct {
	kind  CookieKind
	pairs []CookiePair
	raw   string
}

var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

// NoCookies returns empty cookie material
func NoCookies() CookieMaterial {
	return CookieMaterial{}
}

// CookiesFromPairs builds key/value material. Pairs with an empty name are
// dropped; if nothing remains the result is empty material.
func CookiesFromPairs(pairs []CookiePair) CookieMaterial {
	kept := make([]CookiePair, 0, len(pairs))
	for _, p := range pairs {
		name := strings.TrimSpace(headerSanitizer.Replace(p.Name))
		if name == "" {
			continue
		}
		kept = append(kept, CookiePair{Name: name, Value: headerSanitizer.Replace(p.Value)})
	}
	if len(kept) == 0 {
		return NoCookies()
	}
	return CookieMaterial{kind: CookiesKeyValue, pairs: kept}
}

// CookiesFromHeader builds raw-header material from a Cookie header value,
// with or without the leading "Cookie:" field name.
func CookiesFromHeader(raw string) CookieMaterial {
	raw = strings.TrimSpace(headerSanitizer.Replace(raw))
	if len(raw) >= len(CookieHeaderPrefix) && strings.EqualFold(raw[:len(CookieHeaderPrefix)], CookieHeaderPrefix) {
		raw = strings.TrimSpace(raw[len(CookieHeaderPrefix):])
	}
	if raw == "" {
		return NoCookies()
	}
	return CookieMaterial{kind: CookiesRawHeader, raw: raw}
}

// Kind returns the variant held by the material
func (c CookieMaterial) Kind() CookieKind {
	return c.kind
}

// IsEmpty returns true if no cookies will be forwarded
func (c CookieMaterial) IsEmpty() bool {
	return c.kind == CookiesNone
}

// Pairs returns a copy of the key/value pairs, nil for other variants
func (c CookieMaterial) Pairs() []CookiePair {
	if c.kind != CookiesKeyValue {
		return nil
	}
	out := make([]CookiePair, len(c.pairs))
	copy(out, c.pairs)
	return out
}

// HeaderValue renders the material as a Cookie header value ("" when empty)
func (c CookieMaterial) HeaderValue() string {
	switch c.kind {
	case CookiesKeyValue:
		parts := make([]string, 0, len(c.pairs))
		for _, p := range c.pairs {
			parts = append(parts, p.Name+"="+p.Value)
		}
		return strings.Join(parts, "; ")
	case CookiesRawHeader:
		return c.raw
	default:
		return ""
	}
}

// String returns a redacted description safe for logs
func (c CookieMaterial) String() string {
	switch c.kind {
	case CookiesKeyValue:
		return fmt.Sprintf("cookies(pairs=%d)", len(c.pairs))
	case CookiesRawHeader:
		return fmt.Sprintf("cookies(header, %d bytes)", len(c.raw))
	default:
		return "cookies(none)"
	}
}

// UnmarshalJSON accepts null, a raw header string, or an object of name/value
// pairs. Object keys are ordered by name.
func (c *CookieMaterial) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = NoCookies()
		return nil
	}

	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("decode cookie header: %w", err)
		}
		*c = CookiesFromHeader(raw)
		return nil
	case '{':
		var values map[string]string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("decode cookie pairs: %w", err)
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		pairs := make([]CookiePair, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, CookiePair{Name: name, Value: values[name]})
		}
		*c = CookiesFromPairs(pairs)
		return nil
	default:
		return fmt.Errorf("cookies must be a string or an object of name/value pairs")
	}
}

// Package sanitize cleans HTML-bearing block fields with bluemonday.
package sanitize

import (
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Rule describes what markup survives in one field. A zero Rule strips every
// tag. Tags maps an allowed element to its allowed attributes.
type Rule struct {
	Tags map[string][]string
	Keep bool
}

// Config is a tool's sanitize declaration: a whole-field Rule plus optional
// per-field overrides.
type Config struct {
	Rule
	Fields map[string]Rule
}

// KeepAll returns a Rule that leaves markup untouched.
func KeepAll() Rule { return Rule{Keep: true} }

// Allow returns a Rule permitting the given elements without attributes.
func Allow(tags ...string) Rule {
	r := Rule{Tags: make(map[string][]string, len(tags))}
	for _, t := range tags {
		r.Tags[t] = nil
	}
	return r
}

// With returns a copy of r that also allows tag with attrs.
func (r Rule) With(tag string, attrs ...string) Rule {
	tags := make(map[string][]string, len(r.Tags)+1)
	for k, v := range r.Tags {
		tags[k] = v
	}
	tags[tag] = attrs
	return Rule{Tags: tags, Keep: r.Keep}
}

// For returns the field-specific rule when one is declared, else the
// whole-field rule.
func (c Config) For(field string) Rule {
	if r, ok := c.Fields[field]; ok {
		return r
	}
	return c.Rule
}

func (r Rule) policy() *bluemonday.Policy {
	if len(r.Tags) == 0 {
		return bluemonday.StrictPolicy()
	}
	p := bluemonday.NewPolicy()
	names := make([]string, 0, len(r.Tags))
	for tag := range r.Tags {
		names = append(names, tag)
	}
	sort.Strings(names)
	for _, tag := range names {
		p.AllowElements(tag)
		if attrs := r.Tags[tag]; len(attrs) > 0 {
			p.AllowAttrs(attrs...).OnElements(tag)
		}
	}
	if _, ok := r.Tags["a"]; ok {
		p.AllowStandardURLs()
	}
	return p
}

// String cleans s under r.
func String(s string, r Rule) string {
	if r.Keep || s == "" {
		return s
	}
	p := r.policy()
	if len(r.Tags) > 0 {
		return p.Sanitize(s)
	}
	return strict(p, s)
}

// maxUnescape bounds how many layers of entity encoding strict peels off.
const maxUnescape = 8

// strict returns s as plain text. StrictPolicy escapes entities, so the
// result is unescaped for readability and cleaned again until stable: an
// escaped tag never survives as live markup.
func strict(p *bluemonday.Policy, s string) string {
	for range maxUnescape {
		escaped := p.Sanitize(s)
		out := html.UnescapeString(escaped)
		if out == s {
			return out
		}
		s = out
	}
	return p.Sanitize(s)
}

// Data returns a copy of data with every string cleaned. Top-level keys use
// their field rule; nested values inherit the rule of the key they sit under.
func Data(data map[string]any, c Config) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = value(v, c.For(k))
	}
	return out
}

func value(v any, r Rule) any {
	switch t := v.(type) {
	case string:
		return String(t, r)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = value(x, r)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, x := range t {
			out[i] = String(x, r)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = value(x, r)
		}
		return out
	default:
		return v
	}
}

// PlainText strips all markup and collapses whitespace.
func PlainText(s string) string {
	return strings.Join(strings.Fields(String(s, Rule{})), " ")
}

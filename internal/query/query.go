// Package query builds the ordered query parameters sent with every Nexus request.
package query

import (
	"net/url"
	"strings"

	"github.com/nexus-ptz/ptzctl/internal/commands"
)

// Values is an ordered set of query parameters. Setting an existing key replaces
// its value in place, so the key keeps its original position.
type Values []commands.WireParam

// Set assigns value to key
func (v *Values) Set(key, value string) {
	for i := range *v {
		if (*v)[i].Name == key {
			(*v)[i].Value = value
			return
		}
	}
	*v = append(*v, commands.WireParam{Name: key, Value: value})
}

// Get returns the value of key
func (v Values) Get(key string) (string, bool) {
	for _, p := range v {
		if p.Name == key {
			return p.Value, true
		}
	}
	return "", false
}

// Merge sets every parameter of ps in order
func (v *Values) Merge(ps []commands.WireParam) {
	for _, p := range ps {
		v.Set(p.Name, p.Value)
	}
}

// Map returns the values as a plain map
func (v Values) Map() map[string]string {
	return commands.Params(v).Map()
}

// Encode renders the values in order as a URL query string
func (v Values) Encode() string {
	var b strings.Builder
	for i, p := range v {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Session and action keys used by the Nexus CGI.
const (
	SessionKey = "session"
	ActionKey  = "action"
)

// DefaultOverrides are appended to every request to defeat intermediate caching.
var DefaultOverrides = commands.Params{
	{Name: "tokenoverride", Value: "1"},
	{Name: "_", Value: "0"},
}

// Builder merges the parts of a request into one query.
type Builder struct {
	Overrides commands.Params
}

// NewBuilder creates a builder appending overrides last
func NewBuilder(overrides commands.Params) *Builder {
	return &Builder{Overrides: overrides}
}

// Build merges, in order: session token and action, the command's static
// parameters, the coerced dynamic parameters and, when includeOverrides is set, the
// override parameters. Later parts win key collisions. No validation happens here.
func (b *Builder) Build(spec *commands.CommandSpec, token string, dynamic commands.Params, includeOverrides bool) Values {
	q := make(Values, 0, 2+len(spec.StaticParams)+len(dynamic)+len(b.Overrides))
	q.Set(SessionKey, token)
	q.Set(ActionKey, spec.Action)
	q.Merge(spec.StaticParams)
	q.Merge(dynamic)
	if includeOverrides {
		q.Merge(b.Overrides)
	}
	return q
}

// Action builds the query for a bare action that takes no session, such as the
// authentication exchange.
func Action(action string, extra ...commands.WireParam) Values {
	q := Values{{Name: ActionKey, Value: action}}
	q.Merge(extra)
	return q
}

// Package commands holds the Nexus command registry and the parameter coercion rules.
//
// The registry is data, not code: it is loaded from YAML (an embedded default or an
// external file) so new commands can be added without touching the dispatcher.
package commands

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/nexus-ptz/ptzctl/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed commands.yaml
var defaultCommands []byte

// ParamKind is the closed set of scalar types a parameter can declare.
type ParamKind int

const (
	KindString ParamKind = iota
	KindFloat
	KindInt
	KindBool
)

// String returns the registry spelling of the kind
func (k ParamKind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "string"
	}
}

// ParseParamKind converts a registry type name into a ParamKind.
func ParseParamKind(s string) (ParamKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "float":
		return KindFloat, nil
	case "int":
		return KindInt, nil
	case "bool", "boolean":
		return KindBool, nil
	case "string", "str", "":
		return KindString, nil
	default:
		return KindString, fmt.Errorf("unsupported parameter type %q", s)
	}
}

// UnmarshalYAML decodes a type name
func (k *ParamKind) UnmarshalYAML(value *yaml.Node) error {
	kind, err := ParseParamKind(value.Value)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// MarshalYAML encodes the type name
func (k ParamKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

// ParamSpec describes one caller-supplied parameter.
type ParamSpec struct {
	Name     string
	Kind     ParamKind
	Help     string
	Required bool
	// Default is the textual default, coerced like a supplied value. Nil means none.
	Default *string
}

// HasDefault reports whether the parameter declares a default value
func (p ParamSpec) HasDefault() bool {
	return p.Default != nil
}

// UnmarshalYAML decodes a parameter entry. Required defaults to true unless a
// default value is present.
func (p *ParamSpec) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name     string     `yaml:"name"`
		Type     ParamKind  `yaml:"type"`
		Help     string     `yaml:"help"`
		Required *bool      `yaml:"required"`
		Default  *yaml.Node `yaml:"default"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p.Name = raw.Name
	p.Kind = raw.Type
	p.Help = raw.Help
	p.Required = true
	if raw.Required != nil {
		p.Required = *raw.Required
	}
	p.Default = nil
	if raw.Default != nil {
		if raw.Default.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: default for %q must be a scalar", raw.Default.Line, raw.Name)
		}
		def := raw.Default.Value
		p.Default = &def
		p.Required = false
	}
	return nil
}

// WireParam is one key/value pair in wire encoding.
type WireParam struct {
	Name  string
	Value string
}

// Params is an ordered list of wire parameters. In YAML it is written as a mapping
// whose key order is preserved.
type Params []WireParam

// UnmarshalYAML decodes a mapping while keeping key order
func (ps *Params) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of parameters", value.Line)
	}
	out := make(Params, 0, len(value.Content)/2)
	seen := make(map[string]bool)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %q must be a scalar", val.Line, key.Value)
		}
		if seen[key.Value] {
			return fmt.Errorf("line %d: duplicate parameter %q", key.Line, key.Value)
		}
		seen[key.Value] = true
		out = append(out, WireParam{Name: key.Value, Value: val.Value})
	}
	*ps = out
	return nil
}

// MarshalYAML encodes the parameters as an ordered mapping
func (ps Params) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range ps {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Value, Style: yaml.DoubleQuotedStyle})
	}
	return node, nil
}

// Map returns the parameters as a plain map
func (ps Params) Map() map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Name] = p.Value
	}
	return m
}

// CommandSpec describes one named command.
type CommandSpec struct {
	Name         string      `yaml:"name"`
	Action       string      `yaml:"action"`
	Description  string      `yaml:"description"`
	StaticParams Params      `yaml:"static_params,omitempty"`
	Params       []ParamSpec `yaml:"params,omitempty"`
}

// ParamNames returns the declared parameter names in declaration order
func (c *CommandSpec) ParamNames() []string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return names
}

// Param returns the named parameter spec
func (c *CommandSpec) Param(name string) (ParamSpec, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// Usage renders a one-line synopsis such as "set_zoom Magnification=<float>".
func (c *CommandSpec) Usage() string {
	var b strings.Builder
	b.WriteString(c.Name)
	for _, p := range c.Params {
		b.WriteString(" ")
		if !p.Required {
			b.WriteString("[")
		}
		fmt.Fprintf(&b, "%s=<%s>", p.Name, p.Kind)
		if !p.Required {
			b.WriteString("]")
		}
	}
	return b.String()
}

type registryFile struct {
	Commands []*CommandSpec `yaml:"commands"`
}

// Registry is the read-only table of known commands.
type Registry struct {
	commands []*CommandSpec
	byName   map[string]*CommandSpec
	names    []string
}

// Load parses and validates a registry document
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Configuration(err, "failed to parse command registry")
	}
	if len(file.Commands) == 0 {
		return nil, errors.Configuration(nil, "command registry defines no commands")
	}

	r := &Registry{byName: make(map[string]*CommandSpec, len(file.Commands))}
	for i, cmd := range file.Commands {
		if cmd == nil {
			return nil, errors.Configuration(nil, "command registry entry %d is empty", i+1)
		}
		if err := validateCommand(cmd); err != nil {
			return nil, err
		}
		if _, dup := r.byName[cmd.Name]; dup {
			return nil, errors.Configuration(nil, "duplicate command %q in registry", cmd.Name)
		}
		r.byName[cmd.Name] = cmd
		r.commands = append(r.commands, cmd)
		r.names = append(r.names, cmd.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

func validateCommand(cmd *CommandSpec) error {
	if strings.TrimSpace(cmd.Name) == "" {
		return errors.Configuration(nil, "command with action %q has no name", cmd.Action)
	}
	if strings.TrimSpace(cmd.Action) == "" {
		return errors.Configuration(nil, "command %q has no action", cmd.Name)
	}

	seen := make(map[string]bool, len(cmd.Params))
	for _, p := range cmd.Params {
		if strings.TrimSpace(p.Name) == "" {
			return errors.Configuration(nil, "command %q declares a parameter without a name", cmd.Name)
		}
		if seen[p.Name] {
			return errors.Configuration(nil, "command %q declares parameter %q twice", cmd.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Default != nil {
			if _, err := Coerce(p, *p.Default); err != nil {
				return errors.Configuration(err, "invalid default for %s.%s", cmd.Name, p.Name)
			}
		}
	}
	return nil
}

// LoadFile reads a registry from disk
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configuration(err, "failed to read command registry %s", path)
	}
	return Load(data)
}

// Default returns the registry embedded in the binary
func Default() (*Registry, error) {
	return Load(defaultCommands)
}

// MustDefault is like Default but panics if the embedded registry is invalid
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the CommandSpec for name or an UnknownCommand error listing the
// available names in sorted order.
func (r *Registry) Lookup(name string) (*CommandSpec, error) {
	cmd, ok := r.byName[name]
	if !ok {
		return nil, errors.UnknownCommand(name, r.Names())
	}
	return cmd, nil
}

// Names returns the command names sorted alphabetically
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Commands returns the command specs in registry file order
func (r *Registry) Commands() []*CommandSpec {
	return append([]*CommandSpec(nil), r.commands...)
}

// Len returns the number of commands
func (r *Registry) Len() int {
	return len(r.commands)
}

package docfield

import (
	"context"
	"fmt"
	"strings"
)

// ResolveKind hints which kind of field asks for a value.
type ResolveKind int

const (
	ResolveAny ResolveKind = iota
	ResolveMergeField
	ResolveDocVariable
	ResolveDocumentProperty
)

func (k ResolveKind) String() string {
	switch k {
	case ResolveMergeField:
		return "mergefield"
	case ResolveDocVariable:
		return "docvariable"
	case ResolveDocumentProperty:
		return "docproperty"
	default:
		return "any"
	}
}

// ParseResolveKind converts a configuration name into a ResolveKind
func ParseResolveKind(s string) (ResolveKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return ResolveAny, nil
	case "mergefield", "merge":
		return ResolveMergeField, nil
	case "docvariable", "variable":
		return ResolveDocVariable, nil
	case "docproperty", "property":
		return ResolveDocumentProperty, nil
	default:
		return ResolveAny, fmt.Errorf("unknown resolver kind: %s", s)
	}
}

// ValueResolver looks up a named value. A miss is (zero, false, nil); an
// error means the resolver itself is broken and aborts the evaluation.
type ValueResolver interface {
	ResolveValue(ctx context.Context, name string, kind ResolveKind, ec *EvalContext) (FieldValue, bool, error)
}

// ValueResolverFunc adapts a function to ValueResolver
type ValueResolverFunc func(ctx context.Context, name string, kind ResolveKind, ec *EvalContext) (FieldValue, bool, error)

func (f ValueResolverFunc) ResolveValue(ctx context.Context, name string, kind ResolveKind, ec *EvalContext) (FieldValue, bool, error) {
	return f(ctx, name, kind, ec)
}

// ResolverChain tries resolvers in order and returns the first hit.
type ResolverChain []ValueResolver

// Resolve walks the chain. Resolver failures are wrapped in ResolverError.
func (c ResolverChain) Resolve(ctx context.Context, name string, kind ResolveKind, ec *EvalContext) (FieldValue, bool, error) {
	for _, r := range c {
		v, ok, err := r.ResolveValue(ctx, name, kind, ec)
		if err != nil {
			return FieldValue{}, false, NewResolverError(resolverName(r), name, err)
		}
		if ok {
			return v, true, nil
		}
	}
	return FieldValue{}, false, nil
}

// Named is implemented by resolvers that want a readable name in errors and logs.
type Named interface {
	Name() string
}

func resolverName(r ValueResolver) string {
	if n, ok := r.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", r)
}

// Accepts reports whether a resolver registered for kind should answer a
// request of kind want. ResolveAny on either side matches everything.
func (k ResolveKind) Accepts(want ResolveKind) bool {
	return k == ResolveAny || want == ResolveAny || k == want
}

// MapResolver serves values from a static map with case-insensitive names.
type MapResolver struct {
	// Kind restricts the requests the map answers; ResolveAny answers all
	Kind   ResolveKind
	values map[string]FieldValue
}

// NewMapResolver creates a resolver from plain Go values, converted with ValueOf.
func NewMapResolver(kind ResolveKind, values map[string]interface{}) *MapResolver {
	m := &MapResolver{Kind: kind, values: make(map[string]FieldValue, len(values))}
	for k, v := range values {
		m.Set(k, ValueOf(v))
	}
	return m
}

// Set stores one value
func (m *MapResolver) Set(name string, v FieldValue) {
	m.values[strings.ToLower(name)] = v
}

func (m *MapResolver) Name() string {
	return "map:" + m.Kind.String()
}

func (m *MapResolver) ResolveValue(_ context.Context, name string, kind ResolveKind, _ *EvalContext) (FieldValue, bool, error) {
	if !m.Kind.Accepts(kind) {
		return FieldValue{}, false, nil
	}
	v, ok := m.values[strings.ToLower(name)]
	return v, ok, nil
}

// contextResolver answers from the state held by the EvalContext itself:
// bookmarks for bare names, doc-variables and document properties.
type contextResolver struct{}

func (contextResolver) Name() string { return "context" }

func (contextResolver) ResolveValue(_ context.Context, name string, kind ResolveKind, ec *EvalContext) (FieldValue, bool, error) {
	switch kind {
	case ResolveAny:
		if buf, ok := ec.Bookmark(name); ok {
			return StringValue(buf.ToPlainText()), true, nil
		}
	case ResolveDocVariable:
		if buf, ok := ec.DocVariable(name); ok {
			return StringValue(buf.ToPlainText()), true, nil
		}
	case ResolveDocumentProperty:
		if v, ok := ec.Property(name); ok {
			return v, true, nil
		}
	}
	return FieldValue{}, false, nil
}

package schema

import (
	"fmt"
	"strconv"
	"strings"

	"fulfillment/internal/pkg/errs"
)

// Path locates a value inside a tenant JSON document.
// It is either Direct (a top-level key) or Nested (dot-separated segments).
type Path interface {
	Segments() []string
	String() string
	isPath()
}

// Direct addresses a top-level key.
type Direct struct {
	Name string
}

func (d Direct) Segments() []string { return []string{d.Name} }
func (d Direct) String() string     { return d.Name }
func (Direct) isPath()              {}

// Nested addresses a value through several object keys or array indexes.
type Nested struct {
	Segs []string
}

func (n Nested) Segments() []string { return append([]string(nil), n.Segs...) }
func (n Nested) String() string     { return strings.Join(n.Segs, ".") }
func (Nested) isPath()              {}

// ParsePath turns "order.customer.id" into a Nested path and "order_id" into a Direct one.
// Empty expressions and empty segments are rejected.
func ParsePath(expr string) (Path, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errs.NewValueIsRequiredError("path")
	}

	segs := strings.Split(expr, ".")
	for _, s := range segs {
		if s == "" {
			return nil, errs.NewValueIsInvalidErrorWithCause("path", fmt.Errorf("empty segment in %q", expr))
		}
	}

	if len(segs) == 1 {
		return Direct{Name: segs[0]}, nil
	}
	return Nested{Segs: segs}, nil
}

// MustParsePath is ParsePath for literals known to be valid.
func MustParsePath(expr string) Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Resolve walks tree along p. A missing key, an out-of-range index or a scalar where
// a container was expected all yield (nil, false).
func Resolve(tree any, p Path) (any, bool) {
	if p == nil {
		return nil, false
	}
	return walk(tree, p.Segments())
}

func walk(node any, segs []string) (any, bool) {
	if len(segs) == 0 {
		return node, true
	}

	switch n := node.(type) {
	case map[string]any:
		child, ok := n[segs[0]]
		if !ok {
			return nil, false
		}
		return walk(child, segs[1:])
	case []any:
		idx, err := strconv.Atoi(segs[0])
		if err != nil || idx < 0 || idx >= len(n) {
			return nil, false
		}
		return walk(n[idx], segs[1:])
	default:
		return nil, false
	}
}

package formula

import (
	"context"
	"fmt"
	"strings"
)

// Cell is a 0-based position inside the current table.
type Cell struct {
	Row int
	Col int
}

// String renders the cell in A1 notation
func (c Cell) String() string {
	col := ""
	for n := c.Col + 1; n > 0; n = (n - 1) / 26 {
		col = string(rune('A'+(n-1)%26)) + col
	}
	return fmt.Sprintf("%s%d", col, c.Row+1)
}

// Direction names a positional table argument.
type Direction string

const (
	DirectionAbove Direction = "ABOVE"
	DirectionBelow Direction = "BELOW"
	DirectionLeft  Direction = "LEFT"
	DirectionRight Direction = "RIGHT"
)

func parseDirection(name string) (Direction, bool) {
	switch d := Direction(strings.ToUpper(name)); d {
	case DirectionAbove, DirectionBelow, DirectionLeft, DirectionRight:
		return d, true
	}
	return "", false
}

// TableRef is a request for numbers from the table holding the field.
// Either Direction is set, or From/To describe an inclusive cell range.
type TableRef struct {
	Direction Direction
	From      Cell
	To        Cell
}

// IsDirection reports whether the reference is positional.
func (r TableRef) IsDirection() bool {
	return r.Direction != ""
}

func (r TableRef) String() string {
	if r.IsDirection() {
		return string(r.Direction)
	}
	if r.From == r.To {
		return r.From.String()
	}
	return r.From.String() + ":" + r.To.String()
}

// TableResolver supplies the numeric contents of table cells. Cells that do
// not hold a number are left out of the result.
type TableResolver interface {
	ResolveTable(ctx context.Context, ref TableRef) ([]float64, error)
}

// TableResolverFunc adapts a function to TableResolver.
type TableResolverFunc func(ctx context.Context, ref TableRef) ([]float64, error)

func (f TableResolverFunc) ResolveTable(ctx context.Context, ref TableRef) ([]float64, error) {
	return f(ctx, ref)
}

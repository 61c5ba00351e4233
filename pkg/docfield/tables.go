package docfield

import (
	"context"
	"strings"

	"github.com/benjaminschreck/go-docfield/pkg/docfield/formula"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/wordml"
)

// tableCursor tracks the cell being walked inside one table.
type tableCursor struct {
	table *wordml.Table
	row   int
	col   int
}

// EnterTable starts tracking a table; nested tables stack.
func (ec *EvalContext) EnterTable(t *wordml.Table) {
	ec.tables = append(ec.tables, &tableCursor{table: t, row: -1, col: -1})
}

// EnterTableRow moves to the next row of the innermost table
func (ec *EvalContext) EnterTableRow() {
	if c := ec.currentTable(); c != nil {
		c.row++
		c.col = -1
	}
}

// EnterTableCell moves to the next cell of the current row
func (ec *EvalContext) EnterTableCell() {
	if c := ec.currentTable(); c != nil {
		c.col++
	}
}

func (ec *EvalContext) LeaveTable() {
	if n := len(ec.tables); n > 0 {
		ec.tables = ec.tables[:n-1]
	}
}

func (ec *EvalContext) currentTable() *tableCursor {
	if n := len(ec.tables); n > 0 {
		return ec.tables[n-1]
	}
	return nil
}

// formulaTables returns the table resolver for = fields: the configured one,
// else the walked table when inside a cell, else nil.
func (ec *EvalContext) formulaTables() formula.TableResolver {
	if ec.tableResolver != nil {
		return ec.tableResolver
	}
	if c := ec.currentTable(); c != nil && c.table != nil && c.row >= 0 {
		return walkedTable{ec: ec, cursor: c}
	}
	return nil
}

// walkedTable reads numbers from the cells of the table being walked.
type walkedTable struct {
	ec     *EvalContext
	cursor *tableCursor
}

func (w walkedTable) ResolveTable(_ context.Context, ref formula.TableRef) ([]float64, error) {
	c := w.cursor
	var cells []formula.Cell
	if ref.IsDirection() {
		switch ref.Direction {
		case formula.DirectionAbove:
			for r := 0; r < c.row; r++ {
				cells = append(cells, formula.Cell{Row: r, Col: c.col})
			}
		case formula.DirectionBelow:
			for r := c.row + 1; r < len(c.table.Rows); r++ {
				cells = append(cells, formula.Cell{Row: r, Col: c.col})
			}
		case formula.DirectionLeft:
			for col := 0; col < c.col; col++ {
				cells = append(cells, formula.Cell{Row: c.row, Col: col})
			}
		case formula.DirectionRight:
			if c.row < len(c.table.Rows) {
				for col := c.col + 1; col < len(c.table.Rows[c.row].Cells); col++ {
					cells = append(cells, formula.Cell{Row: c.row, Col: col})
				}
			}
		}
	} else {
		r0, r1 := order(ref.From.Row, ref.To.Row)
		c0, c1 := order(ref.From.Col, ref.To.Col)
		for r := r0; r <= r1; r++ {
			for col := c0; col <= c1; col++ {
				cells = append(cells, formula.Cell{Row: r, Col: col})
			}
		}
	}

	var values []float64
	for _, cell := range cells {
		if v, ok := w.number(cell); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

func (w walkedTable) number(cell formula.Cell) (float64, bool) {
	rows := w.cursor.table.Rows
	if cell.Row < 0 || cell.Row >= len(rows) {
		return 0, false
	}
	cells := rows[cell.Row].Cells
	if cell.Col < 0 || cell.Col >= len(cells) {
		return 0, false
	}
	text := strings.Trim(cells[cell.Col].GetText(), " \t\n$€£%")
	return ParseNumberWithFallback(text, w.ec.Culture(), w.ec.config.InvariantNumberFallback)
}

func order(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

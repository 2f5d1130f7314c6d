package question

import "fmt"

// NashForm is the interactive answer form for a matrix-game question: one
// togglable cell per (row, col) strategy pair plus a "no pure equilibrium"
// toggle. Selecting any cell clears the flag and setting the flag clears
// every cell; the invariant holds after every toggle, not just at read
// time, so the form can be read mid-interaction.
type NashForm struct {
	table         *PayoffTable
	noEquilibrium bool
	selected      map[Cell]bool
}

// NewNashForm builds an empty form over the given payoff table.
func NewNashForm(table *PayoffTable) *NashForm {
	return &NashForm{
		table:    table,
		selected: make(map[Cell]bool),
	}
}

// Table returns the payoff table the form renders.
func (f *NashForm) Table() *PayoffTable { return f.table }

// ToggleCell flips the selection state of one cell. Turning a cell on
// clears the no-equilibrium flag.
func (f *NashForm) ToggleCell(row, col int) error {
	if !f.table.InBounds(row, col) {
		return fmt.Errorf("cell (%d,%d) out of range for %dx%d table", row, col, len(f.table.Rows), len(f.table.Cols))
	}
	cell := Cell{Row: row, Col: col}
	if f.selected[cell] {
		delete(f.selected, cell)
		return nil
	}
	f.selected[cell] = true
	f.noEquilibrium = false
	return nil
}

// ToggleNoEquilibrium flips the no-equilibrium flag. Turning it on clears
// every selected cell.
func (f *NashForm) ToggleNoEquilibrium() {
	f.noEquilibrium = !f.noEquilibrium
	if f.noEquilibrium {
		f.selected = make(map[Cell]bool)
	}
}

// CellSelected reports whether the cell is currently toggled on.
func (f *NashForm) CellSelected(row, col int) bool {
	return f.selected[Cell{Row: row, Col: col}]
}

// NoEquilibriumSet reports whether the flag is currently toggled on.
func (f *NashForm) NoEquilibriumSet() bool { return f.noEquilibrium }

// Answer snapshots the current form state, cells in row-major order.
func (f *NashForm) Answer() MatrixGameAnswer {
	cells := make([]Cell, 0, len(f.selected))
	for cell := range f.selected {
		cells = append(cells, cell)
	}
	sortCells(cells)
	return MatrixGameAnswer{NoEquilibrium: f.noEquilibrium, Cells: cells}
}

// Load replaces the form state with a previously captured answer, used
// when navigating back to a question. Out-of-range cells are dropped and
// the mutual-exclusion invariant is re-established in favor of the cells.
func (f *NashForm) Load(ans MatrixGameAnswer) {
	f.selected = make(map[Cell]bool)
	for _, cell := range ans.Cells {
		if f.table.InBounds(cell.Row, cell.Col) {
			f.selected[cell] = true
		}
	}
	f.noEquilibrium = ans.NoEquilibrium && len(f.selected) == 0
}

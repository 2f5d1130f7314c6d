package session

import (
	"github.com/smartest-app/smartest-client/internal/question"
)

// MatrixState mirrors the active nash form for rendering.
type MatrixState struct {
	Table         question.PayoffTable
	Selected      [][]bool
	NoEquilibrium bool
}

// CurrentQuestion describes the cursor question and its live input.
type CurrentQuestion struct {
	Summary question.Summary
	Kind    question.Kind
	Draft   string
	Matrix  *MatrixState
}

// Snapshot is an immutable copy of the controller state for the view
// layer; rendering never reads live controller fields.
type Snapshot struct {
	ID       string
	State    string
	Busy     bool
	Counts   map[string]int
	Sequence []question.Summary
	Cursor   int
	Answered []bool
	Current  *CurrentQuestion
}

// Snapshot captures the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		ID:     c.id,
		State:  c.state,
		Busy:   c.busy,
		Cursor: c.cursor,
	}
	if c.counts != nil {
		snap.Counts = make(map[string]int, len(c.counts))
		for k, v := range c.counts {
			snap.Counts[k] = v
		}
	}
	if len(c.sequence) > 0 {
		snap.Sequence = make([]question.Summary, len(c.sequence))
		copy(snap.Sequence, c.sequence)
		snap.Answered = make([]bool, len(c.sequence))
		for i, s := range c.sequence {
			if ans, ok := c.answers[s.ID]; ok {
				snap.Answered[i] = !ans.Empty()
			}
		}
	}
	if c.state == StateInProgress && len(c.sequence) > 0 {
		snap.Current = c.currentQuestionLocked()
	}
	return snap
}

func (c *Controller) currentQuestionLocked() *CurrentQuestion {
	current := &CurrentQuestion{
		Summary: c.sequence[c.cursor],
		Kind:    c.currentKindLocked(),
		Draft:   c.draft,
	}
	if current.Kind == question.KindMatrixGame && c.form != nil {
		table := c.form.Table()
		state := &MatrixState{
			Table:         *table,
			NoEquilibrium: c.form.NoEquilibriumSet(),
			Selected:      make([][]bool, len(table.Rows)),
		}
		for i := range table.Rows {
			state.Selected[i] = make([]bool, len(table.Cols))
			for j := range table.Cols {
				state.Selected[i][j] = c.form.CellSelected(i, j)
			}
		}
		current.Matrix = state
	}
	return current
}

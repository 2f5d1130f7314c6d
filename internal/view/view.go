// Package view maps controller state to render descriptors. Everything
// here is a pure function over a session snapshot; no I/O and no checks
// against a live display tree.
package view

import (
	"fmt"
	"sort"

	"github.com/smartest-app/smartest-client/internal/question"
	"github.com/smartest-app/smartest-client/internal/session"
)

// Screen identifies which screen a descriptor renders.
type Screen string

const (
	ScreenIdle       Screen = "idle"
	ScreenSetup      Screen = "setup"
	ScreenReady      Screen = "ready"
	ScreenQuestion   Screen = "question"
	ScreenSubmitting Screen = "submitting"
	ScreenResults    Screen = "results"
)

// Descriptor is the renderable form of one session state. Exactly one of
// the screen payloads is set, matching Screen.
type Descriptor struct {
	Screen   Screen
	Setup    *SetupView
	Question *QuestionView
}

// TypeOption is one selectable row of the test-setup screen. Types with
// zero saved questions are not selectable.
type TypeOption struct {
	Type       string
	Available  int
	Selectable bool
}

// SetupView is the test composition screen.
type SetupView struct {
	Options []TypeOption
}

// TextForm is a free-text input with its current draft.
type TextForm struct {
	Draft string
}

// MatrixCell is one togglable payoff cell.
type MatrixCell struct {
	Payoff   string
	Selected bool
}

// MatrixRow is one strategy row of the matrix form.
type MatrixRow struct {
	Label string
	Cells []MatrixCell
}

// MatrixForm is the checkbox-matrix input with its current toggle state.
type MatrixForm struct {
	ColumnLabels  []string
	Rows          []MatrixRow
	NoEquilibrium bool
}

// QuestionView is one question screen of an in-progress test. Exactly one
// of Text and Matrix is set.
type QuestionView struct {
	Index    int
	Total    int
	Heading  string
	Body     string
	Answered []bool
	Text     *TextForm
	Matrix   *MatrixForm
}

// ForSession builds the render descriptor for a session snapshot.
func ForSession(snap session.Snapshot) Descriptor {
	switch snap.State {
	case session.StateConfiguring:
		return Descriptor{Screen: ScreenSetup, Setup: buildSetup(snap.Counts)}
	case session.StateGenerated:
		return Descriptor{Screen: ScreenReady}
	case session.StateInProgress:
		return Descriptor{Screen: ScreenQuestion, Question: buildQuestion(snap)}
	case session.StateSubmitting:
		return Descriptor{Screen: ScreenSubmitting}
	case session.StateCompleted:
		return Descriptor{Screen: ScreenResults}
	default:
		return Descriptor{Screen: ScreenIdle}
	}
}

func buildSetup(counts map[string]int) *SetupView {
	types := make([]string, 0, len(counts))
	for typeTag := range counts {
		types = append(types, typeTag)
	}
	sort.Strings(types)

	setup := &SetupView{Options: make([]TypeOption, 0, len(types))}
	for _, typeTag := range types {
		setup.Options = append(setup.Options, TypeOption{
			Type:       typeTag,
			Available:  counts[typeTag],
			Selectable: counts[typeTag] > 0,
		})
	}
	return setup
}

func buildQuestion(snap session.Snapshot) *QuestionView {
	current := snap.Current
	if current == nil {
		return nil
	}
	qv := &QuestionView{
		Index:    snap.Cursor,
		Total:    len(snap.Sequence),
		Heading:  fmt.Sprintf("Question %d of %d: %s", snap.Cursor+1, len(snap.Sequence), current.Summary.Title),
		Body:     current.Summary.Preview,
		Answered: snap.Answered,
	}
	if current.Kind == question.KindMatrixGame && current.Matrix != nil {
		qv.Matrix = Matrix(current.Matrix)
	} else {
		qv.Text = &TextForm{Draft: current.Draft}
	}
	return qv
}

// Matrix builds the matrix-form descriptor from live toggle state.
func Matrix(state *session.MatrixState) *MatrixForm {
	form := &MatrixForm{
		ColumnLabels:  state.Table.Cols,
		NoEquilibrium: state.NoEquilibrium,
		Rows:          make([]MatrixRow, 0, len(state.Table.Rows)),
	}
	for i, label := range state.Table.Rows {
		row := MatrixRow{Label: label, Cells: make([]MatrixCell, 0, len(state.Table.Cols))}
		for j := range state.Table.Cols {
			row.Cells = append(row.Cells, MatrixCell{
				Payoff:   state.Table.Payoffs[i][j].String(),
				Selected: state.Selected[i][j],
			})
		}
		form.Rows = append(form.Rows, row)
	}
	return form
}

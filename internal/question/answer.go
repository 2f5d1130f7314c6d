package question

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Answer is the tagged payload a user submits for one question. The two
// variants cover the closed Kind set; the wire representation is always a
// single string, produced and parsed only at the API boundary.
type Answer interface {
	Kind() Kind
	// Empty reports whether the answer carries no content. An empty
	// answer encodes to the empty wire string, which the evaluator
	// treats as "no answer provided".
	Empty() bool
	// EncodeWire serializes the answer to its wire string.
	EncodeWire() string
}

// TextAnswer is a free-text answer for standard questions.
type TextAnswer string

func (a TextAnswer) Kind() Kind  { return KindStandard }
func (a TextAnswer) Empty() bool { return strings.TrimSpace(string(a)) == "" }

// EncodeWire returns the trimmed text, or "" for a blank answer.
func (a TextAnswer) EncodeWire() string { return strings.TrimSpace(string(a)) }

// Cell addresses one payoff-table cell. The wire field names match the
// evaluator's expected format.
type Cell struct {
	Row int `json:"i"`
	Col int `json:"j"`
}

// MatrixGameAnswer is the structured answer for matrix-game questions:
// either a claim that no pure equilibrium exists, or a set of selected
// cells. The two are mutually exclusive; NashForm enforces that on every
// toggle and DecodeMatrixGameAnswer rejects payloads violating it.
type MatrixGameAnswer struct {
	NoEquilibrium bool   `json:"no_nash"`
	Cells         []Cell `json:"selected_cells"`
}

func (a MatrixGameAnswer) Kind() Kind  { return KindMatrixGame }
func (a MatrixGameAnswer) Empty() bool { return !a.NoEquilibrium && len(a.Cells) == 0 }

// EncodeWire serializes to the evaluator's JSON format, or "" when the
// answer is trivial so unanswered questions stay distinguishable.
func (a MatrixGameAnswer) EncodeWire() string {
	if a.Empty() {
		return ""
	}
	cells := a.Cells
	if cells == nil {
		cells = []Cell{}
	}
	data, err := json.Marshal(MatrixGameAnswer{NoEquilibrium: a.NoEquilibrium, Cells: cells})
	if err != nil {
		// Marshalling a flag and a slice of ints cannot fail.
		return ""
	}
	return string(data)
}

// DecodeMatrixGameAnswer parses a wire string back into the structured
// form. The empty string decodes to the empty answer.
func DecodeMatrixGameAnswer(wire string) (MatrixGameAnswer, error) {
	if wire == "" {
		return MatrixGameAnswer{}, nil
	}
	var ans MatrixGameAnswer
	if err := json.Unmarshal([]byte(wire), &ans); err != nil {
		return MatrixGameAnswer{}, fmt.Errorf("decode matrix-game answer: %w", err)
	}
	if ans.NoEquilibrium && len(ans.Cells) > 0 {
		return MatrixGameAnswer{}, fmt.Errorf("decode matrix-game answer: no-equilibrium flag set alongside %d cells", len(ans.Cells))
	}
	return ans, nil
}

// DecodeWireAnswer parses a wire answer for a question of the given kind.
func DecodeWireAnswer(kind Kind, wire string) (Answer, error) {
	if kind == KindMatrixGame {
		return DecodeMatrixGameAnswer(wire)
	}
	return TextAnswer(wire), nil
}

// sortCells orders cells row-major so encoded answers are deterministic.
func sortCells(cells []Cell) {
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].Row != cells[b].Row {
			return cells[a].Row < cells[b].Row
		}
		return cells[a].Col < cells[b].Col
	})
}

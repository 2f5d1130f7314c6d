package question

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Type tags assigned by the generator service.
const (
	TypeNQueens  = "n-queens"
	TypeHanoi    = "hanoi"
	TypeColoring = "coloring"
	TypeKnight   = "knight"

	// TypeMatrixGame is the reserved tag for normal-form game questions,
	// the only type with a structured (non free-text) answer form.
	TypeMatrixGame = "nash"
)

// Kind is the closed set of client-side question variants. Rendering,
// capture and validation dispatch on Kind rather than on raw tags.
type Kind int

const (
	KindStandard Kind = iota
	KindMatrixGame
)

// KindOf maps a server type tag to its client variant. Unknown tags are
// treated as standard free-text questions.
func KindOf(typeTag string) Kind {
	if typeTag == TypeMatrixGame {
		return KindMatrixGame
	}
	return KindStandard
}

// Summary is the listing payload: enough to show a catalog row or a test
// sequence entry, never the full prompt.
type Summary struct {
	ID      int64  `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Preview string `json:"question"`
}

// Kind returns the client variant for this question.
func (s Summary) Kind() Kind { return KindOf(s.Type) }

// Detail is the full question payload, fetched lazily per id. PayoffTable
// is non-nil only for matrix-game questions.
type Detail struct {
	ID            int64        `json:"id"`
	Type          string       `json:"type"`
	Title         string       `json:"title"`
	Prompt        string       `json:"question"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
	PayoffTable   *PayoffTable `json:"-"`
}

// Kind returns the client variant for this question.
func (d Detail) Kind() Kind { return KindOf(d.Type) }

// Summary projects the detail down to its listing form.
func (d Detail) Summary() Summary {
	preview := d.Prompt
	if len(preview) > 100 {
		preview = preview[:100]
	}
	return Summary{ID: d.ID, Type: d.Type, Title: d.Title, Preview: preview}
}

// Payoff is one cell's payoff pair: A for the row player, B for the column
// player. The wire form is a two-element array.
type Payoff struct {
	A int
	B int
}

// UnmarshalJSON decodes the wire pair [a, b].
func (p *Payoff) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("payoff pair: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("payoff pair: want 2 elements, got %d", len(pair))
	}
	p.A, p.B = pair[0], pair[1]
	return nil
}

// MarshalJSON encodes the pair back to its wire form.
func (p Payoff) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.A, p.B})
}

func (p Payoff) String() string {
	return "(" + strconv.Itoa(p.A) + "," + strconv.Itoa(p.B) + ")"
}

// PayoffTable is the normal-form game behind a matrix-game question:
// ordered strategy labels for both players and a payoff pair per cell,
// indexed [row][col].
type PayoffTable struct {
	Rows    []string   `json:"rows"`
	Cols    []string   `json:"cols"`
	Payoffs [][]Payoff `json:"payoffs"`
}

// Validate checks the table is rectangular and matches its labels.
func (t *PayoffTable) Validate() error {
	if len(t.Rows) == 0 || len(t.Cols) == 0 {
		return fmt.Errorf("payoff table: empty strategy labels")
	}
	if len(t.Payoffs) != len(t.Rows) {
		return fmt.Errorf("payoff table: %d payoff rows for %d strategies", len(t.Payoffs), len(t.Rows))
	}
	for i, row := range t.Payoffs {
		if len(row) != len(t.Cols) {
			return fmt.Errorf("payoff table: row %d has %d cells, want %d", i, len(row), len(t.Cols))
		}
	}
	return nil
}

// InBounds reports whether (row, col) addresses a cell of the table.
func (t *PayoffTable) InBounds(row, col int) bool {
	return row >= 0 && row < len(t.Rows) && col >= 0 && col < len(t.Cols)
}

// DecodePayoffTable parses the game data attached to a matrix-game detail.
// Older server revisions embed the table as a JSON string inside the JSON
// document, so a leading quote means one extra decode step.
func DecodePayoffTable(raw json.RawMessage) (*PayoffTable, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("game data missing")
	}
	data := []byte(raw)
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return nil, fmt.Errorf("unquote game data: %w", err)
		}
		data = []byte(inner)
	}
	var table PayoffTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode game data: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Package results turns raw evaluation payloads into display bundles:
// score banding, aggregate scoring and user-answer reformatting.
package results

import (
	"fmt"
	"math"
	"strings"

	"github.com/smartest-app/smartest-client/internal/question"
)

// Band is the qualitative classification of a 0-100 score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
)

// Classify maps a score to its band.
func Classify(score int) Band {
	switch {
	case score >= 90:
		return BandExcellent
	case score >= 70:
		return BandGood
	case score >= 50:
		return BandFair
	default:
		return BandPoor
	}
}

// Fixed whole-test feedback, one sentence per band. Independent of the
// per-question feedback strings the server returns.
var testFeedback = map[Band]string{
	BandExcellent: "Excellent work! You have mastered this material.",
	BandGood:      "Good job! A few gaps remain; review the explanations below.",
	BandFair:      "Fair result. Revisit the topics you missed before retrying.",
	BandPoor:      "Poor result. Work through the material again and retake the test.",
}

// TestFeedback returns the fixed qualitative sentence for a band.
func TestFeedback(band Band) string { return testFeedback[band] }

// Evaluation is one scored answer as returned by the server.
type Evaluation struct {
	QuestionID    int64  `json:"question_id"`
	Score         int    `json:"score"`
	Feedback      string `json:"feedback"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation"`
	UserAnswer    string `json:"userAnswer"`
}

// TestResultSet holds one evaluation per question of a test session, in
// the session's original order.
type TestResultSet struct {
	Results []Evaluation
}

// Aggregate is the arithmetic mean of all scores, rounded to the nearest
// integer. An empty set aggregates to 0.
func (s TestResultSet) Aggregate() int {
	if len(s.Results) == 0 {
		return 0
	}
	sum := 0
	for _, r := range s.Results {
		sum += r.Score
	}
	return int(math.Round(float64(sum) / float64(len(s.Results))))
}

// AnswerContext carries what the presenter needs to reformat a submitted
// answer: the question variant and, for matrix games, the payoff table.
type AnswerContext struct {
	Kind  question.Kind
	Table *question.PayoffTable
}

// SingleView is the presentation bundle for one evaluated answer.
type SingleView struct {
	QuestionID    int64
	Score         int
	Band          Band
	Feedback      string
	CorrectAnswer string
	Explanation   string
	UserAnswer    string
}

// TestView is the presentation bundle for a completed test.
type TestView struct {
	Aggregate int
	Band      Band
	Feedback  string
	Questions []SingleView
}

const noAnswerText = "no answer provided"

// NoEquilibriumText is the fixed rendering of a no-pure-equilibrium claim.
const NoEquilibriumText = "No pure Nash equilibrium exists"

// PresentSingle builds the display bundle for one evaluation.
func PresentSingle(eval Evaluation, ctx AnswerContext) SingleView {
	return SingleView{
		QuestionID:    eval.QuestionID,
		Score:         eval.Score,
		Band:          Classify(eval.Score),
		Feedback:      eval.Feedback,
		CorrectAnswer: eval.CorrectAnswer,
		Explanation:   eval.Explanation,
		UserAnswer:    FormatUserAnswer(ctx, eval.UserAnswer),
	}
}

// PresentTest builds the aggregate bundle for a completed test. Questions
// missing from refs are formatted as standard text answers.
func PresentTest(set TestResultSet, refs map[int64]AnswerContext) TestView {
	agg := set.Aggregate()
	band := Classify(agg)
	view := TestView{
		Aggregate: agg,
		Band:      band,
		Feedback:  TestFeedback(band),
		Questions: make([]SingleView, 0, len(set.Results)),
	}
	for _, eval := range set.Results {
		view.Questions = append(view.Questions, PresentSingle(eval, refs[eval.QuestionID]))
	}
	return view
}

// FormatUserAnswer renders a wire answer for display. Matrix-game answers
// become labeled strategy pairs with their payoffs; an unparsable payload
// falls back to the raw text rather than failing the whole view.
func FormatUserAnswer(ctx AnswerContext, wire string) string {
	if wire == "" {
		return noAnswerText
	}
	if ctx.Kind != question.KindMatrixGame {
		return wire
	}
	ans, err := question.DecodeMatrixGameAnswer(wire)
	if err != nil {
		return wire
	}
	switch {
	case ans.NoEquilibrium:
		return NoEquilibriumText
	case len(ans.Cells) == 0:
		return noAnswerText
	}
	parts := make([]string, 0, len(ans.Cells))
	for _, cell := range ans.Cells {
		parts = append(parts, formatCell(ctx.Table, cell))
	}
	return strings.Join(parts, "; ")
}

func formatCell(table *question.PayoffTable, cell question.Cell) string {
	if table == nil || !table.InBounds(cell.Row, cell.Col) {
		return fmt.Sprintf("(row %d, col %d)", cell.Row, cell.Col)
	}
	return fmt.Sprintf("(%s, %s) with payoffs %s",
		table.Rows[cell.Row], table.Cols[cell.Col], table.Payoffs[cell.Row][cell.Col])
}

package single

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartest-app/smartest-client/internal/question"
	"github.com/smartest-app/smartest-client/internal/results"
	"github.com/smartest-app/smartest-client/pkg/clienterr"
)

type stubCatalog struct {
	summaries []question.Summary
	listErr   error
	details   map[int64]question.Detail
	detailErr error
}

func (s *stubCatalog) ListSummaries(ctx context.Context) ([]question.Summary, error) {
	return s.summaries, s.listErr
}

func (s *stubCatalog) GetDetail(ctx context.Context, id int64) (question.Detail, error) {
	if s.detailErr != nil {
		return question.Detail{}, s.detailErr
	}
	det, ok := s.details[id]
	if !ok {
		return question.Detail{}, clienterr.ErrNotFound
	}
	return det, nil
}

type stubEvaluator struct {
	eval    results.Evaluation
	err     error
	gotID   int64
	gotWire string
}

func (s *stubEvaluator) Evaluate(ctx context.Context, id int64, wire string) (results.Evaluation, error) {
	s.gotID = id
	s.gotWire = wire
	return s.eval, s.err
}

func hanoiDetail(id int64) question.Detail {
	return question.Detail{
		ID: id, Type: question.TypeHanoi, Title: "Towers",
		Prompt: "Move 4 disks", CorrectAnswer: "15 moves", Explanation: "2^n - 1",
	}
}

func nashDetail(id int64, withTable bool) question.Detail {
	det := question.Detail{ID: id, Type: question.TypeMatrixGame, Title: "Game", Prompt: "Find equilibria"}
	if withTable {
		det.PayoffTable = &question.PayoffTable{
			Rows:    []string{"A1"},
			Cols:    []string{"B1"},
			Payoffs: [][]question.Payoff{{{A: 1, B: 1}}},
		}
	}
	return det
}

func TestBeginPicksFromCatalog(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{
			{ID: 1, Type: question.TypeHanoi}, {ID: 2, Type: question.TypeHanoi},
		},
		details: map[int64]question.Detail{1: hanoiDetail(1), 2: hanoiDetail(2)},
	}
	flow := NewFlow(cat, &stubEvaluator{}, zerolog.Nop())
	flow.pick = func(n int) int {
		assert.Equal(t, 2, n)
		return 1
	}

	detail, err := flow.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), detail.ID)
	assert.Equal(t, question.KindStandard, flow.Kind())
	assert.Nil(t, flow.Form())
}

func TestBeginEmptyCatalog(t *testing.T) {
	flow := NewFlow(&stubCatalog{}, &stubEvaluator{}, zerolog.Nop())
	_, err := flow.Begin(context.Background())
	assert.True(t, clienterr.IsValidation(err))
}

func TestBeginMatrixBuildsForm(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 5, Type: question.TypeMatrixGame}},
		details:   map[int64]question.Detail{5: nashDetail(5, true)},
	}
	flow := NewFlow(cat, &stubEvaluator{}, zerolog.Nop())

	_, err := flow.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, question.KindMatrixGame, flow.Kind())
	require.NotNil(t, flow.Form())
}

func TestBeginMatrixWithoutTableFallsBackToText(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 5, Type: question.TypeMatrixGame}},
		details:   map[int64]question.Detail{5: nashDetail(5, false)},
	}
	flow := NewFlow(cat, &stubEvaluator{}, zerolog.Nop())

	_, err := flow.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, question.KindStandard, flow.Kind())
	assert.Nil(t, flow.Form())
}

func TestSubmitRejectsEmptyAnswers(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 1, Type: question.TypeHanoi}},
		details:   map[int64]question.Detail{1: hanoiDetail(1)},
	}
	evaluator := &stubEvaluator{}
	flow := NewFlow(cat, evaluator, zerolog.Nop())
	_, err := flow.Begin(context.Background())
	require.NoError(t, err)

	_, err = flow.Submit(context.Background(), nil)
	assert.True(t, clienterr.IsValidation(err))
	_, err = flow.Submit(context.Background(), question.TextAnswer("   "))
	assert.True(t, clienterr.IsValidation(err))
	assert.Zero(t, evaluator.gotID, "empty answers must not reach the network")
}

func TestSubmitScoresAnswer(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 1, Type: question.TypeHanoi}},
		details:   map[int64]question.Detail{1: hanoiDetail(1)},
	}
	evaluator := &stubEvaluator{eval: results.Evaluation{
		QuestionID: 1, Score: 92, Feedback: "spot on",
		CorrectAnswer: "15 moves", UserAnswer: "15 moves",
	}}
	flow := NewFlow(cat, evaluator, zerolog.Nop())
	_, err := flow.Begin(context.Background())
	require.NoError(t, err)

	view, err := flow.Submit(context.Background(), question.TextAnswer(" 15 moves "))
	require.NoError(t, err)
	assert.Equal(t, int64(1), evaluator.gotID)
	assert.Equal(t, "15 moves", evaluator.gotWire)
	assert.Equal(t, results.BandExcellent, view.Band)
}

func TestSubmitMatrixAnswer(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 5, Type: question.TypeMatrixGame}},
		details:   map[int64]question.Detail{5: nashDetail(5, true)},
	}
	evaluator := &stubEvaluator{eval: results.Evaluation{QuestionID: 5, Score: 100}}
	flow := NewFlow(cat, evaluator, zerolog.Nop())
	_, err := flow.Begin(context.Background())
	require.NoError(t, err)

	form := flow.Form()
	require.NoError(t, form.ToggleCell(0, 0))
	_, err = flow.Submit(context.Background(), form.Answer())
	require.NoError(t, err)
	assert.JSONEq(t, `{"no_nash":false,"selected_cells":[{"i":0,"j":0}]}`, evaluator.gotWire)
}

func TestSubmitPropagatesEvaluatorError(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 1, Type: question.TypeHanoi}},
		details:   map[int64]question.Detail{1: hanoiDetail(1)},
	}
	evaluator := &stubEvaluator{err: errors.New("evaluator down")}
	flow := NewFlow(cat, evaluator, zerolog.Nop())
	_, err := flow.Begin(context.Background())
	require.NoError(t, err)

	_, err = flow.Submit(context.Background(), question.TextAnswer("x"))
	assert.Error(t, err)
}

func TestReveal(t *testing.T) {
	cat := &stubCatalog{
		summaries: []question.Summary{{ID: 1, Type: question.TypeHanoi}},
		details:   map[int64]question.Detail{1: hanoiDetail(1)},
	}
	flow := NewFlow(cat, &stubEvaluator{}, zerolog.Nop())

	_, _, err := flow.Reveal()
	assert.True(t, clienterr.IsValidation(err))

	_, err = flow.Begin(context.Background())
	require.NoError(t, err)
	correct, explanation, err := flow.Reveal()
	require.NoError(t, err)
	assert.Equal(t, "15 moves", correct)
	assert.Equal(t, "2^n - 1", explanation)
}

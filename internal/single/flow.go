// Package single drives the answer-one-question flow: pick a random saved
// question, collect an answer, submit it for scoring.
package single

import (
	"context"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smartest-app/smartest-client/internal/question"
	"github.com/smartest-app/smartest-client/internal/results"
	"github.com/smartest-app/smartest-client/pkg/clienterr"
)

// Catalog is the catalog surface the flow reads from.
type Catalog interface {
	ListSummaries(ctx context.Context) ([]question.Summary, error)
	GetDetail(ctx context.Context, id int64) (question.Detail, error)
}

// Evaluator submits one wire answer for scoring.
type Evaluator interface {
	Evaluate(ctx context.Context, id int64, wireAnswer string) (results.Evaluation, error)
}

// Flow presents one randomly chosen question and scores the user's
// answer. One instance per presented question screen.
type Flow struct {
	catalog   Catalog
	evaluator Evaluator
	logger    zerolog.Logger
	pick      func(n int) int

	mu       sync.Mutex
	current  *question.Detail
	form     *question.NashForm
	fallback bool
}

// NewFlow builds a flow over the catalog and evaluator.
func NewFlow(catalog Catalog, evaluator Evaluator, logger zerolog.Logger) *Flow {
	return &Flow{
		catalog:   catalog,
		evaluator: evaluator,
		logger:    logger,
		pick:      rand.Intn,
	}
}

// Begin picks a uniformly random question from the catalog and fetches
// its full content. clienterr.ErrNotFound propagates so the caller can
// return to the catalog view. A matrix-game question whose payoff table
// is missing degrades to a free-text form.
func (f *Flow) Begin(ctx context.Context) (question.Detail, error) {
	summaries, err := f.catalog.ListSummaries(ctx)
	if err != nil {
		return question.Detail{}, err
	}
	if len(summaries) == 0 {
		return question.Detail{}, clienterr.Validation("no questions available; generate some first")
	}
	chosen := summaries[f.pick(len(summaries))]

	detail, err := f.catalog.GetDetail(ctx, chosen.ID)
	if err != nil {
		return question.Detail{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = &detail
	f.form = nil
	f.fallback = false
	if detail.Kind() == question.KindMatrixGame {
		if detail.PayoffTable == nil {
			f.logger.Warn().Int64("question_id", detail.ID).Msg("matrix question without payoff table, using text form")
			f.fallback = true
		} else {
			f.form = question.NewNashForm(detail.PayoffTable)
		}
	}
	return detail, nil
}

// Current returns the presented question, if any.
func (f *Flow) Current() (question.Detail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return question.Detail{}, false
	}
	return *f.current, true
}

// Form returns the active matrix answer form, or nil for text questions.
func (f *Flow) Form() *question.NashForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

// Kind is the effective variant of the presented question, accounting
// for text-form fallback.
func (f *Flow) Kind() question.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kindLocked()
}

func (f *Flow) kindLocked() question.Kind {
	if f.current == nil || f.fallback {
		return question.KindStandard
	}
	return f.current.Kind()
}

// Submit validates the answer locally, then sends it for evaluation and
// returns the scored presentation bundle. Empty answers never reach the
// network.
func (f *Flow) Submit(ctx context.Context, answer question.Answer) (results.SingleView, error) {
	f.mu.Lock()
	if f.current == nil {
		f.mu.Unlock()
		return results.SingleView{}, clienterr.Validation("no question is being answered")
	}
	current := *f.current
	kind := f.kindLocked()
	f.mu.Unlock()

	if answer == nil || answer.Empty() {
		if kind == question.KindMatrixGame {
			return results.SingleView{}, clienterr.Validation("select at least one cell or declare that no equilibrium exists")
		}
		return results.SingleView{}, clienterr.Validation("please write an answer first")
	}

	eval, err := f.evaluator.Evaluate(ctx, current.ID, answer.EncodeWire())
	if err != nil {
		return results.SingleView{}, err
	}
	return results.PresentSingle(eval, results.AnswerContext{Kind: kind, Table: current.PayoffTable}), nil
}

// Reveal returns the canonical answer and explanation without scoring.
func (f *Flow) Reveal() (correct, explanation string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return "", "", clienterr.Validation("no question is being answered")
	}
	return f.current.CorrectAnswer, f.current.Explanation, nil
}

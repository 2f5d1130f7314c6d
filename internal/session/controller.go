// Package session implements the test-session state machine: a generated
// ordered question sequence, a cursor, per-question answer persistence and
// batch submission for scoring.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smartest-app/smartest-client/internal/api"
	"github.com/smartest-app/smartest-client/internal/question"
	"github.com/smartest-app/smartest-client/internal/results"
	"github.com/smartest-app/smartest-client/pkg/clienterr"
)

// Session lifecycle states.
const (
	StateUnconfigured = "unconfigured"
	StateConfiguring  = "configuring"
	StateGenerated    = "generated"
	StateInProgress   = "in_progress"
	StateSubmitting   = "submitting"
	StateCompleted    = "completed"
)

// ErrSuperseded is returned when a network response arrives after the
// session was reset or replaced; the result has been discarded.
var ErrSuperseded = errors.New("session superseded")

// Backend is the slice of the server API the controller consumes.
type Backend interface {
	TypeCounts(ctx context.Context) (map[string]int, error)
	GenerateTest(ctx context.Context, selection map[string]int) ([]question.Summary, error)
	GetQuestion(ctx context.Context, id int64) (question.Detail, error)
	EvaluateTest(ctx context.Context, submissions []api.AnswerSubmission) ([]results.Evaluation, error)
}

// Controller owns one test session exclusively: its sequence, cursor and
// answer mapping. Construct a fresh instance per session or call Reset;
// nothing is shared across sessions.
//
// State-mutating calls are mutually exclusive while a network request is
// in flight (ErrBusy), and responses that arrive after Reset are
// discarded via an epoch check, so a torn-down session is never updated.
type Controller struct {
	backend Backend
	logger  zerolog.Logger

	mu    sync.Mutex
	id    string
	state string
	epoch uint64
	busy  bool

	counts   map[string]int
	sequence []question.Summary
	cursor   int
	answers  map[int64]question.Answer

	details  map[int64]question.Detail
	fallback map[int64]bool // matrix-game detail fetch failed, use text form

	draft string
	form  *question.NashForm

	resultSet results.TestResultSet
}

// NewController builds an unconfigured session controller.
func NewController(backend Backend, logger zerolog.Logger) *Controller {
	c := &Controller{backend: backend, logger: logger}
	c.resetLocked()
	return c
}

// ID returns the client-side session identifier (changes on Reset).
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// State returns the current lifecycle state.
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset abandons the session and returns the controller to Unconfigured.
// Any request still in flight will have its response discarded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Controller) resetLocked() {
	c.epoch++
	c.busy = false
	c.id = uuid.NewString()
	c.state = StateUnconfigured
	c.counts = nil
	c.sequence = nil
	c.cursor = 0
	c.answers = make(map[int64]question.Answer)
	c.details = make(map[int64]question.Detail)
	c.fallback = make(map[int64]bool)
	c.draft = ""
	c.form = nil
	c.resultSet = results.TestResultSet{}
}

// BeginConfiguring opens the test-setup phase and fetches the per-type
// saved-question counts that bound the selection.
func (c *Controller) BeginConfiguring(ctx context.Context) (map[string]int, error) {
	c.mu.Lock()
	if c.state != StateUnconfigured && c.state != StateConfiguring {
		c.mu.Unlock()
		return nil, clienterr.Validation("a test is already in progress; reset it first")
	}
	epoch, err := c.beginCallLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	counts, err := c.backend.TypeCounts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endCallLocked(epoch) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	c.counts = counts
	c.state = StateConfiguring
	return counts, nil
}

// Generate validates the per-type selection and requests a test with that
// exact composition. On success the returned ordered sequence becomes the
// session sequence and the state moves to Generated.
func (c *Controller) Generate(ctx context.Context, selection map[string]int) error {
	c.mu.Lock()
	if c.state != StateConfiguring {
		c.mu.Unlock()
		return clienterr.Validation("test setup has not been opened")
	}
	if err := validateSelection(selection, c.counts); err != nil {
		c.mu.Unlock()
		return err
	}
	epoch, err := c.beginCallLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	sequence, err := c.backend.GenerateTest(ctx, selection)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endCallLocked(epoch) {
		return ErrSuperseded
	}
	if err != nil {
		return err
	}
	if len(sequence) == 0 {
		return &clienterr.ServerError{Op: "generate_test", Message: "server returned an empty test"}
	}
	seen := make(map[int64]bool, len(sequence))
	for _, s := range sequence {
		if seen[s.ID] {
			return &clienterr.MalformedResponseError{
				Op:  "generate_test",
				Err: fmt.Errorf("duplicate question id %d in generated test", s.ID),
			}
		}
		seen[s.ID] = true
	}
	c.sequence = sequence
	c.state = StateGenerated
	c.logger.Info().Str("session", c.id).Int("questions", len(sequence)).Msg("test generated")
	return nil
}

// Start moves a generated session into InProgress: cursor at 0, answer
// mapping empty, first question's form prepared.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateGenerated {
		c.mu.Unlock()
		return clienterr.Validation("no generated test to start")
	}
	c.state = StateInProgress
	c.cursor = 0
	c.answers = make(map[int64]question.Answer)
	c.mu.Unlock()

	return c.prepareCurrentForm(ctx)
}

// GotoQuestion captures the current question's in-progress answer, moves
// the cursor and restores the target question's saved answer. An
// out-of-range index is rejected with the cursor unchanged.
func (c *Controller) GotoQuestion(ctx context.Context, index int) error {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return clienterr.Validation("no test in progress")
	}
	if index < 0 || index >= len(c.sequence) {
		c.mu.Unlock()
		return clienterr.Validation("question %d does not exist (test has %d questions)", index+1, len(c.sequence))
	}
	c.captureCurrentLocked()
	c.cursor = index
	c.mu.Unlock()

	return c.prepareCurrentForm(ctx)
}

// SetDraftText replaces the live text input for the current question.
func (c *Controller) SetDraftText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInProgress {
		return clienterr.Validation("no test in progress")
	}
	if c.currentKindLocked() != question.KindStandard {
		return clienterr.Validation("current question takes a matrix answer, not text")
	}
	c.draft = text
	return nil
}

// ToggleCell flips one cell of the current matrix-game form.
func (c *Controller) ToggleCell(row, col int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	form, err := c.activeFormLocked()
	if err != nil {
		return err
	}
	if err := form.ToggleCell(row, col); err != nil {
		return clienterr.Validation("%v", err)
	}
	return nil
}

// ToggleNoEquilibrium flips the no-equilibrium flag of the current
// matrix-game form.
func (c *Controller) ToggleNoEquilibrium() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	form, err := c.activeFormLocked()
	if err != nil {
		return err
	}
	form.ToggleNoEquilibrium()
	return nil
}

// Finish captures the current answer, materializes the complete answer
// mapping in session order (empty string for unanswered questions) and
// submits it as one batch. Failure returns to InProgress with every
// answer intact.
func (c *Controller) Finish(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return clienterr.Validation("no test in progress")
	}
	epoch, err := c.beginCallLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.captureCurrentLocked()
	submissions := make([]api.AnswerSubmission, 0, len(c.sequence))
	for _, s := range c.sequence {
		wire := ""
		if ans, ok := c.answers[s.ID]; ok {
			wire = ans.EncodeWire()
		}
		submissions = append(submissions, api.AnswerSubmission{QuestionID: s.ID, UserAnswer: wire})
	}
	c.state = StateSubmitting
	c.mu.Unlock()

	evals, err := c.backend.EvaluateTest(ctx, submissions)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endCallLocked(epoch) {
		return ErrSuperseded
	}
	if err != nil {
		c.state = StateInProgress
		return err
	}
	c.resultSet = results.TestResultSet{Results: evals}
	c.state = StateCompleted
	c.logger.Info().Str("session", c.id).Int("aggregate", c.resultSet.Aggregate()).Msg("test completed")
	return nil
}

// ResultView returns the presentation bundle for a completed session.
func (c *Controller) ResultView() (results.TestView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCompleted {
		return results.TestView{}, clienterr.Validation("test is not completed")
	}
	refs := make(map[int64]results.AnswerContext, len(c.sequence))
	for _, s := range c.sequence {
		ctx := results.AnswerContext{Kind: s.Kind()}
		if c.fallback[s.ID] {
			ctx.Kind = question.KindStandard
		}
		if det, ok := c.details[s.ID]; ok {
			ctx.Table = det.PayoffTable
		}
		refs[s.ID] = ctx
	}
	return results.PresentTest(c.resultSet, refs), nil
}

// prepareCurrentForm loads the cursor question's saved answer into the
// active input, fetching the payoff table first for matrix-game
// questions. A failed detail fetch degrades that question to a text form
// instead of blocking the session.
func (c *Controller) prepareCurrentForm(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateInProgress {
		c.mu.Unlock()
		return nil
	}
	current := c.sequence[c.cursor]
	if c.currentKindLocked() != question.KindMatrixGame {
		c.restoreTextLocked(current.ID)
		c.mu.Unlock()
		return nil
	}
	if det, ok := c.details[current.ID]; ok && det.PayoffTable != nil {
		c.restoreMatrixLocked(current.ID, det.PayoffTable)
		c.mu.Unlock()
		return nil
	}
	epoch, err := c.beginCallLocked()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	det, err := c.backend.GetQuestion(ctx, current.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.endCallLocked(epoch) {
		return ErrSuperseded
	}
	if c.state != StateInProgress || c.sequence[c.cursor].ID != current.ID {
		// User navigated on; nothing to prepare.
		return nil
	}
	if err != nil || det.PayoffTable == nil {
		if err == nil {
			err = fmt.Errorf("detail for question %d carries no payoff table", current.ID)
		}
		c.logger.Warn().Err(err).Int64("question_id", current.ID).Msg("matrix detail unavailable, falling back to text form")
		c.fallback[current.ID] = true
		c.restoreTextLocked(current.ID)
		return nil
	}
	c.details[current.ID] = det
	c.restoreMatrixLocked(current.ID, det.PayoffTable)
	return nil
}

func (c *Controller) restoreTextLocked(id int64) {
	c.form = nil
	c.draft = ""
	if ans, ok := c.answers[id]; ok {
		if text, ok := ans.(question.TextAnswer); ok {
			c.draft = string(text)
		}
	}
}

func (c *Controller) restoreMatrixLocked(id int64, table *question.PayoffTable) {
	c.draft = ""
	c.form = question.NewNashForm(table)
	if ans, ok := c.answers[id]; ok {
		if matrix, ok := ans.(question.MatrixGameAnswer); ok {
			c.form.Load(matrix)
		}
	}
}

// captureCurrentLocked persists the live input for the cursor question:
// trimmed text for standard questions (empty overwrites included), the
// form snapshot for matrix-game questions when non-trivial, otherwise an
// explicit empty answer.
func (c *Controller) captureCurrentLocked() {
	if len(c.sequence) == 0 {
		return
	}
	id := c.sequence[c.cursor].ID
	if c.currentKindLocked() == question.KindMatrixGame && c.form != nil {
		ans := c.form.Answer()
		if ans.Empty() {
			c.answers[id] = question.TextAnswer("")
			return
		}
		c.answers[id] = ans
		return
	}
	c.answers[id] = question.TextAnswer(strings.TrimSpace(c.draft))
}

// currentKindLocked is the effective variant of the cursor question,
// accounting for text-form fallback.
func (c *Controller) currentKindLocked() question.Kind {
	if len(c.sequence) == 0 {
		return question.KindStandard
	}
	current := c.sequence[c.cursor]
	if c.fallback[current.ID] {
		return question.KindStandard
	}
	return current.Kind()
}

func (c *Controller) activeFormLocked() (*question.NashForm, error) {
	if c.state != StateInProgress {
		return nil, clienterr.Validation("no test in progress")
	}
	if c.currentKindLocked() != question.KindMatrixGame || c.form == nil {
		return nil, clienterr.Validation("current question takes a text answer, not matrix toggles")
	}
	return c.form, nil
}

func (c *Controller) beginCallLocked() (uint64, error) {
	if c.busy {
		return 0, clienterr.ErrBusy
	}
	c.busy = true
	return c.epoch, nil
}

// endCallLocked clears the in-flight flag and reports whether the
// response still belongs to this session.
func (c *Controller) endCallLocked(epoch uint64) bool {
	if epoch != c.epoch {
		return false
	}
	c.busy = false
	return true
}

// validateSelection checks each requested count against availability and
// requires a positive total. Runs entirely locally.
func validateSelection(selection, available map[string]int) error {
	total := 0
	for typeTag, requested := range selection {
		if requested < 0 {
			return clienterr.Validation("requested count for %q cannot be negative", typeTag)
		}
		if requested == 0 {
			continue
		}
		have, ok := available[typeTag]
		if !ok || have == 0 {
			return clienterr.Validation("no saved questions of type %q", typeTag)
		}
		if requested > have {
			return clienterr.Validation("only %d questions of type %q available, %d requested", have, typeTag, requested)
		}
		total += requested
	}
	if total == 0 {
		return clienterr.Validation("select at least one question")
	}
	return nil
}

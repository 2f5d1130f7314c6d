// Package api is the typed client for the SmarTest server: question
// catalog, generation, evaluation and PDF export, all JSON over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/smartest-app/smartest-client/internal/question"
	"github.com/smartest-app/smartest-client/internal/results"
	"github.com/smartest-app/smartest-client/pkg/clienterr"
)

// Client talks to one SmarTest server. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient builds a client for the given base URL. A nil httpClient gets
// a default with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:5000"
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// AnswerSubmission is one (question id, wire answer) pair of a batch
// evaluation request, in session order.
type AnswerSubmission struct {
	QuestionID int64  `json:"question_id"`
	UserAnswer string `json:"user_answer"`
}

type errEnvelope struct {
	Error string `json:"error"`
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// ListQuestions fetches all saved question summaries.
func (c *Client) ListQuestions(ctx context.Context) ([]question.Summary, error) {
	const op = "list_questions"
	var payload struct {
		Questions []question.Summary `json:"questions"`
		Total     int                `json:"total"`
	}
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/questions", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Questions, nil
}

// TypeCounts fetches the number of saved questions per type tag.
func (c *Client) TypeCounts(ctx context.Context) (map[string]int, error) {
	const op = "type_counts"
	var payload []struct {
		Type  string `json:"type"`
		Count int    `json:"count"`
	}
	if err := c.doJSON(ctx, op, http.MethodGet, "/api/question-types", nil, &payload); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(payload))
	for _, entry := range payload {
		counts[entry.Type] = entry.Count
	}
	return counts, nil
}

type detailWire struct {
	question.Detail
	GameData json.RawMessage `json:"game_data"`
}

func (w detailWire) toDetail(op string) (question.Detail, error) {
	d := w.Detail
	if d.Kind() == question.KindMatrixGame && len(w.GameData) > 0 {
		table, err := question.DecodePayoffTable(w.GameData)
		if err != nil {
			return question.Detail{}, &clienterr.MalformedResponseError{Op: op, Err: err}
		}
		d.PayoffTable = table
	}
	return d, nil
}

// GetQuestion fetches the full content of one question, including the
// payoff table for matrix-game questions.
func (c *Client) GetQuestion(ctx context.Context, id int64) (question.Detail, error) {
	const op = "get_question"
	var wire detailWire
	if err := c.doJSON(ctx, op, http.MethodGet, fmt.Sprintf("/api/question/%d", id), nil, &wire); err != nil {
		return question.Detail{}, err
	}
	return wire.toDetail(op)
}

// DeleteQuestion removes one saved question and returns the server's
// confirmation message.
func (c *Client) DeleteQuestion(ctx context.Context, id int64) (string, error) {
	const op = "delete_question"
	var payload statusEnvelope
	if err := c.doJSON(ctx, op, http.MethodDelete, fmt.Sprintf("/api/delete/%d", id), nil, &payload); err != nil {
		return "", err
	}
	if !payload.Success {
		return "", &clienterr.ServerError{Op: op, Status: http.StatusOK, Message: payload.Message}
	}
	return payload.Message, nil
}

// ClearAll removes every saved question.
func (c *Client) ClearAll(ctx context.Context) (string, error) {
	const op = "clear_all"
	var payload statusEnvelope
	if err := c.doJSON(ctx, op, http.MethodDelete, "/api/clear-all", nil, &payload); err != nil {
		return "", err
	}
	if !payload.Success {
		return "", &clienterr.ServerError{Op: op, Status: http.StatusOK, Message: payload.Message}
	}
	return payload.Message, nil
}

// Generate creates and persists one question of the given type.
func (c *Client) Generate(ctx context.Context, typeTag string) (question.Detail, error) {
	const op = "generate"
	body := map[string]string{"type": typeTag}
	var wire detailWire
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/generate", body, &wire); err != nil {
		return question.Detail{}, err
	}
	return wire.toDetail(op)
}

// BatchGenerate creates count questions of the given type. Historical
// server revisions answer either with the created question list or with a
// {success, message} status object; both are accepted.
func (c *Client) BatchGenerate(ctx context.Context, typeTag string, count int) ([]question.Detail, string, error) {
	const op = "batch_generate"
	body := map[string]any{"type": typeTag, "count": count}
	var raw json.RawMessage
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/batch-generate", body, &raw); err != nil {
		return nil, "", err
	}
	if first := firstByte(raw); first == '[' {
		var wires []detailWire
		if err := json.Unmarshal(raw, &wires); err != nil {
			return nil, "", &clienterr.MalformedResponseError{Op: op, Err: err}
		}
		details := make([]question.Detail, 0, len(wires))
		for _, w := range wires {
			d, err := w.toDetail(op)
			if err != nil {
				return nil, "", err
			}
			details = append(details, d)
		}
		return details, "", nil
	}
	var payload statusEnvelope
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", &clienterr.MalformedResponseError{Op: op, Err: err}
	}
	if !payload.Success {
		return nil, "", &clienterr.ServerError{Op: op, Status: http.StatusOK, Message: payload.Message}
	}
	return nil, payload.Message, nil
}

// GenerateTest requests a test with the exact per-type composition and
// returns the generated ordered question sequence.
func (c *Client) GenerateTest(ctx context.Context, selection map[string]int) ([]question.Summary, error) {
	const op = "generate_test"
	var payload []question.Summary
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/generate-test", selection, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Evaluate submits one wire answer for scoring.
func (c *Client) Evaluate(ctx context.Context, id int64, wireAnswer string) (results.Evaluation, error) {
	const op = "evaluate"
	body := map[string]any{"question_id": id, "user_answer": wireAnswer}
	var eval results.Evaluation
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/evaluate", body, &eval); err != nil {
		return results.Evaluation{}, err
	}
	eval.QuestionID = id
	if eval.UserAnswer == "" {
		eval.UserAnswer = wireAnswer
	}
	return eval, nil
}

// EvaluateTest submits a complete answer sequence as one batch and returns
// one evaluation per submission, order preserved.
func (c *Client) EvaluateTest(ctx context.Context, submissions []AnswerSubmission) ([]results.Evaluation, error) {
	const op = "evaluate_test"
	var evals []results.Evaluation
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/evaluate-test", submissions, &evals); err != nil {
		return nil, err
	}
	if len(evals) != len(submissions) {
		return nil, &clienterr.MalformedResponseError{
			Op:  op,
			Err: fmt.Errorf("got %d results for %d submissions", len(evals), len(submissions)),
		}
	}
	// Some revisions omit the echo fields; restore them from the request.
	for i := range evals {
		if evals[i].QuestionID == 0 {
			evals[i].QuestionID = submissions[i].QuestionID
		}
		if evals[i].UserAnswer == "" {
			evals[i].UserAnswer = submissions[i].UserAnswer
		}
	}
	return evals, nil
}

// ExportPDF streams the exported question PDF into w and returns the
// number of bytes written.
func (c *Client) ExportPDF(ctx context.Context, w io.Writer) (int64, error) {
	const op = "export_pdf"
	start := time.Now()
	n, err := c.exportPDF(ctx, op, w)
	observe(op, start, err)
	c.logResult(op, start, err)
	return n, err
}

func (c *Client) exportPDF(ctx context.Context, op string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/export-pdf", nil)
	if err != nil {
		return 0, fmt.Errorf("%s: build request: %w", op, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &clienterr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return 0, &clienterr.ServerError{Op: op, Status: resp.StatusCode}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &clienterr.NetworkError{Op: op, Err: err}
	}
	return n, nil
}

// doJSON performs one JSON round trip and maps failures onto the client
// error taxonomy.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	err := c.roundTrip(ctx, op, method, path, body, out)
	observe(op, start, err)
	c.logResult(op, start, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &clienterr.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &clienterr.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, clienterr.ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		return &clienterr.ServerError{Op: op, Status: resp.StatusCode, Message: decodeErrorMessage(data)}
	}
	// 2xx bodies can still carry {"error": ...}.
	if msg := decodeErrorMessage(data); msg != "" {
		return &clienterr.ServerError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &clienterr.MalformedResponseError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) logResult(op string, start time.Time, err error) {
	if err != nil {
		c.logger.Warn().Str("operation", op).Dur("elapsed", time.Since(start)).Err(err).Msg("api call failed")
		return
	}
	c.logger.Debug().Str("operation", op).Dur("elapsed", time.Since(start)).Msg("api call ok")
}

func decodeErrorMessage(data []byte) string {
	if firstByte(data) != '{' {
		return ""
	}
	var envelope errEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return ""
	}
	return envelope.Error
}

func firstByte(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}

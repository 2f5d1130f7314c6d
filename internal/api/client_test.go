package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartest-app/smartest-client/pkg/clienterr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.Client(), zerolog.Nop())
}

func TestListQuestions(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/questions", r.URL.Path)
		_, _ = w.Write([]byte(`{"questions":[{"id":1,"type":"hanoi","title":"Towers","question":"Move 5 disks"},{"id":2,"type":"nash","title":"Game","question":"Find equilibria"}],"total":2}`))
	})

	summaries, err := client.ListQuestions(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, int64(1), summaries[0].ID)
	assert.Equal(t, "nash", summaries[1].Type)
}

func TestTypeCounts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/question-types", r.URL.Path)
		_, _ = w.Write([]byte(`[{"type":"nash","count":3},{"type":"hanoi","count":0}]`))
	})

	counts, err := client.TypeCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"nash": 3, "hanoi": 0}, counts)
}

func TestGetQuestionDecodesPayoffTable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/question/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":42,"type":"nash","title":"Game","question":"Find equilibria","correctAnswer":"(A1, B1)","explanation":"...","game_data":{"rows":["A1","A2"],"cols":["B1"],"payoffs":[[[1,2]],[[3,4]]]}}`))
	})

	detail, err := client.GetQuestion(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, detail.PayoffTable)
	assert.Equal(t, []string{"A1", "A2"}, detail.PayoffTable.Rows)
}

func TestGetQuestionBadPayoffTableIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":42,"type":"nash","title":"Game","question":"?","game_data":{"rows":["A1"],"cols":["B1"],"payoffs":[]}}`))
	})

	_, err := client.GetQuestion(context.Background(), 42)
	var malformed *clienterr.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestGetQuestionNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"question not found"}`))
	})

	_, err := client.GetQuestion(context.Background(), 99)
	assert.ErrorIs(t, err, clienterr.ErrNotFound)
}

func TestErrorEnvelopeOn200(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"generator unavailable"}`))
	})

	_, err := client.ListQuestions(context.Background())
	var serverErr *clienterr.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "generator unavailable", serverErr.Message)
}

func TestNetworkErrorMapping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on
	client := NewClient(server.URL, nil, zerolog.Nop())

	_, err := client.ListQuestions(context.Background())
	var netErr *clienterr.NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[]`))
	})

	_, err := client.TypeCounts(context.Background())
	var malformed *clienterr.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestDeleteQuestion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/delete/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"message":"deleted"}`))
	})

	msg, err := client.DeleteQuestion(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "deleted", msg)
}

func TestGenerateTestSendsSelection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-test", r.URL.Path)
		var selection map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&selection))
		assert.Equal(t, map[string]int{"nash": 1, "hanoi": 2}, selection)
		_, _ = w.Write([]byte(`[{"id":1,"type":"hanoi","title":"a","question":"p1"},{"id":2,"type":"hanoi","title":"b","question":"p2"},{"id":3,"type":"nash","title":"c","question":"p3"}]`))
	})

	sequence, err := client.GenerateTest(context.Background(), map[string]int{"nash": 1, "hanoi": 2})
	require.NoError(t, err)
	assert.Len(t, sequence, 3)
	assert.Equal(t, int64(3), sequence[2].ID)
}

func TestEvaluateFillsEcho(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(5), body["question_id"])
		assert.Equal(t, "recursion", body["user_answer"])
		_, _ = w.Write([]byte(`{"score":85,"feedback":"good","correctAnswer":"recursive","explanation":"..."}`))
	})

	eval, err := client.Evaluate(context.Background(), 5, "recursion")
	require.NoError(t, err)
	assert.Equal(t, int64(5), eval.QuestionID)
	assert.Equal(t, 85, eval.Score)
	assert.Equal(t, "recursion", eval.UserAnswer)
}

func TestEvaluateTestPreservesOrderAndEcho(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var subs []AnswerSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&subs))
		require.Len(t, subs, 2)
		_, _ = w.Write([]byte(`[{"score":100,"feedback":"a","correctAnswer":"x"},{"score":0,"feedback":"b","correctAnswer":"y"}]`))
	})

	subs := []AnswerSubmission{
		{QuestionID: 11, UserAnswer: "x"},
		{QuestionID: 12, UserAnswer: ""},
	}
	evals, err := client.EvaluateTest(context.Background(), subs)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, int64(11), evals[0].QuestionID)
	assert.Equal(t, "x", evals[0].UserAnswer)
	assert.Equal(t, int64(12), evals[1].QuestionID)
	assert.Equal(t, "", evals[1].UserAnswer)
}

func TestEvaluateTestCountMismatchIsMalformed(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"score":100}]`))
	})

	_, err := client.EvaluateTest(context.Background(), []AnswerSubmission{
		{QuestionID: 1}, {QuestionID: 2},
	})
	var malformed *clienterr.MalformedResponseError
	assert.ErrorAs(t, err, &malformed)
}

func TestBatchGenerateListShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1,"type":"knight","title":"a","question":"p"},{"id":2,"type":"knight","title":"b","question":"p"}]`))
	})

	details, msg, err := client.BatchGenerate(context.Background(), "knight", 2)
	require.NoError(t, err)
	assert.Empty(t, msg)
	assert.Len(t, details, 2)
}

func TestBatchGenerateStatusShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"message":"5 questions generated"}`))
	})

	details, msg, err := client.BatchGenerate(context.Background(), "knight", 5)
	require.NoError(t, err)
	assert.Nil(t, details)
	assert.Equal(t, "5 questions generated", msg)
}

func TestExportPDFStreamsBody(t *testing.T) {
	payload := []byte("%PDF-1.4 fake content")
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/export-pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write(payload)
	})

	var buf bytes.Buffer
	n, err := client.ExportPDF(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestExportPDFServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	var buf bytes.Buffer
	_, err := client.ExportPDF(context.Background(), &buf)
	var serverErr *clienterr.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusInternalServerError, serverErr.Status)
}

func TestValidationHelper(t *testing.T) {
	err := clienterr.Validation("empty answer")
	assert.True(t, clienterr.IsValidation(err))
	assert.False(t, clienterr.IsValidation(errors.New("other")))
}

package question

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindMatrixGame, KindOf(TypeMatrixGame))
	assert.Equal(t, KindStandard, KindOf(TypeHanoi))
	assert.Equal(t, KindStandard, KindOf("some-future-type"))
}

func TestTextAnswerEncodeWire(t *testing.T) {
	assert.Equal(t, "backtracking", TextAnswer("  backtracking \n").EncodeWire())
	assert.True(t, TextAnswer("   ").Empty())
	assert.Equal(t, "", TextAnswer("   ").EncodeWire())
}

func TestMatrixGameAnswerWireRoundTrip(t *testing.T) {
	ans := MatrixGameAnswer{Cells: []Cell{{Row: 0, Col: 1}, {Row: 2, Col: 0}}}
	wire := ans.EncodeWire()
	assert.JSONEq(t, `{"no_nash":false,"selected_cells":[{"i":0,"j":1},{"i":2,"j":0}]}`, wire)

	decoded, err := DecodeMatrixGameAnswer(wire)
	require.NoError(t, err)
	assert.Equal(t, ans, decoded)
}

func TestMatrixGameAnswerEmptyEncodesToEmptyString(t *testing.T) {
	assert.Equal(t, "", MatrixGameAnswer{}.EncodeWire())

	decoded, err := DecodeMatrixGameAnswer("")
	require.NoError(t, err)
	assert.True(t, decoded.Empty())
}

func TestDecodeMatrixGameAnswerRejectsGarbage(t *testing.T) {
	_, err := DecodeMatrixGameAnswer("not json")
	assert.Error(t, err)
}

func TestDecodeMatrixGameAnswerRejectsFlagWithCells(t *testing.T) {
	_, err := DecodeMatrixGameAnswer(`{"no_nash":true,"selected_cells":[{"i":0,"j":0}]}`)
	assert.Error(t, err)
}

func TestDecodeWireAnswerDispatchesOnKind(t *testing.T) {
	ans, err := DecodeWireAnswer(KindStandard, "hello")
	require.NoError(t, err)
	assert.Equal(t, TextAnswer("hello"), ans)

	ans, err = DecodeWireAnswer(KindMatrixGame, `{"no_nash":true,"selected_cells":[]}`)
	require.NoError(t, err)
	assert.True(t, ans.(MatrixGameAnswer).NoEquilibrium)
}

func TestDecodePayoffTable(t *testing.T) {
	raw := json.RawMessage(`{"rows":["A1","A2"],"cols":["B1","B2","B3"],"payoffs":[[[1,2],[3,4],[5,6]],[[7,8],[9,10],[-1,-2]]]}`)
	table, err := DecodePayoffTable(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2"}, table.Rows)
	assert.Equal(t, Payoff{A: 9, B: 10}, table.Payoffs[1][1])
	assert.True(t, table.InBounds(1, 2))
	assert.False(t, table.InBounds(2, 0))
}

func TestDecodePayoffTableStringEmbedded(t *testing.T) {
	// Older revisions store the table as a JSON string inside the document.
	inner := `{"rows":["A1"],"cols":["B1"],"payoffs":[[[0,0]]]}`
	quoted, err := json.Marshal(inner)
	require.NoError(t, err)

	table, err := DecodePayoffTable(quoted)
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, table.Cols)
}

func TestDecodePayoffTableRejectsRagged(t *testing.T) {
	raw := json.RawMessage(`{"rows":["A1","A2"],"cols":["B1","B2"],"payoffs":[[[1,2],[3,4]],[[5,6]]]}`)
	_, err := DecodePayoffTable(raw)
	assert.Error(t, err)
}

func TestDecodePayoffTableRejectsBadPair(t *testing.T) {
	raw := json.RawMessage(`{"rows":["A1"],"cols":["B1"],"payoffs":[[[1,2,3]]]}`)
	_, err := DecodePayoffTable(raw)
	assert.Error(t, err)
}

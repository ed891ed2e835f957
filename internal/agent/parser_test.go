package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserDefaultChain(t *testing.T) {
	tests := []struct {
		name string
		text string
		want any
	}{
		{
			name: "fenced block in prose",
			text: " Here is the result:\n```json\n{\"a\":1}\n```\nThanks",
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "bare object",
			text: `{"a":1}`,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "uppercase fence tag",
			text: "```JSON\n{\"a\":true}\n```",
			want: map[string]any{"a": true},
		},
		{
			name: "object inside prose",
			text: `Sure! {"concepts":[{"id":"c1"}]} hope it helps`,
			want: map[string]any{"concepts": []any{map[string]any{"id": "c1"}}},
		},
		{
			name: "brackets inside strings",
			text: `note {"a":"} and ]","b":"\"{"} end`,
			want: map[string]any{"a": "} and ]", "b": `"{`},
		},
		{
			name: "array span",
			text: "ids: [1, 2]",
			want: []any{float64(1), float64(2)},
		},
		{
			name: "unbalanced opener skipped",
			text: "{ oops [1,2]",
			want: []any{float64(1), float64(2)},
		},
		{
			name: "untagged fence falls to balanced span",
			text: "```\n{\"a\":2}\n```",
			want: map[string]any{"a": float64(2)},
		},
		{
			name: "whole text scalar",
			text: "  42 ",
			want: float64(42),
		},
	}

	p := DefaultParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParserDecodeFailureDoesNotFallThrough(t *testing.T) {
	text := "```json\n{bad}\n```\nand also {\"a\":1}"

	_, err := DefaultParser().Parse(text)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "fenced_block", perr.Strategy)
	assert.Equal(t, "{bad}", perr.Snippet)
	assert.NotNil(t, perr.Unwrap())
}

func TestParserNoPayload(t *testing.T) {
	for _, text := range []string{"I cannot help with that.", "", "{]"} {
		_, err := DefaultParser().Parse(text)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "text %q", text)
	}
}

func TestParserNoStrategies(t *testing.T) {
	_, err := (&Parser{}).Parse(`{"a":1}`)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, perr.Strategy)
}

func TestParserDecodeTyped(t *testing.T) {
	var out struct {
		Confidence float64 `json:"confidence"`
		Learned    string  `json:"learned"`
	}
	err := DefaultParser().Decode("ok:\n```json\n{\"confidence\": 0.9, \"learned\": \"warm\"}\n```", &out)
	require.NoError(t, err)
	assert.Equal(t, 0.9, out.Confidence)
	assert.Equal(t, "warm", out.Learned)
}

func TestLenientStrategy(t *testing.T) {
	text := "```json\n{\n  \"a\": 1, // one\n  \"url\": \"http://example.com\",\n}\n```"

	_, err := DefaultParser().Parse(text)
	require.Error(t, err, "strict chain rejects comments")

	lenient := &Parser{Strategies: []Strategy{Lenient{Inner: FencedBlock{}}, WholeText{}}}
	got, err := lenient.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1), "url": "http://example.com"}, got)
	assert.Equal(t, "lenient_fenced_block", Lenient{Inner: FencedBlock{}}.Name())
}

func TestSnippetTruncates(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	s := snippet(string(long))
	assert.Len(t, s, snippetLen+3)
}

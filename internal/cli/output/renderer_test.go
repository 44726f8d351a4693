package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(mode Mode, isTTY bool) (*Renderer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewRendererWithTTY(out, &bytes.Buffer{}, isTTY, mode), out
}

func TestEffectiveMode(t *testing.T) {
	tests := []struct {
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{ModeAuto, true, ModeText},
		{ModeAuto, false, ModeMarkdown},
		{"", false, ModeMarkdown},
		{ModeJSON, true, ModeJSON},
		{ModeText, false, ModeText},
		{ModeYAML, false, ModeYAML},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r, _ := newTestRenderer(tt.mode, tt.isTTY)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTTY(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestTable(t *testing.T) {
	header := []string{"schema", "violations"}
	rows := [][]any{{"orders", 2}}

	t.Run("markdown", func(t *testing.T) {
		r, out := newTestRenderer(ModeMarkdown, false)
		r.Table(header, rows)
		assert.Contains(t, out.String(), "| schema |")
		assert.Contains(t, out.String(), "| orders |")
	})

	t.Run("text", func(t *testing.T) {
		r, out := newTestRenderer(ModeText, false)
		r.Table(header, rows)
		assert.Contains(t, out.String(), "orders")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestHeader(t *testing.T) {
	r, out := newTestRenderer(ModeMarkdown, false)
	r.Header(2, "Results")
	assert.Equal(t, "## Results\n\n", out.String())

	r, out = newTestRenderer(ModeText, false)
	r.Header(1, "Results")
	assert.Equal(t, "Results\n=======\n", out.String())
}

func TestStructured(t *testing.T) {
	v := map[string]any{"status": "passed"}

	r, out := newTestRenderer(ModeJSON, false)
	ok, err := r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"status":"passed"}`, out.String())

	r, out = newTestRenderer(ModeYAML, false)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "status: passed\n", out.String())

	r, out = newTestRenderer(ModeText, false)
	ok, err = r.Structured(v)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, out.String())
}

func TestStatus(t *testing.T) {
	r, _ := newTestRenderer(ModeText, false)
	assert.Equal(t, "Passed", r.Status("passed"))

	r, _ = newTestRenderer(ModeText, true)
	assert.Contains(t, r.Status("failed"), "Failed")
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Not Null", Title("not_null"))
	assert.Equal(t, "Warned", Title("warned"))
}

func TestFormatKeyValue(t *testing.T) {
	assert.Equal(t, "- **Run:** abc", FormatKeyValue(ModeMarkdown, "Run", "abc"))
	assert.Equal(t, "Run: abc", FormatKeyValue(ModeText, "Run", "abc"))
}

// Package output renders command results for terminals, scripts and agents.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Mode selects how results are rendered.
type Mode string

// Output modes.
const (
	ModeAuto     Mode = "auto"
	ModeText     Mode = "text"
	ModeMarkdown Mode = "markdown"
	ModeJSON     Mode = "json"
	ModeYAML     Mode = "yaml"
)

// Renderer writes command output in the configured mode.
type Renderer struct {
	out   io.Writer
	err   io.Writer
	mode  Mode
	isTTY bool
}

// NewRenderer creates a renderer. The TTY state is detected from out.
func NewRenderer(out, errOut io.Writer, mode Mode) *Renderer {
	return NewRendererWithTTY(out, errOut, isTerminal(out), mode)
}

// NewRendererWithTTY creates a renderer with an explicit TTY state.
func NewRendererWithTTY(out, errOut io.Writer, isTTY bool, mode Mode) *Renderer {
	if mode == "" {
		mode = ModeAuto
	}
	return &Renderer{out: out, err: errOut, mode: mode, isTTY: isTTY}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// EffectiveMode resolves auto: styled text on a terminal, markdown when
// piped.
func (r *Renderer) EffectiveMode() Mode {
	if r.mode != ModeAuto {
		return r.mode
	}
	if r.isTTY {
		return ModeText
	}
	return ModeMarkdown
}

// IsTTY reports whether output goes to a terminal.
func (r *Renderer) IsTTY() bool { return r.isTTY }

// Writer returns the output writer.
func (r *Renderer) Writer() io.Writer { return r.out }

// Println writes a line to the output.
func (r *Renderer) Println(a ...any) {
	_, _ = fmt.Fprintln(r.out, a...)
}

// Printf writes formatted output.
func (r *Renderer) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// Warnf writes a formatted line to the error writer.
func (r *Renderer) Warnf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.err, format+"\n", a...)
}

// Header writes a section heading.
func (r *Renderer) Header(level int, title string) {
	if r.EffectiveMode() == ModeMarkdown {
		r.Println(FormatHeader(level, title))
		r.Println()
		return
	}
	if r.isTTY {
		title = text.Bold.Sprint(title)
	}
	r.Println(title)
	if level == 1 {
		r.Println(strings.Repeat("=", text.RuneWidthWithoutEscSequences(title)))
	}
}

// Table renders rows under header, as a box table in text mode and a pipe
// table in markdown mode.
func (r *Renderer) Table(header []string, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)

	h := make(table.Row, len(header))
	for i, c := range header {
		h[i] = c
	}
	t.AppendHeader(h)
	for _, row := range rows {
		t.AppendRow(table.Row(row))
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		r.Println()
		return
	}
	t.Render()
}

// JSON writes v as indented JSON.
func (r *Renderer) JSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// YAML writes v as YAML.
func (r *Renderer) YAML(v any) error {
	enc := yaml.NewEncoder(r.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// Structured writes v in JSON or YAML mode and reports whether it did.
func (r *Renderer) Structured(v any) (bool, error) {
	switch r.EffectiveMode() {
	case ModeJSON:
		return true, r.JSON(v)
	case ModeYAML:
		return true, r.YAML(v)
	default:
		return false, nil
	}
}

// Status renders a check or run status, colored on a terminal.
func (r *Renderer) Status(status string) string {
	label := Title(status)
	if !r.isTTY || r.EffectiveMode() != ModeText {
		return label
	}
	switch status {
	case "passed", "completed":
		return text.FgGreen.Sprint(label)
	case "warned", "cancelled":
		return text.FgYellow.Sprint(label)
	case "failed", "errored":
		return text.FgRed.Sprint(label)
	default:
		return label
	}
}

var titleCaser = cases.Title(language.English)

// Title capitalizes each word of s.
func Title(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

// FormatHeader returns a markdown heading.
func FormatHeader(level int, title string) string {
	if level < 1 {
		level = 1
	}
	return strings.Repeat("#", level) + " " + title
}

// FormatKeyValue returns a "key: value" line, bolding the key in markdown.
func FormatKeyValue(mode Mode, key string, value any) string {
	if mode == ModeMarkdown {
		return fmt.Sprintf("- **%s:** %v", key, value)
	}
	return fmt.Sprintf("%s: %v", key, value)
}

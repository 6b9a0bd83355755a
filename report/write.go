package report

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles colors the text report. The zero value prints plain text.
type Styles struct {
	Key     lipgloss.Style
	OK      lipgloss.Style
	Error   lipgloss.Style
	Output  lipgloss.Style
	colored bool
}

// PlainStyles prints without escape sequences.
func PlainStyles() Styles {
	return Styles{}
}

// ColorStyles is used when stdout is a terminal.
func ColorStyles() Styles {
	return Styles{
		Key:     lipgloss.NewStyle().Bold(true),
		OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		Output:  lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		colored: true,
	}
}

func (s Styles) paint(st lipgloss.Style, text string) string {
	if !s.colored || text == "" {
		return text
	}
	return st.Render(text)
}

// Write prints r. A failed run prints the validity flag, the stage and the
// reason; a successful one adds memory, exports, imports and one line per
// invoked function.
func Write(w io.Writer, r *Report, s Styles) error {
	bw := bufio.NewWriter(w)
	p := printer{w: bw, s: s}

	if r.File != "" {
		p.field("file", r.File)
	}

	if !r.Valid {
		p.field("valid", s.paint(s.Error, "false"))
		if r.Stage != "" {
			p.field("stage", string(r.Stage))
		}
		p.multiline("error", r.Reason())
		if len(r.Imports) > 0 {
			p.imports(r)
		}
		return bw.Flush()
	}

	p.field("valid", s.paint(s.OK, "true"))
	memory := strconv.FormatUint(r.MemoryKiB(), 10) + " KiB"
	if r.MemorySource != "" {
		memory += " (" + string(r.MemorySource) + ")"
	}
	p.field("memory", memory)

	p.heading("exports")
	if len(r.Exports) == 0 {
		p.line("  (none)")
	}
	for _, e := range r.Exports {
		p.line("  " + e.Name)
	}
	p.imports(r)

	if len(r.Outcomes) > 0 {
		p.heading("invocations")
	}
	for _, o := range r.Outcomes {
		if o.OK() {
			p.line("  " + o.Name + ": " + s.paint(s.OK, "OK") + " (result: " + o.Value + ")")
		} else {
			p.line("  " + o.Name + ": " + s.paint(s.Error, "ERROR") + " (" + o.Reason + ")")
		}
		p.output(o.Output)
	}

	return bw.Flush()
}

type printer struct {
	w *bufio.Writer
	s Styles
}

func (p printer) line(text string) {
	p.w.WriteString(text)
	p.w.WriteByte('\n')
}

func (p printer) field(key, value string) {
	p.line(p.s.paint(p.s.Key, key+":") + " " + value)
}

func (p printer) heading(key string) {
	p.line(p.s.paint(p.s.Key, key+":"))
}

// multiline prints the first line after the key and indents the rest,
// dropping blank lines.
func (p printer) multiline(key, value string) {
	lines := strings.Split(value, "\n")
	p.field(key, lines[0])
	for _, l := range lines[1:] {
		if l == "" {
			continue
		}
		p.line("  " + l)
	}
}

func (p printer) imports(r *Report) {
	p.heading("imports")
	if len(r.Imports) == 0 {
		p.line("  (none)")
	}
	for _, imp := range r.Imports {
		p.line("  " + imp.Key() + " (" + imp.Kind.String() + ")")
	}
}

// output prints captured console text under the invocation it belongs to.
func (p printer) output(text string) {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return
	}
	for _, l := range strings.Split(text, "\n") {
		p.line("    " + p.s.paint(p.s.Output, "| "+l))
	}
}

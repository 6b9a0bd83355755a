package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasmcheck/harness"
	"github.com/wippyai/wasmcheck/report"
	"github.com/wippyai/wasmcheck/validator"
	"github.com/wippyai/wasmcheck/wasmbin"
)

var (
	accent = lipgloss.Color("#7D56F4")

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#FAFAFA")).Background(accent)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Background(accent)
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#98FB98"))
	sigStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

// screen is what the browser currently shows.
type screen int

const (
	screenExports screen = iota
	screenArgs
	screenOutcome
	screenReport
)

type export struct {
	name    string
	params  []wasmbin.ValType
	results []wasmbin.ValType
}

// browser lists a module's function exports and calls them on demand.
type browser struct {
	loadErr error
	v       *validator.Validator
	session *validator.Session
	outcome *harness.Outcome
	path    string
	summary string
	exports []export
	args    []textinput.Model
	cursor  int
	field   int
	screen  screen
}

type openedMsg struct {
	err     error
	session *validator.Session
	exports []export
}

type invokedMsg harness.Outcome

type reportedMsg string

func newBrowser(v *validator.Validator, path string) *browser {
	return &browser{v: v, path: path}
}

func (b *browser) Init() tea.Cmd {
	return b.open
}

func (b *browser) open() tea.Msg {
	s, err := b.v.OpenFile(context.Background(), b.path)
	if err != nil {
		return openedMsg{err: err}
	}

	var exports []export
	for _, e := range s.Exports() {
		if ft, ok := s.Signature(e.Name); ok {
			exports = append(exports, export{name: e.Name, params: ft.Params, results: ft.Results})
		}
	}
	return openedMsg{session: s, exports: exports}
}

func (b *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if model, cmd, handled := b.key(msg.String()); handled {
			return model, cmd
		}
	case openedMsg:
		b.loadErr = msg.err
		b.session = msg.session
		b.exports = msg.exports
		return b, nil
	case invokedMsg:
		o := harness.Outcome(msg)
		b.outcome = &o
		b.screen = screenOutcome
		return b, nil
	case reportedMsg:
		b.summary = string(msg)
		b.screen = screenReport
		return b, nil
	}

	if b.screen != screenArgs {
		return b, nil
	}
	cmds := make([]tea.Cmd, len(b.args))
	for i := range b.args {
		b.args[i], cmds[i] = b.args[i].Update(msg)
	}
	return b, tea.Batch(cmds...)
}

// key handles navigation. Keys it does not consume fall through to the
// argument fields.
func (b *browser) key(k string) (tea.Model, tea.Cmd, bool) {
	if k == "ctrl+c" || (k == "q" && b.screen != screenArgs) {
		if b.session != nil {
			b.session.Close(context.Background())
		}
		return b, tea.Quit, true
	}

	switch b.screen {
	case screenExports:
		switch k {
		case "up", "k":
			if b.cursor > 0 {
				b.cursor--
			}
		case "down", "j":
			if b.cursor < len(b.exports)-1 {
				b.cursor++
			}
		case "a":
			if b.session != nil {
				return b, b.runAll, true
			}
		case "enter":
			if len(b.exports) == 0 {
				break
			}
			b.args = argFields(b.exports[b.cursor])
			b.field = 0
			if len(b.args) == 0 {
				return b, b.invoke, true
			}
			b.screen = screenArgs
		}
		return b, nil, true

	case screenArgs:
		switch k {
		case "enter":
			return b, b.invoke, true
		case "esc":
			b.back()
			return b, nil, true
		case "tab":
			if len(b.args) > 1 {
				b.args[b.field].Blur()
				b.field = (b.field + 1) % len(b.args)
				b.args[b.field].Focus()
			}
			return b, nil, true
		}
		return b, nil, false

	default:
		if k == "enter" || k == "esc" {
			b.back()
		}
		return b, nil, true
	}
}

func (b *browser) back() {
	b.screen = screenExports
	b.args = nil
	b.outcome = nil
	b.summary = ""
}

func argFields(e export) []textinput.Model {
	fields := make([]textinput.Model, len(e.params))
	for i, vt := range e.params {
		in := textinput.New()
		in.Prompt = fmt.Sprintf("$%d %s: ", i, vt)
		in.Placeholder = "0"
		in.Width = 40
		fields[i] = in
	}
	if len(fields) > 0 {
		fields[0].Focus()
	}
	return fields
}

func (b *browser) invoke() tea.Msg {
	e := b.exports[b.cursor]
	params := make([]uint64, len(b.args))
	for i, in := range b.args {
		params[i] = convertArg(in.Value(), e.params[i])
	}
	return invokedMsg(b.session.Invoke(context.Background(), e.name, params))
}

func (b *browser) runAll() tea.Msg {
	var buf bytes.Buffer
	r := b.session.Report(b.session.RunAll(context.Background()))
	if err := report.Write(&buf, r, report.ColorStyles()); err != nil {
		return reportedMsg(err.Error())
	}
	return reportedMsg(buf.String())
}

// convertArg parses a typed-in argument. Anything unparseable becomes zero,
// the value a batch run passes.
func convertArg(value string, vt wasmbin.ValType) uint64 {
	value = strings.TrimSpace(value)
	switch vt {
	case wasmbin.ValI32:
		v, _ := strconv.ParseInt(value, 0, 32)
		return api.EncodeI32(int32(v))
	case wasmbin.ValI64:
		v, _ := strconv.ParseInt(value, 0, 64)
		return api.EncodeI64(v)
	case wasmbin.ValF32:
		v, _ := strconv.ParseFloat(value, 32)
		return api.EncodeF32(float32(v))
	case wasmbin.ValF64:
		v, _ := strconv.ParseFloat(value, 64)
		return api.EncodeF64(v)
	}
	return 0
}

func (b *browser) View() string {
	if b.loadErr != nil {
		return failStyle.Render("Error: "+b.loadErr.Error()) + "\n\n" + dimStyle.Render("q quit")
	}
	if b.session == nil {
		return "Opening " + b.path + "..."
	}

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("wasmcheck") + " " + b.path + "\n\n")

	switch b.screen {
	case screenExports:
		if len(b.exports) == 0 {
			sb.WriteString("No function exports.\n\n")
			sb.WriteString(dimStyle.Render("q quit"))
			break
		}
		for i, e := range b.exports {
			if i == b.cursor {
				sb.WriteString(cursorStyle.Render("> "+signature(e, false)) + "\n")
				continue
			}
			sb.WriteString("  " + signature(e, true) + "\n")
		}
		sb.WriteString("\n" + dimStyle.Render("↑/↓ move • enter call • a run all • q quit"))

	case screenArgs:
		sb.WriteString("Arguments for " + nameStyle.Render(b.exports[b.cursor].name) + "\n\n")
		for _, in := range b.args {
			sb.WriteString(in.View() + "\n")
		}
		sb.WriteString("\n" + dimStyle.Render("tab next • enter call • esc back"))

	case screenOutcome:
		o := b.outcome
		sb.WriteString(nameStyle.Render(o.Name) + " ")
		if o.OK() {
			sb.WriteString(okStyle.Render("OK " + o.Value))
		} else {
			sb.WriteString(failStyle.Render(o.Status.String() + ": " + o.Reason))
		}
		if out := strings.TrimSuffix(o.Output, "\n"); out != "" {
			sb.WriteString("\n\n" + dimStyle.Render(out))
		}
		sb.WriteString("\n\n" + dimStyle.Render("enter back • q quit"))

	case screenReport:
		sb.WriteString(b.summary + "\n" + dimStyle.Render("enter back • q quit"))
	}

	return sb.String()
}

// signature renders an export as name(params) -> results.
func signature(e export, styled bool) string {
	paint := func(st lipgloss.Style, s string) string {
		if styled {
			return st.Render(s)
		}
		return s
	}

	params := make([]string, len(e.params))
	for i, vt := range e.params {
		params[i] = vt.String()
	}
	s := paint(nameStyle, e.name) + "(" + paint(sigStyle, strings.Join(params, ", ")) + ")"

	results := make([]string, len(e.results))
	for i, vt := range e.results {
		results[i] = vt.String()
	}
	switch len(results) {
	case 0:
		return s
	case 1:
		return s + " -> " + paint(sigStyle, results[0])
	default:
		return s + " -> " + paint(sigStyle, "("+strings.Join(results, ", ")+")")
	}
}

func runInteractive(v *validator.Validator, path string) error {
	_, err := tea.NewProgram(newBrowser(v, path), tea.WithAltScreen()).Run()
	return err
}

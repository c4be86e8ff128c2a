package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/0xb-s/flashops"
	"github.com/0xb-s/flashops/host"
	"github.com/0xb-s/flashops/shim"
)

var (
	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type paramKind int

const (
	kindU32 paramKind = iota
	kindOp
	kindHex
)

func (k paramKind) String() string {
	switch k {
	case kindOp:
		return "erase|program|verify"
	case kindHex:
		return "hex bytes"
	default:
		return "u32"
	}
}

type paramSpec struct {
	name string
	kind paramKind
}

type entrySpec struct {
	name   string
	params []paramSpec
}

// entryPoints lists the callable entry points for a loaded algorithm,
// filtered by its capabilities.
func entryPoints(caps shim.Capability) []entrySpec {
	entries := []entrySpec{
		{flashops.SymInitialize, []paramSpec{
			{"address", kindU32}, {"clock", kindU32}, {"op", kindOp}}},
		{flashops.SymDeinitialize, nil},
		{flashops.SymEraseSector, []paramSpec{{"address", kindU32}}},
		{flashops.SymProgramPage, []paramSpec{
			{"address", kindU32}, {"data", kindHex}}},
	}
	if caps.Has(shim.CapEraseChip) {
		entries = append(entries, entrySpec{flashops.SymEraseChip, nil})
	}
	if caps.Has(shim.CapVerify) {
		entries = append(entries, entrySpec{flashops.SymVerify, []paramSpec{
			{"address", kindU32}, {"size", kindU32}, {"data", kindHex}}})
	}
	return entries
}

type modelState int

const (
	stateSelectEntry modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	cleanup  func()
	algo     *host.Algorithm
	filename string
	result   string
	entries  []entrySpec
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		state:    stateSelectEntry,
	}
}

type loadedMsg struct {
	err     error
	cleanup func()
	algo    *host.Algorithm
}

type callResultMsg struct {
	err  error
	code uint32
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadAlgorithm
}

func (m *interactiveModel) loadAlgorithm() tea.Msg {
	a, cleanup, err := loadAlgorithm(context.Background(), m.filename, false)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{algo: a, cleanup: cleanup}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.algo != nil {
				m.algo.Close(context.Background())
			}
			if m.cleanup != nil {
				m.cleanup()
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectEntry && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectEntry && m.selected < len(m.entries)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectEntry:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callEntry
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callEntry

			case stateShowResult:
				m.state = stateSelectEntry
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectEntry
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectEntry
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.cleanup = msg.cleanup
		m.algo = msg.algo
		m.entries = entryPoints(msg.algo.Capabilities())

	case callResultMsg:
		if msg.err != nil {
			m.err = msg.err
		} else if msg.code == 0 {
			m.result = "ok (code 0)"
		} else {
			m.result = fmt.Sprintf("error code 0x%X", msg.code)
		}
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	e := m.entries[m.selected]
	m.inputs = make([]textinput.Model, len(e.params))
	for i, p := range e.params {
		ti := textinput.New()
		ti.Placeholder = p.kind.String()
		ti.Prompt = p.name + ": "
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callEntry() tea.Msg {
	ctx := context.Background()
	e := m.entries[m.selected]

	value := func(i int) string {
		if i < len(m.inputs) {
			return m.inputs[i].Value()
		}
		return ""
	}

	var (
		code uint32
		err  error
	)
	switch e.name {
	case flashops.SymInitialize:
		var addr, clk uint32
		var op flashops.Operation
		if addr, err = parseU32(value(0)); err == nil {
			if clk, err = parseU32(value(1)); err == nil {
				if op, err = parseOp(value(2)); err == nil {
					code, err = m.algo.Initialize(ctx, addr, clk, op)
				}
			}
		}

	case flashops.SymDeinitialize:
		code, err = m.algo.Deinitialize(ctx)

	case flashops.SymEraseSector:
		var addr uint32
		if addr, err = parseU32(value(0)); err == nil {
			code, err = m.algo.EraseSector(ctx, addr)
		}

	case flashops.SymProgramPage:
		var addr uint32
		var data []byte
		if addr, err = parseU32(value(0)); err == nil {
			if data, err = parseHex(value(1)); err == nil {
				code, err = m.algo.ProgramPage(ctx, addr, data)
			}
		}

	case flashops.SymEraseChip:
		code, err = m.algo.EraseChip(ctx)

	case flashops.SymVerify:
		var addr, size uint32
		var data []byte
		if addr, err = parseU32(value(0)); err == nil {
			if data, err = parseHex(value(2)); err == nil && len(data) > 0 {
				code, err = m.algo.Verify(ctx, addr, data)
			} else if err == nil {
				if size, err = parseU32(value(1)); err == nil {
					code, err = m.algo.VerifyErased(ctx, addr, size)
				}
			}
		}
	}

	return callResultMsg{code: code, err: err}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.algo == nil {
		return "Loading algorithm..."
	}

	var b strings.Builder

	b.WriteString(headingStyle.Render("Flash Algorithm"))
	b.WriteString(" ")
	b.WriteString(m.algo.Device().Name)
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(m.filename))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectEntry:
		b.WriteString("Select an entry point to call:\n\n")
		for i, e := range m.entries {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatEntry(e)))
			} else {
				b.WriteString(cursor + m.formatEntry(e))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		e := m.entries[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(e.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(e.params[i].kind.String()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		e := m.entries[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(e.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatEntry(e entrySpec) string {
	var params []string
	for _, p := range e.params {
		params = append(params, p.name+": "+typeStyle.Render(p.kind.String()))
	}
	return funcStyle.Render(e.name) + "(" + strings.Join(params, ", ") + ")"
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

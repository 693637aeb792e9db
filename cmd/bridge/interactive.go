package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"

	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/interchange"
	"github.com/wippyai/script-bridge/transcoder"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	hintStyle = lipgloss.NewStyle().
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

type interactiveModel struct {
	err      error
	rt       *engine.Runtime
	filename string
	result   string
	actions  []actionInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type actionInfo struct {
	name   string
	desc   string
	params []paramInfo
	run    func(rt *engine.Runtime, values []string) (string, error)
}

type paramInfo struct {
	name string
	hint string
}

type modelState int

const (
	stateSelectAction modelState = iota
	stateInputArgs
	stateShowResult
)

func newInteractiveModel(filename string) *interactiveModel {
	return &interactiveModel{
		filename: filename,
		state:    stateSelectAction,
	}
}

type loadedMsg struct {
	err     error
	rt      *engine.Runtime
	actions []actionInfo
}

type callResultMsg struct {
	err    error
	result string
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadRuntime
}

func (m *interactiveModel) loadRuntime() tea.Msg {
	rt := engine.New()
	if m.filename != "" {
		if err := rt.LoadClasses(m.filename); err != nil {
			return loadedMsg{err: err}
		}
	}

	actions := []actionInfo{
		{
			name:   "decode",
			desc:   "JSON -> guest -> Go value",
			params: []paramInfo{{name: "json", hint: `{"a": 1}`}},
			run:    runDecode,
		},
		{
			name:   "round-trip",
			desc:   "JSON -> guest -> Go -> guest -> JSON",
			params: []paramInfo{{name: "json", hint: `{"a": [1, 2.5, null]}`}},
			run:    runRoundTrip,
		},
	}
	for _, className := range rt.ClassNames() {
		actions = append(actions, actionInfo{
			name:   "new " + className,
			desc:   "instantiate and decode methods",
			params: []paramInfo{{name: "fields", hint: "a,b,c (optional)"}},
			run:    runNewInstance(className),
		})
	}

	return loadedMsg{rt: rt, actions: actions}
}

func runDecode(rt *engine.Runtime, values []string) (string, error) {
	obj, err := interchange.FromJSON(rt, []byte(values[0]))
	if err != nil {
		return "", err
	}
	val, err := transcoder.DecodeValue(obj)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Guest: %s\n\n%s", engine.Inspect(obj), spew.Sdump(val)), nil
}

func runRoundTrip(rt *engine.Runtime, values []string) (string, error) {
	obj, err := interchange.FromJSON(rt, []byte(values[0]))
	if err != nil {
		return "", err
	}
	val, err := transcoder.DecodeValue(obj)
	if err != nil {
		return "", err
	}
	back, err := transcoder.Marshal(rt, val)
	if err != nil {
		return "", err
	}
	out, err := interchange.ToJSON(back)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Guest: %s\nJSON:  %s", engine.Inspect(back), out), nil
}

func runNewInstance(className string) func(rt *engine.Runtime, values []string) (string, error) {
	return func(rt *engine.Runtime, values []string) (string, error) {
		obj, err := rt.NewInstance(className)
		if err != nil {
			return "", err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Instance: %s\n", engine.Inspect(obj))
		for _, field := range splitFields(values[0]) {
			res, err := obj.Call(field)
			if err != nil {
				return "", err
			}
			val, err := transcoder.DecodeValue(res)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "%s = %s", field, spew.Sdump(val))
		}
		return b.String(), nil
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "q":
			if m.state != stateInputArgs {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectAction && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectAction && m.selected < len(m.actions)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectAction:
				if len(m.actions) == 0 {
					return m, nil
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callAction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callAction

			case stateShowResult:
				m.state = stateSelectAction
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
				m.state = stateSelectAction
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectAction
				m.result = ""
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.actions = msg.actions

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
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
	a := m.actions[m.selected]
	m.inputs = make([]textinput.Model, len(a.params))
	for i, p := range a.params {
		ti := textinput.New()
		ti.Placeholder = p.hint
		ti.Prompt = p.name + ": "
		ti.Width = 60
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callAction() tea.Msg {
	if m.rt == nil {
		return callResultMsg{err: fmt.Errorf("runtime not loaded")}
	}

	a := m.actions[m.selected]
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}

	result, err := a.run(m.rt, values)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: result}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if len(m.actions) == 0 {
		return "Loading runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Script Bridge"))
	if m.filename != "" {
		b.WriteString(" ")
		b.WriteString(m.filename)
	}
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectAction:
		b.WriteString("Select an action:\n\n")
		for i, a := range m.actions {
			cursor := "  "
			if i == m.selected {
				cursor = "> "
				b.WriteString(selectedStyle.Render(cursor + m.formatAction(a)))
			} else {
				b.WriteString(cursor + m.formatAction(a))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • q quit"))

	case stateInputArgs:
		a := m.actions[m.selected]
		b.WriteString(fmt.Sprintf("Running %s\n\n", actionStyle.Render(a.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(hintStyle.Render(a.params[i].name))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter run • esc back"))

	case stateShowResult:
		a := m.actions[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", actionStyle.Render(a.name)))
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

func (m *interactiveModel) formatAction(a actionInfo) string {
	return actionStyle.Render(a.name) + "  " + hintStyle.Render(a.desc)
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

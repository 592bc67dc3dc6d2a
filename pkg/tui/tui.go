// Package tui provides a terminal user interface for zplanebank
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/james-see/zplanebank/pkg/bank"
	"github.com/james-see/zplanebank/pkg/config"
	"github.com/james-see/zplanebank/pkg/ingest"
	"github.com/james-see/zplanebank/pkg/sysex"
	"github.com/james-see/zplanebank/pkg/zplane"
)

// Z-plane palette
var (
	poleCyan   = lipgloss.Color("#00E5FF")
	zeroPink   = lipgloss.Color("#FF4FD8")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#222233")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(poleCyan).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(poleCyan).
			Bold(true).
			PaddingLeft(2)

	descStyle = lipgloss.NewStyle().
			Foreground(zeroPink).
			PaddingLeft(4)

	statusStyle = lipgloss.NewStyle().
			Foreground(zeroPink).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF3B3B")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(poleCyan).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666677")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(poleCyan).
			Padding(1, 2)
)

// State represents the current TUI state
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateWorking
	StateResult
)

// Action is one menu entry and the file operation behind it
type Action struct {
	Title       string
	Description string
	Extensions  []string
	run         func(path string, cfg config.Config) (outcome, error)
}

// outcome is what an action reports back to the result view
type outcome struct {
	outputs []string
	lines   []string
}

func actions(cfg config.Config) []Action {
	return []Action{
		{
			Title:       "Decode bank",
			Description: "Recover strings, coefficients and presets from a container",
			Extensions:  []string{".svz", ".bin"},
			run:         decodeAction,
		},
		{
			Title:       fmt.Sprintf("Convert shapes %d → %d", cfg.Shapes.SourceRate, cfg.Shapes.DestRate),
			Description: "Re-express pole shapes at the target sample rate",
			Extensions:  []string{".json"},
			run:         convertAction,
		},
		{
			Title:       "Encode presets",
			Description: "Build a 32-preset bank container from a preset list",
			Extensions:  []string{".json"},
			run:         encodeAction,
		},
		{
			Title:       "Ingest SysEx",
			Description: "Read E-MU preset dumps into a preset list",
			Extensions:  []string{".syx"},
			run:         ingestAction,
		},
		{Title: "Exit", Description: "Exit the application"},
	}
}

// Model represents the TUI model
type Model struct {
	cfg        config.Config
	actions    []Action
	state      State
	menuIndex  int
	filePicker filepicker.Model
	spinner    spinner.Model
	selected   string
	action     Action
	result     outcome
	err        error
	width      int
	height     int
}

// actionDoneMsg signals that the running action finished
type actionDoneMsg struct {
	result outcome
	err    error
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New creates a new TUI model
func New(cfg config.Config) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".svz", ".bin", ".json", ".syx"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(poleCyan)

	return Model{
		cfg:        cfg,
		actions:    actions(cfg),
		state:      StateMenu,
		filePicker: fp,
		spinner:    s,
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker needs every message while it is open
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selected = path
			m.state = StateWorking
			return m, tea.Batch(m.spinner.Tick, m.runAction())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		m.state = StateResult
		m.result = msg.result
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(m.actions)-1 {
			m.menuIndex++
		}
	case "enter":
		if m.menuIndex == len(m.actions)-1 {
			return m, tea.Quit
		}
		m.action = m.actions[m.menuIndex]
		m.state = StateFilePicker
		m.filePicker.AllowedTypes = m.action.Extensions
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.selected = ""
		m.result = outcome{}
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) runAction() tea.Cmd {
	action, path, cfg := m.action, m.selected, m.cfg
	return func() tea.Msg {
		if action.run == nil {
			return actionDoneMsg{err: fmt.Errorf("%s has no operation", action.Title)}
		}
		res, err := action.run(path, cfg)
		return actionDoneMsg{result: res, err: err}
	}
}

func stem(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

func decodeAction(path string, cfg config.Config) (outcome, error) {
	artifacts, written, err := bank.DecodeFile(path, stem(path)+"_decoded", cfg.DecodeOptions()...)
	if err != nil {
		return outcome{}, err
	}
	lines := []string{
		fmt.Sprintf("Payload: %d bytes from marker at %d", len(artifacts.Decompressed), artifacts.MarkerOffset),
		fmt.Sprintf("Strings: %d  Coefficient runs: %d  Signatures: %d",
			len(artifacts.Strings), len(artifacts.Coefficients), len(artifacts.Signatures)),
	}
	if len(artifacts.Presets) > 0 {
		lines = append(lines, fmt.Sprintf("Presets: %d (first %q)", len(artifacts.Presets), artifacts.Presets[0].Name))
	}
	lines = append(lines, artifacts.Warnings...)
	return outcome{outputs: written, lines: lines}, nil
}

func convertAction(path string, cfg config.Config) (outcome, error) {
	out := fmt.Sprintf("%s_%d.json", stem(path), cfg.Shapes.DestRate)
	report, err := zplane.ConvertFile(path, out, cfg.Shapes.DestRate)
	if err != nil {
		return outcome{}, err
	}
	lines := []string{fmt.Sprintf("%d → %d Hz (ratio %.4f)", report.SourceRate, report.DestRate, report.Ratio)}
	for _, s := range report.Shapes {
		lines = append(lines, fmt.Sprintf("%-12s %6.2f dB → %6.2f dB @ %.0f Hz", s.Name, s.BeforeDB, s.AfterDB, report.ProbeHz))
	}
	return outcome{outputs: []string{out}, lines: lines}, nil
}

func encodeAction(path string, cfg config.Config) (outcome, error) {
	out := stem(path) + ".svz"
	res, err := bank.EncodeFile(path, out, cfg.Bank.Name)
	if err != nil {
		return outcome{}, err
	}
	lines := []string{fmt.Sprintf("%d bytes, payload %d bytes", len(res.Data), res.RawSize)}
	for _, w := range res.Warnings {
		lines = append(lines, w.Error())
	}
	return outcome{outputs: []string{out}, lines: lines}, nil
}

func ingestAction(path string, cfg config.Config) (outcome, error) {
	presets, err := sysex.LoadPresets(path)
	if err != nil {
		return outcome{}, err
	}
	data, err := ingest.MarshalPresets(cfg.Bank.Name, presets)
	if err != nil {
		return outcome{}, err
	}
	out := stem(path) + "_presets.json"
	if err := os.WriteFile(out, data, 0644); err != nil {
		return outcome{}, err
	}
	return outcome{outputs: []string{out}, lines: []string{fmt.Sprintf("%d preset(s)", len(presets))}}, nil
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(asciiLogo())
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateWorking:
		s.WriteString(m.viewWorking())
	case StateResult:
		s.WriteString(m.viewResult())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓: navigate • enter: select • q: quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT ACTION "))
	s.WriteString("\n\n")

	for i, a := range m.actions {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render("▸ " + a.Title))
			s.WriteString("\n")
			s.WriteString(descStyle.Render(a.Description))
		} else {
			s.WriteString(menuStyle.Render("  " + a.Title))
		}
		s.WriteString("\n")
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(fmt.Sprintf(" SELECT %s FILE ", strings.ToUpper(strings.Join(m.action.Extensions, "/")))))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: back to menu"))

	return s.String()
}

func (m Model) viewWorking() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	fmt.Fprintf(&s, "%s %s...\n", m.spinner.View(), filepath.Base(m.selected))
	s.WriteString(statusStyle.Render("  " + m.action.Title))

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" ERROR "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("✗ " + m.action.Title + " failed: " + m.err.Error()))
	} else {
		s.WriteString(titleStyle.Render(" DONE "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render("✓ " + m.action.Title))
		s.WriteString("\n\n")
		fmt.Fprintf(&s, "Input:  %s\n", filepath.Base(m.selected))
		for _, line := range m.result.lines {
			s.WriteString(line + "\n")
		}
		for _, out := range m.result.outputs {
			fmt.Fprintf(&s, "Output: %s\n", filepath.Base(out))
		}
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Press enter to continue"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
  ____ ___  _      __    _  _  ___  ___   __    _  _  _  _
 |_  /| _ \| |    /  \  | \| || __|| _ ) /  \  | \| || |/ /
  / / |  _/| |__ | () | | .' || _| | _ \| () | | .' || ' <
 /___||_|  |____| \__/  |_|\_||___||___/ \__/  |_|\_||_|\_\
`
	return lipgloss.NewStyle().Foreground(poleCyan).Render(logo)
}

// Run starts the TUI application
func Run(cfg config.Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

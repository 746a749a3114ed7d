package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/naming"
	"github.com/Nomadcxx/jellyname/internal/session"
)

// editField is the setting currently being edited, if any.
type editField int

const (
	editNone editField = iota
	editTemplate
	editChannel
)

func (f editField) label() string {
	switch f {
	case editTemplate:
		return "Template"
	case editChannel:
		return "Channel"
	}
	return ""
}

// Model is the interactive rename review. It lists the preview of every
// file and lets the user tweak the template and channel before applying.
type Model struct {
	detector *detector.Detector
	names    []string
	settings session.Settings
	previews []naming.Preview

	viewport viewport.Model
	ready    bool
	width    int
	height   int

	editing editField
	input   textinput.Model

	apply bool
}

// NewModel creates a review for names rendered with settings
func NewModel(d *detector.Detector, names []string, settings session.Settings) Model {
	if settings.Template == "" {
		settings.Template = naming.DefaultTemplate
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 70

	m := Model{
		detector: d,
		names:    names,
		settings: settings,
		input:    ti,
	}
	m.previews = naming.PreviewBatch(d, names, settings.Template, settings.Channel)
	return m
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing != editNone {
			return m.updateEditing(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "t":
			return m.startEditing(editTemplate, m.settings.Template)

		case "c":
			return m.startEditing(editChannel, m.settings.Channel)

		case "enter":
			m.apply = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		height := msg.Height - m.chromeHeight()
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.viewport.SetContent(m.renderPreviews())
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) startEditing(field editField, value string) (tea.Model, tea.Cmd) {
	m.editing = field
	m.input.Prompt = field.label() + ": "
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = editNone
		m.input.Blur()
		m.refresh(m.settings)
		return m, nil

	case tea.KeyEnter:
		value := m.input.Value()
		switch m.editing {
		case editTemplate:
			if strings.TrimSpace(value) == "" {
				return m, nil
			}
			m.settings.Template = value
		case editChannel:
			m.settings.Channel = strings.TrimSpace(value)
		}
		m.editing = editNone
		m.input.Blur()
		m.refresh(m.settings)
		return m, nil

	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refresh(m.draft())
	return m, cmd
}

// draft is the settings with the value being typed applied
func (m Model) draft() session.Settings {
	s := m.settings
	switch m.editing {
	case editTemplate:
		if strings.TrimSpace(m.input.Value()) != "" {
			s.Template = m.input.Value()
		}
	case editChannel:
		s.Channel = strings.TrimSpace(m.input.Value())
	}
	return s
}

func (m *Model) refresh(s session.Settings) {
	m.previews = naming.PreviewBatch(m.detector, m.names, s.Template, s.Channel)
	if m.ready {
		m.viewport.SetContent(m.renderPreviews())
	}
}

func (m Model) chromeHeight() int {
	// header, settings line, footer, input box
	return 6
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	header := FormatHeader(fmt.Sprintf("JELLYNAME REVIEW  %d file(s)", len(m.previews)), m.width)

	settings := MutedStyle.Render("Template: ") + ContentStyle.Render(m.settings.Template) + "  " +
		MutedStyle.Render("Channel: ") + ContentStyle.Render(orUnset(m.settings.Channel))

	var footer string
	var input string
	if m.editing != editNone {
		input = InputStyle.Render(m.input.View())
		footer = FormatFooter(m.width,
			FormatKeybinding("Enter", "Save"),
			FormatKeybinding("Esc", "Cancel"),
		)
	} else {
		footer = FormatFooter(m.width,
			FormatKeybinding("↑↓", "Scroll"),
			FormatKeybinding("t", "Template"),
			FormatKeybinding("c", "Channel"),
			FormatKeybinding("Enter", "Apply"),
			FormatKeybinding("q", "Quit"),
		)
	}

	parts := []string{header, settings, m.viewport.View()}
	if input != "" {
		parts = append(parts, input)
	}
	parts = append(parts, footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderPreviews() string {
	if len(m.previews) == 0 {
		return MutedStyle.Render("No media files to rename.")
	}

	counts := make(map[string]int, len(m.previews))
	for _, p := range m.previews {
		counts[p.New]++
	}

	var sb strings.Builder
	for i, p := range m.previews {
		sb.WriteString(MutedStyle.Render(fmt.Sprintf("%3d. ", i+1)))
		sb.WriteString(ContentStyle.Render(p.Original) + "\n")

		target := SuccessStyle.Render(p.New)
		if p.New == p.Original {
			target = MutedStyle.Render(p.New + " (unchanged)")
		} else if counts[p.New] > 1 {
			target = WarningStyle.Render(p.New + " (duplicate)")
		}
		sb.WriteString("     -> " + target)
		if !p.Episode.Valid {
			sb.WriteString(" " + ErrorStyle.Render("[no episode]"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

// ShouldApply reports whether the user confirmed the rename
func (m Model) ShouldApply() bool {
	return m.apply
}

// Settings returns the template and channel as edited in the review
func (m Model) Settings() session.Settings {
	return m.settings
}

// Previews returns the current preview rows
func (m Model) Previews() []naming.Preview {
	return m.previews
}

// Editing reports whether a setting is being edited
func (m Model) Editing() bool {
	return m.editing != editNone
}

// Run shows the review full screen and returns the final model
func Run(d *detector.Detector, names []string, settings session.Settings) (Model, error) {
	p := tea.NewProgram(NewModel(d, names, settings), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Model{}, fmt.Errorf("review failed: %w", err)
	}
	return final.(Model), nil
}

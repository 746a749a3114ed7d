package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/Nomadcxx/jellyname/internal/organizer"
)

type journalItem struct {
	journal *organizer.Journal
}

func (i journalItem) Title() string { return i.journal.ID }

func (i journalItem) Description() string {
	j := i.journal
	return fmt.Sprintf("%s • %d renamed, %d failed • %s",
		j.Status, j.Succeeded(), j.Failed(), humanize.Time(j.CreatedAt))
}

func (i journalItem) FilterValue() string { return i.journal.ID }

// revertable reports whether Undo would accept the journal
func revertable(j *organizer.Journal) bool {
	return !j.DryRun && j.Status != organizer.StatusReverted && j.Succeeded() > 0
}

// JournalPicker lists rename journals, newest first, and lets the user
// choose one to undo.
type JournalPicker struct {
	list     list.Model
	selected *organizer.Journal
	message  string
}

// NewJournalPicker creates a picker over journals
func NewJournalPicker(journals []*organizer.Journal) JournalPicker {
	items := make([]list.Item, 0, len(journals))
	for _, j := range journals {
		items = append(items, journalItem{journal: j})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = lipgloss.NewStyle().
		Foreground(BackgroundBlue).
		Background(AccentRed).
		Bold(true)
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().
		Foreground(BackgroundBlue).
		Background(AccentDarkRed)
	delegate.Styles.NormalTitle = ContentStyle
	delegate.Styles.NormalDesc = MutedStyle

	l := list.New(items, delegate, 80, 20)
	l.Title = "RENAME JOURNALS"
	l.Styles.Title = TitleStyle
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return JournalPicker{list: l}
}

// Init initializes the TUI
func (m JournalPicker) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m JournalPicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit

		case "enter":
			item, ok := m.list.SelectedItem().(journalItem)
			if !ok {
				return m, nil
			}
			if !revertable(item.journal) {
				m.message = fmt.Sprintf("%s cannot be undone (%s)", item.journal.ID, item.journal.Status)
				return m, nil
			}
			m.selected = item.journal
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 4
		if height < 8 {
			height = 8
		}
		m.list.SetSize(msg.Width-4, height)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the TUI
func (m JournalPicker) View() string {
	if len(m.list.Items()) == 0 {
		return MutedStyle.Render("No rename journals found.") + "\n"
	}

	view := m.list.View() + "\n"
	if m.message != "" {
		view += WarningStyle.Render(m.message) + "\n"
	}
	view += MutedStyle.Render("Enter to undo • q to quit")
	return lipgloss.NewStyle().Padding(1, 2).Render(view)
}

// Selected returns the journal chosen for undo, or nil
func (m JournalPicker) Selected() *organizer.Journal {
	return m.selected
}

// PickJournal shows the picker and returns the chosen journal, or nil
func PickJournal(journals []*organizer.Journal) (*organizer.Journal, error) {
	final, err := tea.NewProgram(NewJournalPicker(journals)).Run()
	if err != nil {
		return nil, fmt.Errorf("journal picker failed: %w", err)
	}
	return final.(JournalPicker).Selected(), nil
}

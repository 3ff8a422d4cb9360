package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/service"
)

// Ingester is the admin screen's view of the ingestion pipeline.
type Ingester interface {
	IngestFile(ctx context.Context, path string, target domain.Target) (*service.IngestResult, error)
}

type ingestDoneMsg struct {
	result *service.IngestResult
	err    error
}

const (
	adminBranch = iota
	adminYear
	adminPath
	adminSubmit
	adminFields
)

// AdminModel is the upload screen: pick a branch and year, point at a PDF
// and submit it for indexing.
type AdminModel struct {
	ctx      context.Context
	ingester Ingester

	branch  selector
	year    selector
	path    textinput.Model
	spinner spinner.Model
	focus   int

	busy    bool
	status  string
	failed  bool
	summary string
}

// NewAdmin creates the upload screen offering the given branches and years.
func NewAdmin(ctx context.Context, ingester Ingester, branches, years []string) AdminModel {
	ti := textinput.New()
	ti.Prompt = "PDF> "
	ti.Placeholder = "path/to/syllabus.pdf"
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := AdminModel{
		ctx:      ctx,
		ingester: ingester,
		branch:   newSelector("Branch", branches),
		year:     newSelector("Year", years),
		path:     ti,
		spinner:  sp,
		status:   "Choose a branch and year, then enter the syllabus PDF path.",
	}
	m.setFocus(adminBranch)
	return m
}

func (m AdminModel) Init() tea.Cmd { return textinput.Blink }

func (m *AdminModel) setFocus(f int) tea.Cmd {
	m.focus = (f + adminFields) % adminFields
	m.branch.focused = m.focus == adminBranch
	m.year.focused = m.focus == adminYear
	if m.focus == adminPath {
		return m.path.Focus()
	}
	m.path.Blur()
	return nil
}

func (m AdminModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.failed = true
			m.status = "Upload failed: " + msg.err.Error()
			return m, nil
		}
		m.failed = false
		m.summary = msg.result.Summary
		m.status = fmt.Sprintf("Uploaded & indexed %s successfully! %d chunks stored under %s in %s.",
			msg.result.Target, msg.result.Chunks, msg.result.Prefix, msg.result.Duration.Round(time.Millisecond))
		m.path.SetValue("")
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "left", "right":
			if s := m.focusedSelector(); s != nil {
				if msg.String() == "left" {
					s.prev()
				} else {
					s.next()
				}
				return m, nil
			}
		case "enter":
			if m.focus == adminPath || m.focus == adminSubmit {
				return m.submit()
			}
			return m, m.setFocus(m.focus + 1)
		}
	}
	if m.focus != adminPath {
		return m, nil
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *AdminModel) focusedSelector() *selector {
	switch m.focus {
	case adminBranch:
		return &m.branch
	case adminYear:
		return &m.year
	}
	return nil
}

func (m AdminModel) submit() (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(m.path.Value())
	target := domain.Target{Branch: m.branch.value(), Year: m.year.value()}
	switch {
	case target.Validate() != nil:
		m.failed, m.status = true, "Select a branch and a year."
		return m, nil
	case path == "":
		m.failed, m.status = true, "Enter the path of the syllabus PDF."
		return m, nil
	case !strings.EqualFold(filepath.Ext(path), ".pdf"):
		m.failed, m.status = true, "Only PDF files can be uploaded."
		return m, nil
	}

	m.busy, m.failed = true, false
	m.status = fmt.Sprintf("Indexing %s for %s...", filepath.Base(path), target)
	ctx, ing := m.ctx, m.ingester
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := ing.IngestFile(ctx, path, target)
		return ingestDoneMsg{result: res, err: err}
	})
}

func (m AdminModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Syllabus Admin: Upload PDF"))
	sb.WriteString("\n\n")
	sb.WriteString(m.branch.view())
	sb.WriteString("\n")
	sb.WriteString(m.year.view())
	sb.WriteString("\n")
	sb.WriteString(inputBoxStyle.Render(m.path.View()))
	sb.WriteString("\n")

	button := buttonStyle
	if m.focus == adminSubmit {
		button = button.BorderForeground(lipgloss.Color("12")).Bold(true)
	}
	sb.WriteString(button.Render("Upload"))
	sb.WriteString("\n\n")

	status := statusStyle.Render(m.status)
	if m.failed {
		status = errorStyle.Render(m.status)
	}
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	sb.WriteString(status)
	if m.summary != "" {
		sb.WriteString("\n\n")
		sb.WriteString(dimStyle.Render("Summary: " + m.summary))
	}
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("tab/↑↓ move • ←/→ choose • enter submit • esc quit"))
	return sb.String()
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"syllabus-rag/internal/domain"
	"syllabus-rag/internal/registry"
	"syllabus-rag/internal/service"
)

// Asker answers a question from the index of one target.
type Asker interface {
	Ask(ctx context.Context, target domain.Target, question string) (*service.Answer, error)
}

// RegistryFetcher loads the current registry.
type RegistryFetcher interface {
	Fetch(ctx context.Context) (*registry.Registry, error)
}

type registryLoadedMsg struct {
	reg *registry.Registry
	err error
}

type answerMsg struct {
	question string
	answer   *service.Answer
	err      error
}

const (
	chatBranch = iota
	chatYear
	chatQuestion
	chatFields
)

// ChatModel is the question screen. Branches come from the registry and the
// year choices follow the selected branch.
type ChatModel struct {
	ctx      context.Context
	asker    Asker
	registry RegistryFetcher

	reg      *registry.Registry
	branch   selector
	year     selector
	question textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	focus    int

	ready    bool
	busy     bool
	status   string
	failed   bool
	answer   *service.Answer
	asked    string
	answered domain.Target
}

func NewChat(ctx context.Context, asker Asker, fetcher RegistryFetcher) ChatModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the syllabus"
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := ChatModel{
		ctx:      ctx,
		asker:    asker,
		registry: fetcher,
		reg:      registry.New(),
		branch:   newSelector("Branch", nil),
		year:     newSelector("Year", nil),
		question: ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Loading available syllabi...",
	}
	m.setFocus(chatQuestion)
	return m
}

func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadRegistry())
}

func (m ChatModel) loadRegistry() tea.Cmd {
	ctx, fetcher := m.ctx, m.registry
	return func() tea.Msg {
		reg, err := fetcher.Fetch(ctx)
		return registryLoadedMsg{reg: reg, err: err}
	}
}

func (m *ChatModel) setFocus(f int) tea.Cmd {
	m.focus = (f + chatFields) % chatFields
	m.branch.focused = m.focus == chatBranch
	m.year.focused = m.focus == chatYear
	if m.focus == chatQuestion {
		return m.question.Focus()
	}
	m.question.Blur()
	return nil
}

func (m *ChatModel) syncYears() {
	m.year.setOptions(m.reg.Years(m.branch.value()))
}

// canSubmit reports whether a question can be sent for the current selection.
func (m ChatModel) canSubmit() bool {
	return !m.busy && !m.branch.empty() && !m.year.empty() && strings.TrimSpace(m.question.Value()) != ""
}

func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 4 + 1 + qh + 1 + 2 // header, selectors, input, status, help
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case registryLoadedMsg:
		if msg.err != nil {
			m.failed = true
			m.status = "Could not load the syllabus list: " + msg.err.Error()
			return m, nil
		}
		m.reg = msg.reg
		m.branch.setOptions(m.reg.Branches())
		m.syncYears()
		m.failed = false
		if m.branch.empty() {
			m.status = "No syllabus has been uploaded yet."
		} else {
			m.status = fmt.Sprintf("%d syllabi available.", m.reg.Len())
		}
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.failed = true
			m.answer = nil
			if errors.Is(msg.err, service.ErrArtifactNotFound) {
				m.status = "No index found for this branch and year."
			} else {
				m.status = "Something went wrong: " + msg.err.Error()
			}
		} else {
			m.failed = false
			m.answer = msg.answer
			m.asked = msg.question
			m.status = "Answered."
		}
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoTop()
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
		case "ctrl+r":
			m.status = "Reloading available syllabi..."
			return m, m.loadRegistry()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "left", "right":
			if m.focus == chatBranch || m.focus == chatYear {
				s := &m.branch
				if m.focus == chatYear {
					s = &m.year
				}
				if msg.String() == "left" {
					s.prev()
				} else {
					s.next()
				}
				if m.focus == chatBranch {
					m.syncYears()
				}
				return m, nil
			}
		case "enter":
			if m.focus != chatQuestion {
				return m, m.setFocus(m.focus + 1)
			}
			return m.submit()
		}
	}
	if m.focus != chatQuestion {
		return m, nil
	}
	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	return m, cmd
}

func (m ChatModel) submit() (tea.Model, tea.Cmd) {
	if m.year.empty() {
		m.failed = true
		m.status = "No syllabus has been uploaded for this branch."
		return m, nil
	}
	if !m.canSubmit() {
		return m, nil
	}
	target := domain.Target{Branch: m.branch.value(), Year: m.year.value()}
	question := strings.TrimSpace(m.question.Value())
	m.busy, m.failed = true, false
	m.answered = target
	m.status = fmt.Sprintf("Searching the %s syllabus...", target)

	ctx, asker := m.ctx, m.asker
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ans, err := asker.Ask(ctx, target, question)
		return answerMsg{question: question, answer: ans, err: err}
	})
}

func (m ChatModel) renderAnswer() string {
	if m.answer == nil {
		return "No answer yet."
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Reply"))
	sb.WriteString("\n")
	sb.WriteString(m.answer.Text)
	if len(m.answer.Sources) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(titleStyle.Render("Sources"))
		for i, r := range m.answer.Sources {
			fmt.Fprintf(&sb, "\n\n%s\n", dimStyle.Render(fmt.Sprintf("[%d] chunk %d  score=%.3f", i+1, r.Chunk.Index, r.Score)))
			sb.WriteString(highlightBestSentence(truncate(r.Chunk.Text, 600), m.asked))
		}
	}
	return sb.String()
}

func (m ChatModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Syllabus Chat"))
	sb.WriteString("\n")
	if m.answer != nil && m.answer.Summary != "" {
		sb.WriteString(dimStyle.Render(m.answered.String() + ": " + truncate(m.answer.Summary, 200)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.branch.view())
	sb.WriteString("\n")
	sb.WriteString(m.year.view())
	sb.WriteString("\n")
	sb.WriteString(inputBoxStyle.Render(m.question.View()))
	sb.WriteString("\n")
	if m.ready {
		sb.WriteString(resultBoxStyle.Render(m.viewport.View()))
	} else {
		sb.WriteString(resultBoxStyle.Render(m.renderAnswer()))
	}
	sb.WriteString("\n")

	status := statusStyle.Render(m.status)
	if m.failed {
		status = errorStyle.Render(m.status)
	}
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("tab/↑↓ move • ←/→ choose • enter ask • ctrl+r reload • esc quit"))
	return sb.String()
}

package main

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"runcoach/internal/chat"
	"runcoach/internal/domain"
	"runcoach/internal/presenter"
)

var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	userLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	coachLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	dayStyle        = lipgloss.NewStyle().Bold(true).Width(10)
	failedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	noticeStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#B91C1C"))
)

type (
	readyMsg        struct{}
	storeChangedMsg struct{}
	slotsChangedMsg struct{}
	clearInputMsg   struct{}
	redirectMsg     struct{}
	noticeMsg       chat.Notice
	sendDoneMsg     struct{ err error }
)

// programBridge deja que los colaboradores de la sesion hablen con el programa desde otras goroutines.
type programBridge struct {
	mu      sync.Mutex
	program *tea.Program
}

func (b *programBridge) set(p *tea.Program) {
	b.mu.Lock()
	b.program = p
	b.mu.Unlock()
}

func (b *programBridge) send(msg tea.Msg) {
	b.mu.Lock()
	p := b.program
	b.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

type chatModel struct {
	ctx       context.Context
	session   *chat.Session
	scheduler *presenter.Scheduler

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	mounted bool
	ready   bool
	expired bool
	notice  *chat.Notice
	width   int
	height  int
}

func newChatModel(ctx context.Context, session *chat.Session, scheduler *presenter.Scheduler) chatModel {
	ta := textarea.New()
	ta.Placeholder = "Ask your coach about your training..."
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.CharLimit = 2000
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = coachLabelStyle

	return chatModel{
		ctx:       ctx,
		session:   session,
		scheduler: scheduler,
		textarea:  ta,
		spinner:   sp,
	}
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitClosed(m.session.Ready(), readyMsg{}),
		waitClosed(m.session.Store().Changed(), storeChangedMsg{}),
		waitClosed(m.scheduler.Updates(), slotsChangedMsg{}),
	)
}

func waitClosed(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return msg
	}
}

func (m chatModel) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: m.session.Send(m.ctx, content)}
	}
}

func (m chatModel) resendCmd(id domain.MessageID) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: m.session.Resend(m.ctx, id)}
	}
}

func (m chatModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		_ = m.session.Refresh(m.ctx)
		return nil
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			content := m.textarea.Value()
			m.notice = nil
			return m, m.sendCmd(content)
		case tea.KeyCtrlR:
			if failed := m.session.Pipeline().FailedIDs(); len(failed) > 0 {
				m.notice = nil
				return m, m.resendCmd(failed[len(failed)-1])
			}
			return m, nil
		}

	case tea.FocusMsg:
		m.scheduler.SetFocused(true)
		return m, m.refreshCmd()

	case tea.BlurMsg:
		m.scheduler.SetFocused(false)
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		inputHeight := m.textarea.Height() + 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight-1)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight - 1
		}
		m.textarea.SetWidth(msg.Width)
		m.renderer, _ = glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(max(msg.Width-4, 20)))
		m.refreshViewport()

	case readyMsg:
		// montaje: lo que ya estaba en el historial no simula escritura
		m.scheduler.Sync(m.session.Store().Snapshot().Messages)
		m.mounted = true
		m.refreshViewport()
		return m, nil

	case storeChangedMsg:
		ch := m.session.Store().Changed()
		if m.mounted {
			m.scheduler.Sync(m.session.Store().Snapshot().Messages)
		}
		m.refreshViewport()
		return m, waitClosed(ch, storeChangedMsg{})

	case slotsChangedMsg:
		m.refreshViewport()
		return m, waitClosed(m.scheduler.Updates(), slotsChangedMsg{})

	case clearInputMsg:
		m.textarea.Reset()
		return m, nil

	case noticeMsg:
		n := chat.Notice(msg)
		m.notice = &n
		return m, nil

	case redirectMsg:
		m.expired = true
		return m, tea.Quit

	case sendDoneMsg:
		if errors.Is(msg.err, chat.ErrSendInFlight) || errors.Is(msg.err, chat.ErrEmptyMessage) {
			return m, nil
		}
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.hasTyping() || m.session.Pipeline().InFlight() {
			m.refreshViewport()
		}
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m chatModel) hasTyping() bool {
	for _, v := range m.scheduler.Views() {
		if v.Typing {
			return true
		}
	}
	return false
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTimeline())
	m.viewport.GotoBottom()
}

func (m chatModel) renderTimeline() string {
	if !m.session.Loaded() {
		return mutedStyle.Render("Loading conversation...")
	}
	if m.session.ShowPlaceholder() {
		return coachLabelStyle.Render("Coach") + "\n" + m.render(chat.PlaceholderWelcome)
	}

	failed := make(map[domain.MessageID]bool)
	for _, id := range m.session.Pipeline().FailedIDs() {
		failed[id] = true
	}

	var b strings.Builder
	for i, msg := range m.session.Store().Snapshot().Messages {
		if msg.IsUserMessage {
			b.WriteString(userLabelStyle.Render("You") + " " + msg.DisplayContent())
			if failed[msg.ID] {
				b.WriteString(" " + failedStyle.Render("not sent, ctrl+r to resend"))
			} else if msg.ID.IsPending() {
				b.WriteString(" " + mutedStyle.Render("sending..."))
			}
			b.WriteString("\n\n")
			continue
		}
		b.WriteString(coachLabelStyle.Render("Coach") + "\n")
		view, ok := m.scheduler.View(i)
		switch {
		case ok && view.Typing:
			b.WriteString(m.spinner.View() + mutedStyle.Render(" Coach is typing...") + "\n\n")
		case ok:
			b.WriteString(m.render(view.Content))
		default:
			b.WriteString(m.render(msg.DisplayContent()))
		}
	}
	return b.String()
}

func (m chatModel) render(content string) string {
	if m.renderer == nil {
		return content + "\n\n"
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content + "\n\n"
	}
	return out
}

func (m chatModel) View() string {
	if !m.ready {
		return "Starting chat..."
	}
	status := mutedStyle.Render("enter: send  ctrl+r: resend  esc: quit")
	if m.session.Pipeline().InFlight() {
		status = m.spinner.View() + mutedStyle.Render(" sending...")
	}
	if m.notice != nil {
		status = noticeStyle.Render(m.notice.Title) + " " + m.notice.Description
	}
	return m.viewport.View() + "\n" + status + "\n" + m.textarea.View()
}

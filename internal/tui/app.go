package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkweon/searchlayer/internal/client"
	"github.com/mkweon/searchlayer/internal/jobs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// App is the main TUI application.
type App struct {
	client *client.Client
	config *client.Config
	files  []string
}

// New creates a new TUI application.
func New(c *client.Client, cfg *client.Config, files ...string) *App {
	return &App{
		client: c,
		config: cfg,
		files:  files,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := jobs.NewQueue()
	sub := client.NewSubmitter(a.client, queue, client.DefaultSchedule(), a.config.Limits)

	model := newQueueModel(a.config, queue, sub)
	p := tea.NewProgram(model, tea.WithAltScreen())

	sub.SetNotify(func(job *jobs.Job) {
		p.Send(jobUpdateMsg{id: job.ID})
	})

	for _, path := range a.files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := sub.Enqueue(filepath.Base(path), data); err != nil {
			return fmt.Errorf("queue %s: %w", path, err)
		}
	}

	go sub.Run(ctx)

	_, err := p.Run()
	return err
}

type jobUpdateMsg struct {
	id string
}

// queueModel renders the submission queue and handles retry/remove.
type queueModel struct {
	config *client.Config
	queue  *jobs.Queue
	sub    *client.Submitter

	cursor int
	saved  map[string]bool
	err    error
	width  int
	height int
}

func newQueueModel(cfg *client.Config, queue *jobs.Queue, sub *client.Submitter) queueModel {
	return queueModel{
		config: cfg,
		queue:  queue,
		sub:    sub,
		saved:  make(map[string]bool),
	}
}

func (m queueModel) Init() tea.Cmd {
	return nil
}

func (m queueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case jobUpdateMsg:
		m.err = nil
		if job, ok := m.queue.Get(msg.id); ok {
			m.saveIfCompleted(job)
		}

	case tea.KeyMsg:
		list := m.queue.List()

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < len(list)-1 {
				m.cursor++
			}

		case "r":
			if m.cursor < len(list) {
				if err := m.sub.Retry(list[m.cursor].ID); err != nil {
					m.err = err
				}
			}

		case "d":
			if m.cursor < len(list) {
				if err := m.queue.Remove(list[m.cursor].ID); err != nil {
					m.err = err
				} else if m.cursor > 0 {
					m.cursor--
				}
			}
		}
	}

	return m, nil
}

// saveIfCompleted writes a finished result to the output directory
// exactly once.
func (m queueModel) saveIfCompleted(job *jobs.Job) {
	if job.CurrentStatus() != jobs.StatusCompleted || m.saved[job.ID] {
		return
	}
	dir := m.config.Output.Directory
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, job.Result.Filename)
	if err := os.WriteFile(path, job.Result.PDF, 0o644); err != nil {
		job.Fail(fmt.Sprintf("save result: %v", err))
		return
	}
	m.saved[job.ID] = true
}

func (m queueModel) View() string {
	s := titleStyle.Render("SearchLayer") + "\n\n"

	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
	}

	list := m.queue.List()
	if len(list) == 0 {
		s += pendingStyle.Render("Queue is empty.") + "\n"
	}

	for i, job := range list {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		s += fmt.Sprintf("%s%s\n", cursor, renderJob(job))
	}

	s += helpStyle.Render("\n↑/↓ Navigate  r Retry  d Remove  q Quit")

	return s
}

func renderJob(job *jobs.Job) string {
	name := job.OriginalName
	switch job.CurrentStatus() {
	case jobs.StatusPending:
		return fmt.Sprintf("%s  %s", name, pendingStyle.Render("queued"))
	case jobs.StatusProcessing:
		msg := job.StatusMessage
		if msg == "" {
			msg = "processing"
		}
		return fmt.Sprintf("%s  %s", name, activeStyle.Render(msg))
	case jobs.StatusCompleted:
		return fmt.Sprintf("%s  %s", name, successStyle.Render("done -> "+job.Result.Filename))
	case jobs.StatusError:
		return fmt.Sprintf("%s  %s", name, errorStyle.Render("failed: "+job.Error))
	}
	return name
}

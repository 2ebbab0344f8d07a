package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jabba197/ai-meeting-transcription/client"
	"github.com/jabba197/ai-meeting-transcription/models"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

type WatchCommand struct {
	File         string `arg:"" help:"The audio file to upload." type:"existingfile"`
	Prompt       string `help:"Extra instructions for the summary." default:""`
	ServerURL    string `help:"The URL of the transcription server." env:"SERVER_URL" default:"http://localhost:9020"`
	ServerAPIKey string `help:"The API key for the transcription server." env:"SERVER_API_KEY" default:""`
	LogLevel     string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c WatchCommand) Run(ctx context.Context) (err error) {
	tc := client.New(c.ServerURL, c.ServerAPIKey)

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	resp, err := tc.ProcessingPost(ctx, c.File, f, c.Prompt)
	if err != nil {
		return fmt.Errorf("failed to start processing: %w", err)
	}

	events := make(chan models.ProgressEvent)
	errors := make(chan error, 1)
	go func() {
		defer close(events)
		err := tc.StreamProgress(ctx, resp.TaskID, func(ctx context.Context, ev models.ProgressEvent) error {
			events <- ev
			return nil
		})
		if err != nil {
			errors <- err
		}
	}()

	p := tea.NewProgram(newWatchModel(ctx, c.File, resp.TaskID, events, errors))
	final, err := p.Run()
	if err != nil {
		return err
	}

	m, ok := final.(watchModel)
	if !ok {
		return nil
	}
	if m.err != nil {
		return m.err
	}
	if m.last.Stage == models.StageFailed {
		return fmt.Errorf("processing failed: %s", m.last.Error)
	}
	if m.last.Summary != "" {
		fmt.Println(summaryStyle.Render(wordwrap.String(m.last.Summary, 80)))
	}
	return nil
}

// Dracula color scheme.
var (
	CurrentLine = lipgloss.Color("#44475a")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var (
	titleStyle   = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Padding(0, 1)
	stageStyle   = lipgloss.NewStyle().Foreground(Cyan)
	doneStyle    = lipgloss.NewStyle().Foreground(Green)
	failStyle    = lipgloss.NewStyle().Foreground(Red)
	faintStyle   = lipgloss.NewStyle().Foreground(Comment)
	summaryStyle = lipgloss.NewStyle().Margin(1).Padding(1).MaxWidth(90).Foreground(Cyan)
)

var stageLabels = map[string]string{
	models.StageQueued:            "Queued",
	models.StageTranscribing:      "Transcribing audio",
	models.StageRetrievingContext: "Retrieving notes",
	models.StageSummarizing:       "Summarizing",
	models.StageDone:              "Done",
	models.StageFailed:            "Failed",
}

type watchModel struct {
	ctx      context.Context
	filename string
	taskID   string

	spinner  spinner.Model
	progress progress.Model
	viewport viewport.Model

	events <-chan models.ProgressEvent
	errors <-chan error

	lines []string
	last  models.ProgressEvent
	err   error
}

func newWatchModel(ctx context.Context, filename, taskID string, events <-chan models.ProgressEvent, errors <-chan error) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Pink)

	vp := viewport.New(80, 12)

	return watchModel{
		ctx:      ctx,
		filename: filename,
		taskID:   taskID,
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient()),
		viewport: vp,
		events:   events,
		errors:   errors,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.subscribeToEvents(),
		m.subscribeToErrors(),
	)
}

// streamClosed signals that the server ended the event stream.
type streamClosed struct{}

func (m watchModel) subscribeToEvents() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return streamClosed{}
			}
			return ev
		case <-m.ctx.Done():
			return streamClosed{}
		}
	}
}

func (m watchModel) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case err := <-m.errors:
			return err
		case <-m.ctx.Done():
			return nil
		}
	}
}

func formatStage(ev models.ProgressEvent) string {
	label, ok := stageLabels[ev.Stage]
	if !ok {
		label = ev.Stage
	}
	switch ev.Stage {
	case models.StageDone:
		return doneStyle.Render("✔ " + label)
	case models.StageFailed:
		return failStyle.Render("✘ " + label + ": " + ev.Error)
	}
	return stageStyle.Render(label)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, tea.Quit
	case streamClosed:
		return m, tea.Quit
	case models.ProgressEvent:
		m.last = msg
		m.lines = append(m.lines, formatStage(msg))
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		m.viewport.GotoBottom()
		if msg.Stage == models.StageDone || msg.Stage == models.StageFailed {
			return m, tea.Quit
		}
		return m, m.subscribeToEvents()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 5
		m.progress.Width = msg.Width - 4
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m watchModel) View() string {
	header := titleStyle.Render(m.filename) + " " + faintStyle.Render(m.taskID)
	bar := m.progress.ViewAs(float64(m.last.Progress) / 100)
	status := m.spinner.View() + " " + formatStage(m.last)
	if m.last.Stage == models.StageDone || m.last.Stage == models.StageFailed {
		status = formatStage(m.last)
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s\n", header, bar, status, m.viewport.View())
}

package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/todox/internal/guard"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// TodoBoard is the part of the todo workflows the browser drives.
type TodoBoard interface {
	Refresh(ctx context.Context) ([]models.Todo, error)
	All() (string, []models.Todo, error)
	Toggle(ctx context.Context, id int64) (models.Todo, error)
	Delete(ctx context.Context, id int64) error
	Busy(id int64) bool
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	board   TodoBoard
	feed    *Feed
	width   int
	height  int
	ready   bool
	list    list.Model
	owner   string
	pending int
	notice  *Notice
	err     error
	help    help.Model
	keys    keyMap
}

type todosLoadedMsg struct {
	owner string
	todos []models.Todo
	err   error
}

type mutationDoneMsg struct {
	err error
}

type noticeMsg Notice

// NewModel creates a new TUI model. feed may be nil when notifications are not routed to the browser.
func NewModel(ctx context.Context, board TodoBoard, feed *Feed) *Model {
	return &Model{
		ctx:   ctx,
		board: board,
		feed:  feed,
		list:  list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:  help.New(),
		keys:  newKeyMap(),
	}
}

// Init fetches the server list and starts listening for notifications.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(true), m.waitForNotice())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case todosLoadedMsg:
		m.ready = true
		m.err = msg.err
		if msg.owner != "" {
			m.owner = msg.owner
			m.list.Title = fmt.Sprintf("Todos for %s", msg.owner)
		}
		if msg.todos != nil || msg.err == nil {
			return m, m.list.SetItems(todoItems(msg.todos))
		}
		return m, nil

	case mutationDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if msg.err != nil && !errors.Is(msg.err, guard.ErrRejected) {
			m.err = msg.err
		}
		return m, m.load(false)

	case noticeMsg:
		n := Notice(msg)
		m.notice = &n
		return m, m.waitForNotice()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list with a status line and help.
func (m *Model) View() string {
	if !m.ready {
		return styles.title.Render("Loading todos...")
	}

	status := m.status()
	helpView := m.help.ShortHelpView(m.keys.ShortHelp())
	if status == "" {
		return fmt.Sprintf("%s\n\n%s", m.list.View(), helpView)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.list.View(), status, helpView)
}

func (m *Model) status() string {
	switch {
	case m.pending > 0:
		return styles.Hint(fmt.Sprintf("Saving (%d pending)...", m.pending))
	case m.notice != nil:
		return styles.Notice(m.notice.Kind, m.notice.Message)
	case m.err != nil:
		return styles.Notice(shared.NoticeError, m.err.Error())
	default:
		return ""
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.notice = nil
		return m, m.load(true)
	case key.Matches(msg, m.keys.toggle):
		if todo, ok := m.selected(); ok {
			return m, m.mutate(todo.ID, func(ctx context.Context) error {
				_, err := m.board.Toggle(ctx, todo.ID)
				return err
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if todo, ok := m.selected(); ok {
			return m, m.mutate(todo.ID, func(ctx context.Context) error {
				return m.board.Delete(ctx, todo.ID)
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) selected() (models.Todo, bool) {
	item, ok := m.list.SelectedItem().(todoItem)
	if !ok {
		return models.Todo{}, false
	}
	return item.todo, true
}

// mutate runs op in the background. A todo that already has a mutation in flight is skipped.
func (m *Model) mutate(id int64, op func(context.Context) error) tea.Cmd {
	if m.board.Busy(id) {
		return nil
	}
	m.pending++
	m.notice = nil
	return func() tea.Msg {
		return mutationDoneMsg{err: op(m.ctx)}
	}
}

// load reads the cached list, asking the server first when refresh is set.
//
// A failed refresh still shows whatever the cache holds.
func (m *Model) load(refresh bool) tea.Cmd {
	return func() tea.Msg {
		var refreshErr error
		if refresh {
			_, refreshErr = m.board.Refresh(m.ctx)
		}
		owner, todos, err := m.board.All()
		if err != nil {
			return todosLoadedMsg{err: err}
		}
		return todosLoadedMsg{owner: owner, todos: todos, err: refreshErr}
	}
}

func (m *Model) waitForNotice() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case n := <-m.feed.C():
			return noticeMsg(n)
		case <-m.ctx.Done():
			return nil
		}
	}
}

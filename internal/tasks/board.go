// package tasks implements the todo workflows on top of the session, API client and local cache.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/guard"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/shared"
)

var (
	// ErrTitleRequired is returned before any request when a draft has a blank title.
	ErrTitleRequired = errors.New("title is required")
	// ErrStaleSession is returned when the session changed while a call was in flight; its result was dropped.
	ErrStaleSession = errors.New("session changed while request was in flight")
)

// Success notices
const (
	MsgAdded     = "todo added"
	MsgUpdated   = "todo updated"
	MsgCompleted = "todo completed"
	MsgPending   = "todo marked pending"
	MsgDeleted   = "todo deleted"
)

const createKey = "create"

// TodoClient is the remote side of the board.
type TodoClient interface {
	List(ctx context.Context) ([]models.Todo, error)
	Create(ctx context.Context, draft models.TodoDraft) (models.Todo, error)
	Update(ctx context.Context, id int64, draft models.TodoDraft) (models.Todo, error)
	SetCompleted(ctx context.Context, id int64, completed bool) (models.Todo, error)
	Delete(ctx context.Context, id int64) error
}

// SessionView is the part of the session the board reads.
type SessionView interface {
	Generation() uint64
	Identity() (models.Identity, bool)
}

// Cache holds server-confirmed todos per owner.
type Cache interface {
	ReplaceAll(owner string, todos []models.Todo) error
	Upsert(owner string, todo models.Todo) error
	Get(owner string, id int64) (models.Todo, error)
	Delete(owner string, id int64) error
	List(owner string, filter repositories.TodoFilter) ([]models.Todo, error)
	Count(owner string, filter repositories.TodoFilter) (int, error)
}

// BoardOpts contains the dependencies of a [Board]. API, Session and Cache are required.
type BoardOpts struct {
	API        TodoClient
	Session    SessionView
	Cache      Cache
	Guard      *guard.Guard
	Dispatcher *apierr.Dispatcher
	Notifier   shared.Notifier
	Logger     *log.Logger
}

// Board runs todo mutations through the mutation guard and reports failures through the dispatcher.
//
// The cache only ever receives copies the server confirmed. A failed call leaves it untouched.
type Board struct {
	api        TodoClient
	session    SessionView
	cache      Cache
	guard      *guard.Guard
	dispatcher *apierr.Dispatcher
	notifier   shared.Notifier
	logger     *log.Logger
}

// NewBoard creates a [Board].
func NewBoard(opts BoardOpts) *Board {
	if opts.Guard == nil {
		opts.Guard = guard.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = shared.NopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = apierr.NewDispatcher(opts.Notifier, nil, opts.Logger)
	}

	return &Board{
		api:        opts.API,
		session:    opts.Session,
		cache:      opts.Cache,
		guard:      opts.Guard,
		dispatcher: opts.Dispatcher,
		notifier:   opts.Notifier,
		logger:     shared.WithLogger(opts.Logger, "component", "board"),
	}
}

// call captures who issued a request so its result can be checked on return.
type call struct {
	owner      string
	generation uint64
}

func (b *Board) begin() (call, error) {
	identity, ok := b.session.Identity()
	if !ok {
		return call{}, shared.ErrNotAuthenticated
	}
	return call{owner: identity.SubjectID, generation: b.session.Generation()}, nil
}

func (b *Board) stale(c call) bool {
	if b.session.Generation() != c.generation {
		b.logger.Debug("dropping result from previous session", "owner", c.owner)
		return true
	}
	return false
}

// fail reports err through the dispatcher and returns it.
//
// Failures of calls issued under a previous session are returned as [ErrStaleSession] without being reported.
func (b *Board) fail(c call, err error, fields apierr.FieldSink) error {
	if b.stale(c) {
		return fmt.Errorf("%w: %w", ErrStaleSession, err)
	}
	return b.dispatcher.Handle(err, fields)
}

// Refresh replaces the cached list with the server's.
func (b *Board) Refresh(ctx context.Context) ([]models.Todo, error) {
	c, err := b.begin()
	if err != nil {
		return nil, err
	}

	todos, err := b.api.List(ctx)
	if err != nil {
		return nil, b.fail(c, err, nil)
	}
	if b.stale(c) {
		return nil, ErrStaleSession
	}

	if err := b.cache.ReplaceAll(c.owner, todos); err != nil {
		return nil, fmt.Errorf("failed to cache todos: %w", err)
	}
	b.logger.Debug("refreshed todos", "owner", c.owner, "count", len(todos))
	return todos, nil
}

// Create adds a todo.
//
// Only one create runs at a time. fields receives server-side validation errors; pass nil to have them
// reported as a notification.
func (b *Board) Create(ctx context.Context, draft models.TodoDraft, fields apierr.FieldSink) (models.Todo, error) {
	if err := b.checkDraft(draft, fields); err != nil {
		return models.Todo{}, err
	}
	c, err := b.begin()
	if err != nil {
		return models.Todo{}, err
	}

	todo, err := guard.Run(ctx, b.guard, createKey, func(ctx context.Context) (models.Todo, error) {
		return b.api.Create(ctx, draft)
	})
	if err != nil {
		return models.Todo{}, b.fail(c, err, fields)
	}
	if b.stale(c) {
		return models.Todo{}, ErrStaleSession
	}

	if err := b.cache.Upsert(c.owner, todo); err != nil {
		b.logger.Warn("failed to cache created todo", "id", todo.ID, "err", err)
	}
	b.notifier.Notify(shared.NoticeSuccess, MsgAdded)
	return todo, nil
}

// Edit replaces the fields of an existing todo.
func (b *Board) Edit(ctx context.Context, id int64, draft models.TodoDraft, fields apierr.FieldSink) (models.Todo, error) {
	if err := b.checkDraft(draft, fields); err != nil {
		return models.Todo{}, err
	}
	c, err := b.begin()
	if err != nil {
		return models.Todo{}, err
	}

	confirmed, err := guard.Run(ctx, b.guard, key(id), func(ctx context.Context) (models.Todo, error) {
		return b.api.Update(ctx, id, draft)
	})
	if err != nil {
		return models.Todo{}, b.fail(c, err, fields)
	}
	if b.stale(c) {
		return models.Todo{}, ErrStaleSession
	}

	todo := b.merge(c.owner, id, confirmed)
	b.notifier.Notify(shared.NoticeSuccess, MsgUpdated)
	return todo, nil
}

// Toggle flips a cached todo's completion flag on the server and stores whatever the server returns.
func (b *Board) Toggle(ctx context.Context, id int64) (models.Todo, error) {
	c, err := b.begin()
	if err != nil {
		return models.Todo{}, err
	}

	cached, err := b.cache.Get(c.owner, id)
	if err != nil {
		return models.Todo{}, b.fail(c, err, nil)
	}

	confirmed, err := guard.Run(ctx, b.guard, key(id), func(ctx context.Context) (models.Todo, error) {
		return b.api.SetCompleted(ctx, id, !cached.Completed)
	})
	if err != nil {
		return models.Todo{}, b.fail(c, err, nil)
	}
	if b.stale(c) {
		return models.Todo{}, ErrStaleSession
	}

	todo := b.merge(c.owner, id, confirmed)
	if todo.Completed {
		b.notifier.Notify(shared.NoticeSuccess, MsgCompleted)
	} else {
		b.notifier.Notify(shared.NoticeSuccess, MsgPending)
	}
	return todo, nil
}

// Delete removes a todo.
func (b *Board) Delete(ctx context.Context, id int64) error {
	c, err := b.begin()
	if err != nil {
		return err
	}

	err = b.guard.Do(ctx, key(id), func(ctx context.Context) error {
		return b.api.Delete(ctx, id)
	})
	if err != nil {
		return b.fail(c, err, nil)
	}
	if b.stale(c) {
		return ErrStaleSession
	}

	if err := b.cache.Delete(c.owner, id); err != nil {
		b.logger.Warn("failed to drop deleted todo from cache", "id", id, "err", err)
	}
	b.notifier.Notify(shared.NoticeSuccess, MsgDeleted)
	return nil
}

// Busy reports whether a mutation on id is in flight.
func (b *Board) Busy(id int64) bool {
	return b.guard.InFlight(key(id))
}

// merge folds a server-confirmed copy into the cached one, authoritative fields winning.
func (b *Board) merge(owner string, id int64, confirmed models.Todo) models.Todo {
	todo, err := b.cache.Get(owner, id)
	if err != nil {
		todo = models.Todo{}
	}
	if confirmed.ID == 0 {
		confirmed.ID = id
	}
	todo.Merge(confirmed)

	if err := b.cache.Upsert(owner, todo); err != nil {
		b.logger.Warn("failed to cache confirmed todo", "id", id, "err", err)
	}
	return todo
}

func (b *Board) checkDraft(draft models.TodoDraft, fields apierr.FieldSink) error {
	if err := draft.Validate(); err == nil {
		return nil
	}
	if fields != nil {
		fields.ApplyFieldErrors(map[string]string{"title": "Title is required"})
	} else {
		b.notifier.Notify(shared.NoticeError, "Title is required")
	}
	return ErrTitleRequired
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

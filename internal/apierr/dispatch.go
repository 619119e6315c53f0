package apierr

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/guard"
	"github.com/desertthunder/todox/internal/shared"
)

// Expirer degrades the current session after the server stops honoring its credential.
type Expirer interface {
	Expire()
}

// FieldSink receives per-field validation messages, keyed by field name.
type FieldSink interface {
	ApplyFieldErrors(fields map[string]string)
}

// FieldSinkFunc adapts a function to [FieldSink].
type FieldSinkFunc func(fields map[string]string)

func (f FieldSinkFunc) ApplyFieldErrors(fields map[string]string) { f(fields) }

// Dispatcher carries out the action attached to an [ErrorEvent].
type Dispatcher struct {
	notifier shared.Notifier
	expirer  Expirer
	logger   *log.Logger
}

// NewDispatcher creates a [Dispatcher]. expirer may be nil when there is no session to degrade.
func NewDispatcher(notifier shared.Notifier, expirer Expirer, logger *log.Logger) *Dispatcher {
	if notifier == nil {
		notifier = shared.NopNotifier{}
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Dispatcher{notifier: notifier, expirer: expirer, logger: logger}
}

// Dispatch executes ev's action. fields may be nil, in which case field errors are reported as a single notification.
func (d *Dispatcher) Dispatch(ev ErrorEvent, fields FieldSink) {
	d.logger.Debug("dispatching api error", "kind", ev.Kind, "action", ev.Action, "status", ev.Status, "path", ev.Path)

	switch ev.Action {
	case ApplyFieldErrors:
		if fields != nil {
			fields.ApplyFieldErrors(ev.FieldErrors)
			return
		}
		d.notifier.Notify(shared.NoticeError, ev.Message)
	case NotifyAndLogout:
		d.notifier.Notify(shared.NoticeError, ev.Message)
		if d.expirer != nil {
			d.expirer.Expire()
		}
	default:
		d.notifier.Notify(shared.NoticeError, ev.Message)
	}
}

// Handle dispatches any error a workflow produced.
//
// Classified failures go through [Dispatcher.Dispatch]. A rejected duplicate mutation is dropped without
// telling the user. Any other error becomes a single notification carrying its text.
// Handle returns err unchanged so callers can keep propagating it.
func (d *Dispatcher) Handle(err error, fields FieldSink) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, guard.ErrRejected) {
		d.logger.Debug("ignoring rejected duplicate mutation", "err", err)
		return err
	}
	if ev, ok := AsEvent(err); ok {
		d.Dispatch(ev, fields)
		return err
	}
	d.notifier.Notify(shared.NoticeError, err.Error())
	return err
}

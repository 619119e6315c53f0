package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/session"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/urfave/cli/v3"
)

// errReported marks a failure the user has already been notified about.
var errReported = errors.New("reported")

func reported(err error) error {
	return fmt.Errorf("%w: %w", errReported, err)
}

// fieldPrinter reports server-side validation errors one field per line.
func (r *Runner) fieldPrinter() apierr.FieldSink {
	return apierr.FieldSinkFunc(func(fields map[string]string) {
		for _, name := range slices.Sorted(maps.Keys(fields)) {
			r.notifier.Notify(shared.NoticeError, fmt.Sprintf("%s: %s", name, fields[name]))
		}
	})
}

func credentials(cmd *cli.Command) models.Credentials {
	return models.Credentials{Username: cmd.String("username"), Password: cmd.String("password")}
}

// AuthRegister creates an account. It does not log in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	reg, err := r.todos.Register(ctx, credentials(cmd))
	if err != nil {
		return reported(r.dispatcher.Handle(err, r.fieldPrinter()))
	}

	r.logger.Debug("registered", "id", reg.ID, "username", reg.Username)
	message := reg.Message
	if message == "" {
		message = fmt.Sprintf("Account %s created.", reg.Username)
	}
	r.notifier.Notify(shared.NoticeSuccess, message)
	return r.writePlain("Run `todox auth login -u %s` to sign in.\n", reg.Username)
}

// AuthLogin exchanges credentials for a token and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	err := r.session.Login(ctx, credentials(cmd))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrDecode):
		return reported(err)
	case errors.Is(err, session.ErrLoginInProgress), errors.Is(err, session.ErrInvalidTransition):
		return err
	default:
		return reported(r.dispatcher.Handle(err, r.fieldPrinter()))
	}
}

// AuthLogout clears the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	if r.session.Status() == session.Unauthenticated {
		r.session.Logout(false)
		return r.writePlain("Not logged in.\n")
	}
	r.session.Logout(true)
	return nil
}

// sessionStatus is the output of `auth status`.
type sessionStatus struct {
	Status     string         `json:"status"`
	Username   string         `json:"username,omitempty"`
	StoredAt   *time.Time     `json:"storedAt,omitempty"`
	CachedTodo int            `json:"cachedTodos"`
	Claims     map[string]any `json:"claims,omitempty"`
}

// AuthStatus reports the restored session. Startup validation has already run when this prints.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(ctx); err != nil {
		return err
	}

	out := sessionStatus{Status: r.session.Status().String()}
	if identity, ok := r.session.Identity(); ok {
		out.Username = identity.SubjectID
		out.Claims = identity.Claims

		count, err := r.cache.Count(identity.SubjectID, repositories.TodoFilter{})
		if err != nil {
			return fmt.Errorf("failed to count cached todos: %w", err)
		}
		out.CachedTodo = count
	}
	if at, ok, err := r.credentials.UpdatedAt(); err != nil {
		return fmt.Errorf("failed to read credential: %w", err)
	} else if ok {
		out.StoredAt = &at
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	r.writePlainHeader("Session")
	r.writePlain("Status: %s\n", out.Status)
	if out.Username == "" {
		return r.writePlain("Not logged in. Run `todox auth login` to sign in.\n")
	}
	r.writePlain("User: %s\n", out.Username)
	if out.StoredAt != nil {
		r.writePlain("Token stored: %s\n", out.StoredAt.Local().Format(time.RFC1123))
	}
	return r.writePlain("Cached todos: %d\n", out.CachedTodo)
}

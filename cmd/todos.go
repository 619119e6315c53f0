package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/guard"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/urfave/cli/v3"
)

const dateLayout = "2006-01-02"

func parseDay(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: --%s must be YYYY-MM-DD, got %q", shared.ErrInvalidFlag, name, value)
	}
	return t, nil
}

func parseID(cmd *cli.Command) (int64, error) {
	raw := cmd.StringArg("id")
	if raw == "" {
		return 0, fmt.Errorf("%w: todo id", shared.ErrMissingArgument)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: todo id must be a positive number, got %q", shared.ErrInvalidArgument, raw)
	}
	return id, nil
}

// mutationError turns a board failure into the command's error.
//
// The board has already reported classified failures. A rejected duplicate and a dropped stale result are
// explained here since nothing else tells the user.
func (r *Runner) mutationError(err error) error {
	switch {
	case errors.Is(err, guard.ErrRejected):
		return fmt.Errorf("another change to this todo is still running: %w", err)
	case errors.Is(err, tasks.ErrStaleSession):
		return fmt.Errorf("session changed before the server answered: %w", err)
	case errors.Is(err, shared.ErrNotAuthenticated):
		return err
	default:
		return reported(err)
	}
}

// TodoList prints a page of todos. By default the cache is refreshed from the server first.
//
// When the refresh fails for lack of a connection the cached copy is listed instead.
func (r *Runner) TodoList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	since, err := parseDay("since", cmd.String("since"))
	if err != nil {
		return err
	}
	until, err := parseDay("until", cmd.String("until"))
	if err != nil {
		return err
	}

	if cmd.Bool("refresh") {
		if _, err := r.board.Refresh(ctx); err != nil {
			if !apierr.IsKind(err, apierr.KindNetwork) {
				return r.mutationError(err)
			}
			r.logger.Warn("showing cached todos", "error", err)
		}
	}

	page, err := r.board.Items(tasks.Query{
		Since:   since,
		Until:   until,
		Page:    int(cmd.Int("page")),
		PerPage: int(cmd.Int("per-page")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	if page.Swapped {
		r.writePlain("Note: --since was after --until; the range was swapped.\n")
	}
	identity, _ := r.session.Identity()
	r.writePlainHeader(fmt.Sprintf("Todos for %s", identity.SubjectID))
	if len(page.Items) == 0 {
		return r.writePlain("No todos found.\n")
	}
	for _, todo := range page.Items {
		r.writePlain("%s\n", formatter.TodoLine(todo))
	}
	return r.writePlainln("Page %d of %d (%d todos)", page.Page, max(page.TotalPages, 1), page.Total)
}

// TodoAdd creates a todo.
func (r *Runner) TodoAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	draft := models.TodoDraft{Title: cmd.String("title"), Description: cmd.String("description")}
	todo, err := r.board.Create(ctx, draft, r.fieldPrinter())
	if err != nil {
		if errors.Is(err, tasks.ErrTitleRequired) {
			return reported(err)
		}
		return r.mutationError(err)
	}
	return r.writePlain("%s\n", formatter.TodoLine(todo))
}

// TodoEdit changes a todo. Flags left unset keep the cached value.
func (r *Runner) TodoEdit(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}
	if !cmd.IsSet("title") && !cmd.IsSet("description") {
		return fmt.Errorf("%w: nothing to change, pass --title or --description", shared.ErrMissingArgument)
	}

	identity, _ := r.session.Identity()
	cached, err := r.cache.Get(identity.SubjectID, id)
	if err != nil {
		return fmt.Errorf("%w: run `todox todo list` to refresh", err)
	}

	draft := models.DraftFrom(cached)
	if cmd.IsSet("title") {
		draft.Title = cmd.String("title")
	}
	if cmd.IsSet("description") {
		draft.Description = cmd.String("description")
	}

	todo, err := r.board.Edit(ctx, id, draft, r.fieldPrinter())
	if err != nil {
		if errors.Is(err, tasks.ErrTitleRequired) {
			return reported(err)
		}
		return r.mutationError(err)
	}
	return r.writePlain("%s\n", formatter.TodoLine(todo))
}

// TodoToggle flips a todo between completed and pending.
func (r *Runner) TodoToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	todo, err := r.board.Toggle(ctx, id)
	if err != nil {
		return r.mutationError(err)
	}
	return r.writePlain("%s\n", formatter.TodoLine(todo))
}

// TodoRemove deletes a todo.
func (r *Runner) TodoRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := parseID(cmd)
	if err != nil {
		return err
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	if err := r.board.Delete(ctx, id); err != nil {
		return r.mutationError(err)
	}
	return nil
}

// TodoExport writes the current user's todos to one file per format.
func (r *Runner) TodoExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	var formats []string
	for _, f := range cmd.StringSlice("format") {
		for _, part := range strings.Split(f, ",") {
			if part = strings.TrimSpace(part); part != "" {
				formats = append(formats, part)
			}
		}
	}

	prog := make(chan tasks.ProgressUpdate, len(formats)+2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range prog {
			r.logger.Info(update.Message, "phase", update.Phase, "step", update.Step, "total", update.Total)
		}
	}()

	result, err := r.board.Export(ctx, prog, tasks.ExportOpts{
		Formats:    formats,
		OutputDir:  cmd.String("dir"),
		NumWorkers: int(cmd.Int("workers")),
		Refresh:    cmd.Bool("refresh"),
	})
	close(prog)
	<-done
	if err != nil {
		if errors.Is(err, shared.ErrInvalidFlag) {
			return err
		}
		return r.mutationError(err)
	}

	r.writePlainHeader(fmt.Sprintf("Exported %d todos for %s", result.TodoCount, result.Owner))
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("✗ %s: %v\n", res.Format, res.Error)
			continue
		}
		r.writePlain("✓ %s: %s\n", res.Format, res.Path)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d formats failed", result.Failed, len(result.Results))
	}
	return nil
}

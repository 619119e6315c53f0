package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/repositories"
	"github.com/urfave/cli/v3"
)

// CacheStatus shows how many todos are cached for the current user and how fresh they are.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	identity, _ := r.session.Identity()
	owner := identity.SubjectID

	total, err := r.cache.Count(owner, repositories.TodoFilter{})
	if err != nil {
		return fmt.Errorf("failed to count cached todos: %w", err)
	}

	r.logger.Debugf("cache status for %s", owner)
	r.writePlainHeader(fmt.Sprintf("Cache for %s", owner))
	r.writePlain("Database: %s\n", r.config.Database.Path)
	r.writePlain("Todos: %d\n", total)

	if total > 0 {
		newest, err := r.cache.List(owner, repositories.TodoFilter{Limit: 1})
		if err != nil {
			return fmt.Errorf("failed to read cached todos: %w", err)
		}
		r.writePlain("Newest: %s\n", newest[0].CreatedAt.Local().Format(time.RFC1123))
	}
	return nil
}

// CacheClear drops the current user's cached todos. The server copy is untouched.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	identity, _ := r.session.Identity()
	if err := r.cache.Clear(identity.SubjectID); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Infof("cleared cached todos for %s", identity.SubjectID)
	return r.writePlain("✓ Cache cleared\n")
}

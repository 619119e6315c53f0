package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/shared"
)

func TestBoardExport(t *testing.T) {
	ctx := context.Background()

	t.Run("Writes Every Format", func(t *testing.T) {
		f := newFixture(t)
		dir := t.TempDir()
		prog := make(chan ProgressUpdate, 16)

		result, err := f.board.Export(ctx, prog, ExportOpts{Formats: formatter.Formats, OutputDir: dir, NumWorkers: 3, Refresh: true})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Owner != "alice" || result.TodoCount != 3 {
			t.Errorf("unexpected result %+v", result)
		}
		if result.Successful != len(formatter.Formats) || result.Failed != 0 {
			t.Errorf("expected all formats to succeed, got %d/%d", result.Successful, result.Failed)
		}
		for _, res := range result.Results {
			if _, err := os.Stat(res.Path); err != nil {
				t.Errorf("%s: expected file at %s", res.Format, res.Path)
			}
		}

		close(prog)
		var phases []Phase
		for u := range prog {
			phases = append(phases, u.Phase)
		}
		if len(phases) != 2+len(formatter.Formats) || phases[0] != FetchTodos {
			t.Errorf("unexpected progress phases %v", phases)
		}
	})

	t.Run("Defaults To JSON", func(t *testing.T) {
		f := newFixture(t)
		f.refresh(t)
		dir := t.TempDir()

		result, err := f.board.Export(ctx, nil, ExportOpts{OutputDir: dir})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(result.Results) != 1 || result.Results[0].Path != filepath.Join(dir, "alice_todos.json") {
			t.Errorf("unexpected results %+v", result.Results)
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.board.Export(ctx, nil, ExportOpts{Formats: []string{"pdf"}, OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("Write Failure Is Reported Per Format", func(t *testing.T) {
		f := newFixture(t)
		f.refresh(t)
		file := filepath.Join(t.TempDir(), "file")
		os.WriteFile(file, []byte("x"), 0644)

		result, err := f.board.Export(ctx, nil, ExportOpts{Formats: []string{formatter.FormatCSV}, OutputDir: filepath.Join(file, "sub")})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.Failed != 1 || result.Results[0].Error == nil {
			t.Errorf("expected one failure, got %+v", result)
		}
	})

	t.Run("Refresh Failure Aborts", func(t *testing.T) {
		f := newFixture(t)
		f.manager.Logout(false)

		_, err := f.board.Export(ctx, nil, ExportOpts{Refresh: true, OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

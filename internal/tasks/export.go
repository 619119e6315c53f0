package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/todox/internal/formatter"
	"github.com/desertthunder/todox/internal/shared"
)

// ExportOpts contains configuration for todo exports.
type ExportOpts struct {
	Formats    []string // any of [formatter.Formats]; defaults to json
	OutputDir  string   // defaults to todox_export_{epoch}
	NumWorkers int      // concurrent writers, default 2, at most len(Formats)
	Refresh    bool     // fetch from the server before exporting
}

// FormatResult is the outcome of writing one format.
type FormatResult struct {
	Format string
	Path   string
	Error  error
}

// ExportResult summarizes an export run.
type ExportResult struct {
	Owner      string
	TodoCount  int
	OutputDir  string
	Results    []FormatResult
	Successful int
	Failed     int
}

// Export writes the current user's cached todos once per requested format, using a small worker pool.
//
// Individual format failures are reported in the result and do not abort the others.
func (b *Board) Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if len(opts.Formats) == 0 {
		opts.Formats = []string{formatter.FormatJSON}
	}
	for _, format := range opts.Formats {
		if !formatter.Valid(format) {
			return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
		}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("todox_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > len(opts.Formats) {
		opts.NumWorkers = len(opts.Formats)
	}

	if opts.Refresh {
		sendProgress(prog, fetchingTodosUpdate())
		todos, err := b.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		sendProgress(prog, fetchedTodosUpdate(len(todos)))
	}

	owner, todos, err := b.All()
	if err != nil {
		return nil, err
	}

	export := &formatter.TodoExport{Owner: owner, ExportedAt: time.Now().UTC(), Todos: todos}
	result := &ExportResult{
		Owner:     owner,
		TodoCount: len(todos),
		OutputDir: opts.OutputDir,
		Results:   make([]FormatResult, 0, len(opts.Formats)),
	}

	jobs := make(chan string, len(opts.Formats))
	results := make(chan FormatResult, len(opts.Formats))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, export, opts.OutputDir, jobs, results)
	}

	for _, format := range opts.Formats {
		jobs <- format
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Error == nil {
			result.Successful++
			sendProgress(prog, exportCompletedUpdate(completed, len(opts.Formats), res.Format, res.Path))
		} else {
			result.Failed++
			sendProgress(prog, exportFailedUpdate(completed, len(opts.Formats), res.Format, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker writes formats from jobs until the channel closes or ctx is cancelled.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	export *formatter.TodoExport,
	dir string,
	jobs <-chan string,
	results chan<- FormatResult,
) {
	defer wg.Done()

	for format := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		path, err := formatter.WriteExport(export, format, dir)
		results <- FormatResult{Format: format, Path: path, Error: err}
	}
}

package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchTodos Phase = iota
	ExportTodos
)

func (p Phase) String() string {
	switch p {
	case FetchTodos:
		return "fetch_todos"
	case ExportTodos:
		return "export_todos"
	default:
		return ""
	}
}

// sendProgress delivers u without blocking; updates are dropped when nobody is reading.
func sendProgress(prog chan<- ProgressUpdate, u ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- u:
	default:
	}
}

func fetchingTodosUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: FetchTodos, Step: 0, Total: 1, Message: "Fetching todos..."}
}

func fetchedTodosUpdate(count int) ProgressUpdate {
	return ProgressUpdate{Phase: FetchTodos, Step: 1, Total: 1, Message: fmt.Sprintf("Fetched %d todos", count)}
}

func exportCompletedUpdate(step, total int, format, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTodos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, path),
		Data:    format,
	}
}

func exportFailedUpdate(step, total int, format string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportTodos,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, format, err),
		Data:    format,
	}
}

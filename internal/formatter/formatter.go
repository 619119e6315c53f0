// package formatter provides functions to export todo lists to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// Supported export formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported format in a stable order.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

const dateLayout = "2006-01-02 15:04"

// TodoExport is a snapshot of one owner's todos.
type TodoExport struct {
	Owner      string        `json:"owner"`
	ExportedAt time.Time     `json:"exported_at"`
	Todos      []models.Todo `json:"todos"`
}

// Completed counts the finished todos in the export.
func (e *TodoExport) Completed() int {
	n := 0
	for _, todo := range e.Todos {
		if todo.Completed {
			n++
		}
	}
	return n
}

// ExportToCSV converts a TodoExport to CSV format with columns: ID, Title, Description, Status, Created, Updated
func ExportToCSV(export *TodoExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Description", "Status", "Created", "Updated"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, todo := range export.Todos {
		record := []string{
			strconv.FormatInt(todo.ID, 10),
			todo.Title,
			todo.Description,
			todo.Status(),
			formatTime(todo.CreatedAt, time.RFC3339),
			formatTime(todo.UpdatedAt, time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a TodoExport to a Markdown task list
func ExportToMarkdown(export *TodoExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Todos for %s\n\n", export.Owner))
	buf.WriteString(fmt.Sprintf("**Total**: %d\n", len(export.Todos)))
	buf.WriteString(fmt.Sprintf("**Completed**: %d\n", export.Completed()))
	if !export.ExportedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Exported**: %s\n", export.ExportedAt.Format(dateLayout)))
	}
	buf.WriteString("\n## Items\n\n")

	for _, todo := range export.Todos {
		mark := " "
		if todo.Completed {
			mark = "x"
		}
		buf.WriteString(fmt.Sprintf("- [%s] %s", mark, todo.Title))
		if todo.Description != "" {
			buf.WriteString(fmt.Sprintf(": %s", todo.Description))
		}
		if !todo.CreatedAt.IsZero() {
			buf.WriteString(fmt.Sprintf(" _(%s)_", todo.CreatedAt.Format(dateLayout)))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a TodoExport to plain text format
func ExportToText(export *TodoExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Owner: %s\n", export.Owner))
	buf.WriteString(fmt.Sprintf("Todos: %d (%d done)\n\n", len(export.Todos), export.Completed()))

	for _, todo := range export.Todos {
		buf.WriteString(TodoLine(todo))
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts a TodoExport to indented JSON
func ExportToJSON(export *TodoExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// TodoLine renders a single todo as one line of plain text.
func TodoLine(todo models.Todo) string {
	mark := " "
	if todo.Completed {
		mark = "x"
	}
	line := fmt.Sprintf("[%s] #%d %s", mark, todo.ID, todo.Title)
	if todo.Description != "" {
		line += " - " + todo.Description
	}
	return line
}

// Valid reports whether format is one of [Formats].
func Valid(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Export renders export in the named format.
func Export(export *TodoExport, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatMarkdown:
		return "md"
	case FormatCSV, FormatText, FormatJSON:
		return format
	default:
		return "out"
	}
}

// WriteExport renders export in format and writes it to dir/{owner}_todos.{ext}, returning the path.
func WriteExport(export *TodoExport, format, dir string) (string, error) {
	data, err := Export(export, format)
	if err != nil {
		return "", err
	}

	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_todos.%s", export.Owner, Extension(format)))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

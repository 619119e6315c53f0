package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

// TodoFilter narrows a [TodoRepository.List] query.
//
// Since and Until bound created_at inclusively; zero values leave that side open. Limit of zero means no
// limit.
type TodoFilter struct {
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

// TodoRepository caches server-confirmed todos per owner.
type TodoRepository struct {
	db *sql.DB
}

// NewTodoRepository creates a new TodoRepository with the given database connection
func NewTodoRepository(db *sql.DB) *TodoRepository {
	return &TodoRepository{db: db}
}

const todoColumns = `id, owner, title, description, completed, created_at, updated_at`

// ReplaceAll swaps owner's cached todos for todos in one transaction.
func (r *TodoRepository) ReplaceAll(owner string, todos []models.Todo) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM todos WHERE owner = ?`, owner); err != nil {
			return fmt.Errorf("failed to clear todos: %w", err)
		}

		stmt, err := tx.Prepare(upsertTodo)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, todo := range todos {
			if _, err := stmt.Exec(todoArgs(owner, todo)...); err != nil {
				return fmt.Errorf("failed to insert todo %d: %w", todo.ID, err)
			}
		}
		return nil
	})
}

const upsertTodo = `
	INSERT INTO todos (` + todoColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(owner, id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		completed = excluded.completed,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
`

// Upsert stores one confirmed todo.
func (r *TodoRepository) Upsert(owner string, todo models.Todo) error {
	if todo.ID == 0 {
		return fmt.Errorf("%w: todo has no id", shared.ErrInvalidInput)
	}
	if _, err := r.db.Exec(upsertTodo, todoArgs(owner, todo)...); err != nil {
		return fmt.Errorf("failed to store todo: %w", err)
	}
	return nil
}

// Get retrieves a cached todo by id.
func (r *TodoRepository) Get(owner string, id int64) (models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE owner = ? AND id = ?`

	todo, err := scanTodo(r.db.QueryRow(query, owner, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, fmt.Errorf("%w: %d", shared.ErrTodoNotFound, id)
	}
	return todo, err
}

// Delete removes a cached todo. Removing an absent todo is not an error.
func (r *TodoRepository) Delete(owner string, id int64) error {
	if _, err := r.db.Exec(`DELETE FROM todos WHERE owner = ? AND id = ?`, owner, id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	return nil
}

// Clear drops every cached todo of owner.
func (r *TodoRepository) Clear(owner string) error {
	if _, err := r.db.Exec(`DELETE FROM todos WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("failed to clear todos: %w", err)
	}
	return nil
}

// List returns owner's cached todos, newest first.
func (r *TodoRepository) List(owner string, filter TodoFilter) ([]models.Todo, error) {
	where, args := filterClause(owner, filter)
	query := `SELECT ` + todoColumns + ` FROM todos` + where + ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	var todos []models.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return todos, nil
}

// Count returns how many cached todos match filter, ignoring its limit and offset.
func (r *TodoRepository) Count(owner string, filter TodoFilter) (int, error) {
	where, args := filterClause(owner, filter)

	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM todos`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count todos: %w", err)
	}
	return n, nil
}

func filterClause(owner string, filter TodoFilter) (string, []any) {
	where := ` WHERE owner = ?`
	args := []any{owner}

	if !filter.Since.IsZero() {
		where += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		where += ` AND created_at <= ?`
		args = append(args, filter.Until.UTC())
	}
	return where, args
}

func todoArgs(owner string, todo models.Todo) []any {
	return []any{
		todo.ID,
		owner,
		todo.Title,
		todo.Description,
		todo.Completed,
		nullTime(todo.CreatedAt),
		nullTime(todo.UpdatedAt),
	}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func scanTodo(row scanner) (models.Todo, error) {
	var (
		todo      models.Todo
		createdAt sql.NullTime
		updatedAt sql.NullTime
	)

	err := row.Scan(&todo.ID, &todo.Username, &todo.Title, &todo.Description, &todo.Completed, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Todo{}, err
	}
	if err != nil {
		return models.Todo{}, fmt.Errorf("failed to scan todo: %w", err)
	}

	if createdAt.Valid {
		todo.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		todo.UpdatedAt = updatedAt.Time
	}
	return todo, nil
}

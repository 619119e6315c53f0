package services

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/shared"
)

const (
	registerPath = "/auth/register"
	loginPath    = "/auth/login"
	validatePath = "/auth/validate"
	todosPath    = "/api/todos"
)

type tokenResponse struct {
	Token string `json:"token"`
}

type validResponse struct {
	Valid bool `json:"valid"`
}

type completedRequest struct {
	Completed bool `json:"completed"`
}

// TodoAPI is the typed client for the auth and todo endpoints.
//
// Requests on the todo endpoints must carry a bearer token; build the underlying [APIService] with a client
// from [NewAuthClient].
type TodoAPI struct {
	api *APIService
}

func NewTodoAPI(api *APIService) *TodoAPI {
	return &TodoAPI{api: api}
}

// Register creates an account.
func (t *TodoAPI) Register(ctx context.Context, creds models.Credentials) (*models.Registration, error) {
	var reg models.Registration
	if err := t.api.SendJSON(ctx, http.MethodPost, registerPath, creds, &reg, "Registration failed."); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Login exchanges credentials for a bearer token.
func (t *TodoAPI) Login(ctx context.Context, creds models.Credentials) (string, error) {
	var out tokenResponse
	if err := t.api.SendJSON(ctx, http.MethodPost, loginPath, creds, &out, "Login failed."); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", shared.ErrMissingToken
	}
	return out.Token, nil
}

// Validate asks the server whether the current token is still honored.
func (t *TodoAPI) Validate(ctx context.Context) (bool, error) {
	var out validResponse
	if err := t.api.SendJSON(ctx, http.MethodGet, validatePath, nil, &out, ""); err != nil {
		return false, err
	}
	return out.Valid, nil
}

// List returns every todo owned by the current user.
func (t *TodoAPI) List(ctx context.Context) ([]models.Todo, error) {
	var todos []models.Todo
	if err := t.api.SendJSON(ctx, http.MethodGet, todosPath, nil, &todos, "Failed to load todos."); err != nil {
		return nil, err
	}
	return todos, nil
}

// Create adds a todo and returns the server's copy.
func (t *TodoAPI) Create(ctx context.Context, draft models.TodoDraft) (models.Todo, error) {
	var todo models.Todo
	if err := t.api.SendJSON(ctx, http.MethodPost, todosPath, draft, &todo, "Failed to add."); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// Update replaces a todo's fields and returns the server's copy.
func (t *TodoAPI) Update(ctx context.Context, id int64, draft models.TodoDraft) (models.Todo, error) {
	var todo models.Todo
	if err := t.api.SendJSON(ctx, http.MethodPut, todoPath(id), draft, &todo, "Failed to update."); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// SetCompleted sets a todo's completion flag and returns the server's copy.
func (t *TodoAPI) SetCompleted(ctx context.Context, id int64, completed bool) (models.Todo, error) {
	var todo models.Todo
	body := completedRequest{Completed: completed}
	if err := t.api.SendJSON(ctx, http.MethodPatch, todoPath(id), body, &todo, "Failed to update todo."); err != nil {
		return models.Todo{}, err
	}
	return todo, nil
}

// Delete removes a todo.
func (t *TodoAPI) Delete(ctx context.Context, id int64) error {
	return t.api.SendJSON(ctx, http.MethodDelete, todoPath(id), nil, nil, "Failed to delete.")
}

func todoPath(id int64) string {
	return fmt.Sprintf("%s/%s", todosPath, strconv.FormatInt(id, 10))
}

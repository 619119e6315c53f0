package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/models"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/session"
	"github.com/desertthunder/todox/internal/shared"
	tu "github.com/desertthunder/todox/internal/testing"
	"github.com/desertthunder/todox/internal/ui"
)

// fakeAPI is an in-memory todo server with the same routes and error shapes as the real one.
type fakeAPI struct {
	t       *testing.T
	mu      sync.Mutex
	tokens  map[string]string // token -> username
	todos   []models.Todo
	nextID  int64
	revoked bool
}

func newFakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	f := &fakeAPI{t: t, tokens: map[string]string{}, nextID: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", f.register)
	mux.HandleFunc("POST /auth/login", f.login)
	mux.HandleFunc("GET /auth/validate", f.authed(f.validate))
	mux.HandleFunc("GET /api/todos", f.authed(f.list))
	mux.HandleFunc("POST /api/todos", f.authed(f.create))
	mux.HandleFunc("PUT /api/todos/{id}", f.authed(f.update))
	mux.HandleFunc("PATCH /api/todos/{id}", f.authed(f.setCompleted))
	mux.HandleFunc("DELETE /api/todos/{id}", f.authed(f.remove))
	mux.HandleFunc("POST /test/revoke", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.revoked = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) authed(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		user, ok := f.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		revoked := f.revoked
		f.mu.Unlock()

		if !ok || revoked {
			writeBody(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r, user)
	}
}

func (f *fakeAPI) register(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	json.NewDecoder(r.Body).Decode(&creds)

	switch {
	case creds.Username == "taken":
		writeBody(w, http.StatusConflict, map[string]string{"message": "Username already exists"})
	case len(creds.Password) < 6:
		writeBody(w, http.StatusBadRequest, map[string]any{
			"details": map[string]string{"password": "size must be between 6 and 100"},
		})
	default:
		writeBody(w, http.StatusCreated, models.Registration{ID: 1, Username: creds.Username, Message: "User registered successfully"})
	}
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	json.NewDecoder(r.Body).Decode(&creds)

	if creds.Password != "secret" {
		writeBody(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
		return
	}
	token := tu.SubjectToken(f.t, creds.Username)

	f.mu.Lock()
	f.tokens[token] = creds.Username
	f.revoked = false
	f.mu.Unlock()
	writeBody(w, http.StatusOK, map[string]string{"token": token})
}

func (f *fakeAPI) validate(w http.ResponseWriter, r *http.Request, user string) {
	writeBody(w, http.StatusOK, map[string]bool{"valid": true})
}

func (f *fakeAPI) list(w http.ResponseWriter, r *http.Request, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []models.Todo{}
	for _, todo := range f.todos {
		if todo.Username == user {
			out = append(out, todo)
		}
	}
	writeBody(w, http.StatusOK, out)
}

func (f *fakeAPI) create(w http.ResponseWriter, r *http.Request, user string) {
	var draft models.TodoDraft
	json.NewDecoder(r.Body).Decode(&draft)
	if strings.TrimSpace(draft.Title) == "" {
		writeBody(w, http.StatusBadRequest, map[string]any{"details": map[string]string{"title": "must not be blank"}})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	todo := models.Todo{
		ID:          f.nextID,
		Username:    user,
		Title:       draft.Title,
		Description: draft.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.nextID++
	f.todos = append(f.todos, todo)
	writeBody(w, http.StatusCreated, todo)
}

// find returns the index of the caller's todo named in the path, or -1.
func (f *fakeAPI) find(r *http.Request, user string) int {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	for i, todo := range f.todos {
		if todo.ID == id && todo.Username == user {
			return i
		}
	}
	return -1
}

func (f *fakeAPI) update(w http.ResponseWriter, r *http.Request, user string) {
	var draft models.TodoDraft
	json.NewDecoder(r.Body).Decode(&draft)

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r, user)
	if i < 0 {
		writeBody(w, http.StatusNotFound, map[string]string{"message": "Todo not found"})
		return
	}
	f.todos[i].Title = draft.Title
	f.todos[i].Description = draft.Description
	f.todos[i].UpdatedAt = time.Now().UTC()
	writeBody(w, http.StatusOK, f.todos[i])
}

func (f *fakeAPI) setCompleted(w http.ResponseWriter, r *http.Request, user string) {
	var body struct {
		Completed bool `json:"completed"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r, user)
	if i < 0 {
		writeBody(w, http.StatusNotFound, map[string]string{"message": "Todo not found"})
		return
	}
	f.todos[i].Completed = body.Completed
	f.todos[i].UpdatedAt = time.Now().UTC()
	writeBody(w, http.StatusOK, f.todos[i])
}

func (f *fakeAPI) remove(w http.ResponseWriter, r *http.Request, user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.find(r, user)
	if i < 0 {
		writeBody(w, http.StatusNotFound, map[string]string{"message": "Todo not found"})
		return
	}
	f.todos = append(f.todos[:i], f.todos[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

// fixture shares one server and database across runners, like successive invocations of the binary.
type fixture struct {
	t      *testing.T
	srv    *httptest.Server
	db     *sql.DB
	config *shared.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := newFakeAPI(t)

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.API.BaseURL = srv.URL
	config.API.RateLimit = 0
	config.Database.Path = ":memory:"

	return &fixture{t: t, srv: srv, db: db, config: config}
}

// invocation is one run of the CLI with recorded sinks.
type invocation struct {
	runner    *Runner
	output    *bytes.Buffer
	notifier  *tu.RecordingNotifier
	navigator *tu.RecordingNavigator
}

func (f *fixture) newInvocation() *invocation {
	output := &bytes.Buffer{}
	notifier := &tu.RecordingNotifier{}
	navigator := &tu.RecordingNavigator{}
	runner := NewRunner(RunnerOpts{
		Config:    f.config,
		Logger:    shared.DiscardLogger(),
		Output:    output,
		Notifier:  notifier,
		Navigator: navigator,
		DB:        f.db,
	})
	f.t.Cleanup(func() { runner.Close() })
	return &invocation{runner: runner, output: output, notifier: notifier, navigator: navigator}
}

// run executes args in a fresh invocation.
func (f *fixture) run(args ...string) (*invocation, error) {
	f.t.Helper()
	inv := f.newInvocation()
	err := newApp(inv.runner).Run(context.Background(), append([]string{"todox"}, args...))
	return inv, err
}

func (f *fixture) login(username string) {
	f.t.Helper()
	if _, err := f.run("auth", "login", "-u", username, "-p", "secret"); err != nil {
		f.t.Fatalf("login failed: %v", err)
	}
}

func (f *fixture) revoke() {
	f.t.Helper()
	resp, err := http.Post(f.srv.URL+"/test/revoke", "application/json", nil)
	if err != nil {
		f.t.Fatalf("failed to revoke: %v", err)
	}
	resp.Body.Close()
}

func (f *fixture) storedToken() string {
	f.t.Helper()
	token, err := repositories.NewCredentialRepository(f.db).Get()
	if err != nil {
		f.t.Fatalf("failed to read credential: %v", err)
	}
	return token
}

func hasNotice(n *tu.RecordingNotifier, kind shared.NoticeKind, substr string) bool {
	for _, notice := range n.Notices() {
		if notice.Kind == kind && strings.Contains(notice.Message, substr) {
			return true
		}
	}
	return false
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			notifier := &tu.RecordingNotifier{}
			navigator := &tu.RecordingNavigator{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Notifier:   notifier,
				Navigator:  navigator,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.notifier != notifier {
				t.Error("expected notifier to be set")
			}
			if runner.navigator != navigator {
				t.Error("expected navigator to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with nil notifier prints styled lines", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if _, ok := runner.notifier.(*ui.Notifier); !ok {
				t.Errorf("expected *ui.Notifier, got %T", runner.notifier)
			}
		})

		t.Run("does not open the database", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.db != nil || runner.board != nil {
				t.Error("expected the session stack to be built lazily")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `{"key":"value"}`) {
				t.Errorf("expected compact JSON, got %s", output.String())
			}
		})

		t.Run("returns error for unmarshalable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected error for unmarshalable data")
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err == nil {
				t.Error("expected error when write fails")
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s\n", "World"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Hello World\n" {
				t.Errorf("expected 'Hello World\\n', got %q", output.String())
			}
		})

		t.Run("returns error when write fails", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("test"); err == nil {
				t.Error("expected error when write fails")
			}
		})
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup config writes the default file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})

		if err := newApp(runner).Run(context.Background(), []string{"todox", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "[api]") {
			t.Error("expected the default config in the file")
		}
	})

	t.Run("setup config refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[api]\n"), 0644); err != nil {
			t.Fatal(err)
		}
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})

		if err := newApp(runner).Run(context.Background(), []string{"todox", "--config", path, "setup", "config"}); err == nil {
			t.Error("expected an error for an existing file")
		}
	})

	t.Run("setup database uses the configured path", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "data", "todox.db")
		configPath := filepath.Join(dir, "config.toml")
		config := "[database]\npath = \"" + filepath.ToSlash(dbPath) + "\"\n"
		if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
			t.Fatal(err)
		}
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})

		if err := newApp(runner).Run(context.Background(), []string{"todox", "-c", configPath, "setup", "database"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("expected database file at %s: %v", dbPath, err)
		}
		if runner.config.API.BaseURL == "" {
			t.Error("expected defaults for sections missing from the file")
		}
	})

	t.Run("explicit config path must exist", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.toml")

		for _, args := range [][]string{{"setup", "database"}, {"auth", "status"}} {
			runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})
			err := newApp(runner).Run(context.Background(), append([]string{"todox", "-c", path}, args...))
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("%v: expected ErrMissingConfig, got %v", args, err)
			}
			if runner.db != nil {
				t.Errorf("%v: expected no database to be opened", args)
			}
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("expected nothing to be written")
		}
	})

	t.Run("invalid config file fails before any command runs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("not = [valid"), 0644); err != nil {
			t.Fatal(err)
		}
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})

		err := newApp(runner).Run(context.Background(), []string{"todox", "-c", path, "setup", "database"})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		f := newFixture(t)
		inv, err := f.run("auth", "register", "-u", "alice", "-p", "secret")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeSuccess, "User registered successfully") {
			t.Errorf("expected success notice, got %+v", inv.notifier.Notices())
		}
		if f.storedToken() != "" {
			t.Error("expected register not to log in")
		}
	})

	t.Run("register conflict", func(t *testing.T) {
		f := newFixture(t)
		inv, err := f.run("auth", "register", "-u", "taken", "-p", "secret")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeError, apierr.MsgConflict) {
			t.Errorf("expected conflict notice, got %+v", inv.notifier.Notices())
		}
	})

	t.Run("register field errors", func(t *testing.T) {
		f := newFixture(t)
		inv, err := f.run("auth", "register", "-u", "alice", "-p", "abc")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		notices := inv.notifier.Notices()
		if len(notices) != 1 || notices[0].Message != "password: size must be between 6 and 100" {
			t.Errorf("expected one field notice, got %+v", notices)
		}
	})

	t.Run("login stores the token and points at the list", func(t *testing.T) {
		f := newFixture(t)
		inv, err := f.run("auth", "login", "-u", "alice", "-p", "secret")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeSuccess, "Logged in as alice.") {
			t.Errorf("expected login notice, got %+v", inv.notifier.Notices())
		}
		if routes := inv.navigator.Routes(); len(routes) != 1 || routes[0] != "/todos" {
			t.Errorf("expected navigation to /todos, got %v", routes)
		}
		if f.storedToken() == "" {
			t.Error("expected token to be persisted")
		}
		if inv.runner.session.Status() != session.Authenticated {
			t.Errorf("expected authenticated, got %s", inv.runner.session.Status())
		}
	})

	t.Run("login with bad password", func(t *testing.T) {
		f := newFixture(t)
		inv, err := f.run("auth", "login", "-u", "alice", "-p", "wrong")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeError, apierr.MsgInvalidCredentials) {
			t.Errorf("expected invalid credentials notice, got %+v", inv.notifier.Notices())
		}
		if inv.runner.session.Status() != session.Unauthenticated {
			t.Errorf("expected unauthenticated, got %s", inv.runner.session.Status())
		}
		if len(inv.navigator.Routes()) != 0 {
			t.Errorf("expected no navigation, got %v", inv.navigator.Routes())
		}
	})

	t.Run("status restores the stored session", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")

		inv, err := f.run("auth", "status", "--json")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out sessionStatus
		if err := json.Unmarshal(inv.output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", inv.output.String(), err)
		}
		if out.Status != "authenticated" || out.Username != "alice" {
			t.Errorf("unexpected status %+v", out)
		}
		if out.StoredAt == nil {
			t.Error("expected the token's stored time")
		}
	})

	t.Run("revoked token is dropped at startup", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		f.revoke()

		inv, err := f.run("todo", "list")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeError, session.MsgSoftLogout) {
			t.Errorf("expected soft logout notice, got %+v", inv.notifier.Notices())
		}
		if f.storedToken() != "" {
			t.Error("expected stored token to be cleared")
		}
	})

	t.Run("logout", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")

		inv, err := f.run("auth", "logout")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeSuccess, session.MsgLoggedOut) {
			t.Errorf("expected logout notice, got %+v", inv.notifier.Notices())
		}
		if routes := inv.navigator.Routes(); len(routes) != 1 || routes[0] != "/login" {
			t.Errorf("expected navigation to /login, got %v", routes)
		}
		if f.storedToken() != "" {
			t.Error("expected stored token to be cleared")
		}

		again, err := f.run("auth", "logout")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(again.output.String(), "Not logged in.") {
			t.Errorf("expected not-logged-in message, got %q", again.output.String())
		}
		if len(again.notifier.Notices()) != 0 {
			t.Errorf("expected no notice on second logout, got %+v", again.notifier.Notices())
		}
	})
}

func TestTodoCommands(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.run("todo", "list"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("add, toggle, edit and remove", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")

		inv, err := f.run("todo", "add", "--title", "write tests", "--description", "all of them")
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if !strings.Contains(inv.output.String(), "[ ] #1 write tests - all of them") {
			t.Errorf("unexpected add output %q", inv.output.String())
		}
		if !hasNotice(inv.notifier, shared.NoticeSuccess, "todo added") {
			t.Errorf("expected added notice, got %+v", inv.notifier.Notices())
		}

		inv, err = f.run("todo", "toggle", "1")
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if !strings.Contains(inv.output.String(), "[x] #1") {
			t.Errorf("unexpected toggle output %q", inv.output.String())
		}
		if !hasNotice(inv.notifier, shared.NoticeSuccess, "todo completed") {
			t.Errorf("expected completed notice, got %+v", inv.notifier.Notices())
		}

		inv, err = f.run("todo", "edit", "--title", "write more tests", "1")
		if err != nil {
			t.Fatalf("edit: %v", err)
		}
		if !strings.Contains(inv.output.String(), "[x] #1 write more tests - all of them") {
			t.Errorf("expected unset fields to keep cached values, got %q", inv.output.String())
		}

		inv, err = f.run("todo", "rm", "1")
		if err != nil {
			t.Fatalf("rm: %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeSuccess, "todo deleted") {
			t.Errorf("expected deleted notice, got %+v", inv.notifier.Notices())
		}

		inv, err = f.run("todo", "list")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(inv.output.String(), "No todos found.") {
			t.Errorf("expected empty list, got %q", inv.output.String())
		}
	})

	t.Run("list pages newest first", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		for _, title := range []string{"first", "second", "third"} {
			if _, err := f.run("todo", "add", "--title", title); err != nil {
				t.Fatalf("add %s: %v", title, err)
			}
		}

		inv, err := f.run("todo", "list", "--json", "--per-page", "2")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var page struct {
			Items      []models.Todo
			Total      int
			TotalPages int
		}
		if err := json.Unmarshal(inv.output.Bytes(), &page); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", inv.output.String(), err)
		}
		if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
			t.Errorf("unexpected page %+v", page)
		}
		if page.Items[0].Title != "third" {
			t.Errorf("expected newest first, got %q", page.Items[0].Title)
		}
	})

	t.Run("blank title is caught before the request", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		if _, err := f.run("todo", "add", "--title", "keep"); err != nil {
			t.Fatalf("add: %v", err)
		}

		inv, err := f.run("todo", "edit", "--title", "   ", "1")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		notices := inv.notifier.Notices()
		if len(notices) != 1 || notices[0].Message != "title: Title is required" {
			t.Errorf("expected one field notice, got %+v", notices)
		}
	})

	t.Run("expired session during a mutation logs out", func(t *testing.T) {
		f := newFixture(t)
		f.config.Session.ValidateOnStart = false
		f.login("alice")
		f.revoke()

		inv, err := f.run("todo", "add", "--title", "too late")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		notices := inv.notifier.Notices()
		if len(notices) != 1 || notices[0].Message != apierr.MsgSessionExpired {
			t.Errorf("expected exactly one session expired notice, got %+v", notices)
		}
		if inv.runner.session.Status() != session.Unauthenticated {
			t.Errorf("expected unauthenticated, got %s", inv.runner.session.Status())
		}
		if len(inv.navigator.Routes()) != 0 {
			t.Errorf("expected no navigation on expiry, got %v", inv.navigator.Routes())
		}
		if f.storedToken() != "" {
			t.Error("expected stored token to be cleared")
		}
	})

	t.Run("future dates are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")

		tomorrow := time.Now().AddDate(0, 0, 1).Format(dateLayout)
		if _, err := f.run("todo", "list", "--since", tomorrow); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("malformed date", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		if _, err := f.run("todo", "list", "--until", "yesterday"); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.run("todo", "toggle", "abc"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.run("todo", "rm"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("export writes one file per format", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		if _, err := f.run("todo", "add", "--title", "export me"); err != nil {
			t.Fatalf("add: %v", err)
		}

		dir := t.TempDir()
		inv, err := f.run("todo", "export", "--format", "json,csv", "--format", "markdown", "--dir", dir)
		if err != nil {
			t.Fatalf("export: %v", err)
		}
		for _, name := range []string{"alice_todos.json", "alice_todos.csv", "alice_todos.md"} {
			if !strings.Contains(tu.MustReadFile(t, filepath.Join(dir, name)), "export me") {
				t.Errorf("expected todo in %s", name)
			}
		}
		if !strings.Contains(inv.output.String(), "Exported 1 todos for alice") {
			t.Errorf("unexpected output %q", inv.output.String())
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		if _, err := f.run("todo", "export", "--format", "pdf", "--dir", t.TempDir()); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	f := newFixture(t)
	f.login("alice")
	if _, err := f.run("todo", "add", "--title", "cached"); err != nil {
		t.Fatalf("add: %v", err)
	}

	t.Run("status counts cached todos", func(t *testing.T) {
		inv, err := f.run("cache", "status")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(inv.output.String(), "Todos: 1") {
			t.Errorf("unexpected output %q", inv.output.String())
		}
	})

	t.Run("clear empties the cache only", func(t *testing.T) {
		if _, err := f.run("cache", "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		count, err := repositories.NewTodoRepository(f.db).Count("alice", repositories.TodoFilter{})
		if err != nil {
			t.Fatal(err)
		}
		if count != 0 {
			t.Errorf("expected empty cache, got %d", count)
		}

		inv, err := f.run("todo", "list")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(inv.output.String(), "cached") {
			t.Errorf("expected refresh to restore the server copy, got %q", inv.output.String())
		}
	})
}

func TestAPICommands(t *testing.T) {
	t.Run("get attaches the session token", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		if _, err := f.run("todo", "add", "--title", "raw"); err != nil {
			t.Fatalf("add: %v", err)
		}

		inv, err := f.run("api", "get", "--json", "/api/todos")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(inv.output.String(), `"title":"raw"`) {
			t.Errorf("unexpected output %q", inv.output.String())
		}
	})

	t.Run("put, patch and delete reach the todo routes", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")
		if _, err := f.run("todo", "add", "--title", "raw"); err != nil {
			t.Fatalf("add: %v", err)
		}

		inv, err := f.run("api", "put", "-d", `{"title":"renamed","description":"by hand"}`, "/api/todos/1")
		if err != nil {
			t.Fatalf("put: %v", err)
		}
		if !strings.Contains(inv.output.String(), `"title": "renamed"`) {
			t.Errorf("unexpected put output %q", inv.output.String())
		}

		inv, err = f.run("api", "patch", "-d", `{"completed":true}`, "/api/todos/1")
		if err != nil {
			t.Fatalf("patch: %v", err)
		}
		if !strings.Contains(inv.output.String(), `"completed": true`) {
			t.Errorf("unexpected patch output %q", inv.output.String())
		}

		inv, err = f.run("api", "delete", "/api/todos/1")
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if !strings.Contains(inv.output.String(), "204 (no content)") {
			t.Errorf("unexpected delete output %q", inv.output.String())
		}

		inv, err = f.run("api", "delete", "/api/todos/1")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeError, apierr.MsgResourceNotFound) {
			t.Errorf("expected not found notice, got %+v", inv.notifier.Notices())
		}
	})

	t.Run("verbose logs the request id", func(t *testing.T) {
		f := newFixture(t)
		f.login("alice")

		var logs bytes.Buffer
		inv := f.newInvocation()
		inv.runner.SetLogger(shared.NewLogger(&logs))
		args := []string{"todox", "--verbose", "api", "get", "/api/todos"}
		if err := newApp(inv.runner).Run(context.Background(), args); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(logs.String(), "request_id=") {
			t.Errorf("expected request id in debug log, got %q", logs.String())
		}
		if !strings.Contains(logs.String(), "application/json") {
			t.Errorf("expected content type in debug log, got %q", logs.String())
		}
	})

	t.Run("get without a session is classified", func(t *testing.T) {
		f := newFixture(t)
		inv, err := f.run("api", "get", "/api/todos")
		if !errors.Is(err, errReported) {
			t.Fatalf("expected a reported error, got %v", err)
		}
		if !hasNotice(inv.notifier, shared.NoticeError, apierr.MsgSessionExpired) {
			t.Errorf("expected session notice, got %+v", inv.notifier.Notices())
		}
	})

	t.Run("post rejects invalid JSON before sending", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.run("api", "post", "-d", "{", "/api/todos"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

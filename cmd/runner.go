package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/todox/internal/apierr"
	"github.com/desertthunder/todox/internal/repositories"
	"github.com/desertthunder/todox/internal/services"
	"github.com/desertthunder/todox/internal/session"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/tasks"
	"github.com/desertthunder/todox/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session stack (database, API client, session manager, board) is built on first use by [Runner.open],
// so commands that only touch configuration never open the database.
type Runner struct {
	config     *shared.Config
	configPath string
	configErr  error // set when an explicit --config path does not exist
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	notifier   shared.Notifier
	navigator  shared.Navigator

	db          *sql.DB
	ownsDB      bool
	credentials *repositories.CredentialRepository
	cache       *repositories.TodoRepository
	api         *services.APIService
	todos       *services.TodoAPI
	session     *session.Manager
	dispatcher  *apierr.Dispatcher
	board       *tasks.Board
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Notifier   shared.Notifier
	Navigator  shared.Navigator
	DB         *sql.DB // migrated database to use instead of opening Config.Database
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.NewNotifier(opts.Output)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		notifier:   opts.Notifier,
		navigator:  opts.Navigator,
		db:         opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, todoCommand, cacheCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config unless one was injected, and applies --verbose.
//
// A missing default config.toml falls back to defaults. A missing file named explicitly is reported by the
// commands that read configuration, so `setup config` can still create it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.config != nil {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	config := shared.DefaultConfig()
	if _, err := os.Stat(r.configPath); err == nil {
		if config, err = shared.LoadConfig(r.configPath); err != nil {
			return ctx, err
		}
	} else if cmd.IsSet("config") {
		r.configErr = fmt.Errorf("%w: %s does not exist, run `todox setup config` to create it", shared.ErrMissingConfig, r.configPath)
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}
	r.config = config
	return ctx, nil
}

// SetLogger replaces the logger. It must be called before the session stack is built.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// SetNotifier replaces the notification sink. It must be called before the session stack is built.
func (r *Runner) SetNotifier(n shared.Notifier) {
	r.notifier = n
}

// SetNavigator replaces the navigation sink. It must be called before the session stack is built.
func (r *Runner) SetNavigator(n shared.Navigator) {
	r.navigator = n
}

func (r *Runner) routeHints() map[string]string {
	routes := r.routes()
	return map[string]string{
		routes.Login: "Run `todox auth login` to sign in.",
		routes.Items: "Run `todox todo list` to see your todos.",
	}
}

func (r *Runner) routes() session.Routes {
	return session.Routes{Login: r.config.Routes.Login, Items: r.config.Routes.Items}
}

// open builds the session stack and restores the persisted session, waiting for startup validation to settle.
//
// The API client reads the bearer token from the session manager at dispatch time.
func (r *Runner) open(ctx context.Context) error {
	if r.board != nil {
		return nil
	}
	if r.configErr != nil {
		return r.configErr
	}
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	if r.navigator == nil {
		r.navigator = ui.NewNavigator(r.output, r.routeHints())
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.ownsDB = true
	}
	r.credentials = repositories.NewCredentialRepository(r.db)
	r.cache = repositories.NewTodoRepository(r.db)

	var manager *session.Manager
	client := *r.httpClient
	client.Timeout = r.config.API.Timeout()
	authClient := services.NewAuthClient(&client, services.TokenSourceFunc(func() string {
		return manager.Token()
	}))

	r.api = services.NewAPIService(r.config.API.BaseURL, authClient)
	r.api.SetRateLimit(r.config.API.RateLimit)
	r.api.SetLogger(r.logger)
	r.todos = services.NewTodoAPI(r.api)

	opts := session.Options{
		Store:         r.credentials,
		Authenticator: r.todos,
		Notifier:      r.notifier,
		Navigator:     r.navigator,
		Routes:        r.routes(),
		Logger:        r.logger,
	}
	if r.config.Session.ValidateOnStart {
		opts.Validator = r.todos
	}
	manager = session.NewManager(opts)
	r.session = manager

	r.dispatcher = apierr.NewDispatcher(r.notifier, manager, r.logger)
	r.board = tasks.NewBoard(tasks.BoardOpts{
		API:        r.todos,
		Session:    manager,
		Cache:      r.cache,
		Dispatcher: r.dispatcher,
		Notifier:   r.notifier,
		Logger:     r.logger,
	})

	select {
	case <-manager.Init(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}
	r.logger.Debug("session restored", "status", manager.Status())
	return nil
}

// Close tears down the session manager and closes a database the runner opened itself.
func (r *Runner) Close() error {
	if r.session != nil {
		r.session.Teardown()
	}
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

// requireSession opens the stack and fails with [shared.ErrNotAuthenticated] when nobody is logged in.
func (r *Runner) requireSession(ctx context.Context) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	if _, ok := r.session.Identity(); !ok {
		return fmt.Errorf("%w: run `todox auth login` first", shared.ErrNotAuthenticated)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// Package app wires configuration, storage and services into one editing
// session and exposes the calls a canvas UI or agent drives.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"worksheet/internal/config"
	"worksheet/internal/domain"
	"worksheet/internal/draft"
	"worksheet/internal/gateway"
	"worksheet/internal/gateway/openai"
	"worksheet/internal/gateway/scripted"
	"worksheet/internal/history"
	"worksheet/internal/logger"
	"worksheet/internal/schema"
	"worksheet/internal/secret"
	"worksheet/internal/selection"
	"worksheet/internal/service"
	"worksheet/internal/storage"
)

// Options override pieces New would otherwise build from config.
type Options struct {
	Logger   *logger.Logger
	Emitter  service.EventEmitter
	Gateway  gateway.Gateway
	Registry *schema.Registry

	// Secrets replaces the environment and keychain lookup of the gateway
	// API key.
	Secrets secret.SecretStore
}

// App is one editing session over a worksheet store.
type App struct {
	cfg *config.Config
	log *logger.Logger

	db    *storage.DB
	mongo *storage.MongoEditStore

	registry   *schema.Registry
	worksheets *service.WorksheetService
	props      *service.PropertyService
	edits      *service.EditService
	history    *history.Log
	drafts     *draft.Cache
	emitter    service.EventEmitter

	mu      sync.Mutex
	sel     selection.Selection
	editCtx domain.WorksheetEditContext
}

// New opens storage and builds the services described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		var err error
		log, err = logger.New(cfg.Log.Mode, cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		registry: opts.Registry,
		drafts:   draft.New(),
		editCtx:  cfg.Edit.Context,
	}
	if a.registry == nil {
		a.registry = schema.Builtin()
	}
	a.emitter = opts.Emitter
	if a.emitter == nil {
		a.emitter = logEmitter{log: log}
	}

	dialect, err := storage.ParseDialect(cfg.Storage.Driver)
	if err != nil {
		return nil, err
	}
	dsn := cfg.Storage.DSN
	if dialect == storage.DialectSQLite {
		dsn = cfg.Storage.SQLiteDSN()
	}
	a.db, err = storage.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	if err := a.initHistory(ctx); err != nil {
		a.Close()
		return nil, err
	}

	gw := opts.Gateway
	if gw == nil {
		gw, err = a.buildGateway(opts.Secrets)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	policy, err := service.ParsePatchPolicy(cfg.Edit.PatchPolicy)
	if err != nil {
		a.Close()
		return nil, err
	}

	pages := storage.NewPageStore(a.db)
	elements := storage.NewElementStore(a.db)
	a.worksheets = service.NewWorksheetService(pages, elements, a.emitter, log)
	a.props = service.NewPropertyService(pages, elements, a.registry, a.emitter, log)
	a.edits = service.NewEditService(a.props, gw, a.history, a.drafts, policy, a.emitter, log)

	log.Info("session ready",
		"session_id", a.history.SessionID(),
		"storage", string(dialect),
		"history", cfg.History.Backend,
		"gateway", cfg.Gateway.Provider,
		"patch_policy", string(policy),
	)
	return a, nil
}

func (a *App) initHistory(ctx context.Context) error {
	sessionID := a.cfg.History.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var store domain.EditStore
	switch strings.ToLower(a.cfg.History.Backend) {
	case config.HistoryMemory:
	case config.HistoryMongo:
		m, err := storage.NewMongoEditStore(ctx, a.cfg.History.MongoURI,
			a.cfg.History.MongoDatabase, a.cfg.History.MongoCollection, a.log)
		if err != nil {
			return fmt.Errorf("open mongo history: %w", err)
		}
		a.mongo = m
		store = m
	default:
		store = storage.NewEditStore(a.db)
	}

	if store == nil {
		a.history = history.New(sessionID, nil, a.log)
		return nil
	}
	a.history = history.New(sessionID, store, a.log)
	prior, err := store.ListEdits(sessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	a.history.Restore(prior)
	return nil
}

func (a *App) buildGateway(store secret.SecretStore) (gateway.Gateway, error) {
	gc := a.cfg.Gateway
	switch strings.ToLower(gc.Provider) {
	case config.ProviderScripted:
		return scripted.New(), nil
	case config.ProviderOpenAI, "":
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", gc.Provider)
	}

	var secrets secret.Getter = store
	if store == nil {
		secrets = secret.Chain{
			secret.NewEnvStore(""),
			secret.NewKeychainStore(gc.KeychainService),
		}
	}
	key, err := secret.Lookup(secrets, gc.APIKeyEnv)
	if err != nil {
		a.log.Warn("api key lookup failed", "error", err)
	}
	if key == "" {
		a.log.Warn("no gateway api key configured, edits will fail", "api_key_env", gc.APIKeyEnv)
		msg := fmt.Sprintf("no API key configured: set %s", gc.APIKeyEnv)
		return gateway.Func(func(context.Context, gateway.Request) (gateway.Result, error) {
			return gateway.Failed(msg), nil
		}), nil
	}

	opts := gc.Options
	opts.APIKey = key
	client, err := openai.New(opts, a.log)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Close releases storage connections.
func (a *App) Close() error {
	var errs []error
	if a.mongo != nil {
		errs = append(errs, a.mongo.Close(context.Background()))
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	a.log.Sync()
	return errors.Join(errs...)
}

func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Logger() *logger.Logger { return a.log }
func (a *App) Registry() *schema.Registry { return a.registry }
func (a *App) Worksheets() *service.WorksheetService { return a.worksheets }
func (a *App) SessionID() string { return a.history.SessionID() }

// logEmitter records UI events in the log when no frontend is attached.
type logEmitter struct {
	log *logger.Logger
}

func (e logEmitter) Emit(_ context.Context, event string, _ any) {
	e.log.Debug("event", "name", event)
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/felixgeelhaar/policykeeper/application"
	"github.com/felixgeelhaar/policykeeper/domain/approval"
	"github.com/felixgeelhaar/policykeeper/domain/event"
	"github.com/felixgeelhaar/policykeeper/domain/policy"
	"github.com/felixgeelhaar/policykeeper/domain/user"
	"github.com/felixgeelhaar/policykeeper/domain/version"
	"github.com/felixgeelhaar/policykeeper/infrastructure/config"
	eventpub "github.com/felixgeelhaar/policykeeper/infrastructure/event"
	"github.com/felixgeelhaar/policykeeper/infrastructure/event/redis"
	"github.com/felixgeelhaar/policykeeper/infrastructure/logging"
	"github.com/felixgeelhaar/policykeeper/infrastructure/notification"
	"github.com/felixgeelhaar/policykeeper/infrastructure/observability"
	"github.com/felixgeelhaar/policykeeper/infrastructure/resilience"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/memory"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/policykeeper/infrastructure/storage/sqlite"
)

// stores groups one backend's implementations of the store interfaces.
type stores struct {
	policies  policy.Store
	users     user.Store
	approvals approval.Repository
	versions  version.Repository
	events    event.Store
	close     func() error
}

// runtime holds the services wired for one CLI invocation.
type runtime struct {
	policies  *application.PolicyService
	versions  *application.VersionService
	approvals *application.ApprovalService
	status    *application.StatusCoordinator
	users     user.Store
	events    event.Store
	guard     *resilience.Guard

	publisher   *eventpub.Publisher
	sinkClosers []func() error
	telemetry   *observability.Provider
	closeDB     func() error
}

// openRuntime wires logging, telemetry, the selected store backend, the
// store guard, the event forwarders and the services from cfg. Logs and
// spans go to stderr.
func openRuntime(ctx context.Context, cfg *config.Config, stderr io.Writer) (*runtime, error) {
	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: stderr,
	})

	telemetryOpts := []observability.Option{
		observability.WithServiceVersion(Version),
		observability.WithSampleRate(cfg.Telemetry.SampleRate),
	}
	if cfg.Telemetry.Tracing {
		telemetryOpts = append(telemetryOpts, observability.WithStdoutTracing())
	}
	if cfg.Telemetry.Metrics {
		telemetryOpts = append(telemetryOpts, observability.WithMetrics())
	}
	telemetry, err := observability.New(stderr, telemetryOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	metrics, err := telemetry.Metrics()
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}

	backend, err := openStores(ctx, cfg.Storage)
	if err != nil {
		_ = telemetry.Shutdown(ctx)
		return nil, err
	}

	guard := resilience.NewGuard(resilience.GuardConfig{
		MaxConcurrent:    cfg.Guard.MaxConcurrent,
		BreakerThreshold: cfg.Guard.BreakerThreshold,
		BreakerTimeout:   cfg.Guard.BreakerTimeout.Std(),
		Timeout:          cfg.Guard.Timeout.Std(),
	})
	policies := resilience.NewPolicyStore(backend.policies, guard)
	users := resilience.NewUserStore(backend.users, guard)
	approvals := resilience.NewApprovalRepository(backend.approvals, guard)
	versions := resilience.NewVersionRepository(backend.versions, guard)

	sinks, sinkClosers, err := openSinks(ctx, cfg.Notify)
	if err != nil {
		_ = backend.close()
		_ = telemetry.Shutdown(ctx)
		return nil, err
	}
	publisher := eventpub.NewPublisher(backend.events, eventpub.WithSinks(sinks...))
	opts := []application.Option{
		application.WithPublisher(publisher),
		application.WithTracer(telemetry.Tracer()),
		application.WithMetrics(metrics),
	}

	versionSvc := application.NewVersionService(policies, users, versions, opts...)
	status := application.NewStatusCoordinator(policies, approvals, opts...)

	logging.Debug().
		Add(logging.Component("cli")).
		Add(logging.Str("driver", cfg.Storage.Driver)).
		Msg("runtime opened")

	return &runtime{
		policies:    application.NewPolicyService(policies, versionSvc, opts...),
		versions:    versionSvc,
		approvals:   application.NewApprovalService(policies, users, approvals, status, opts...),
		status:      status,
		users:       users,
		events:      backend.events,
		guard:       guard,
		publisher:   publisher,
		sinkClosers: sinkClosers,
		telemetry:   telemetry,
		closeDB:     backend.close,
	}, nil
}

// openSinks builds the forwarders named by the notify configuration.
func openSinks(ctx context.Context, cfg config.NotifyConfig) ([]eventpub.Sink, []func() error, error) {
	var (
		sinks   []eventpub.Sink
		closers []func() error
	)

	if len(cfg.Webhooks) > 0 {
		endpoints := make([]*notification.Endpoint, 0, len(cfg.Webhooks))
		for _, wh := range cfg.Webhooks {
			endpoints = append(endpoints, &notification.Endpoint{
				Name:    wh.Name,
				URL:     wh.URL,
				Secret:  wh.Secret,
				Headers: wh.Headers,
				Types:   wh.Events,
			})
		}
		notifier := notification.NewNotifier(notification.Config{
			Endpoints: endpoints,
			Sender:    notification.DefaultSenderConfig(),
			BatchSize: cfg.BatchSize,
			BatchWait: cfg.BatchWait.Std(),
		})
		sinks = append(sinks, notifier)
		closers = append(closers, notifier.Close)
	}

	if cfg.Redis.Address != "" {
		b, err := redis.NewBroadcaster(ctx, redis.DefaultConfig(),
			redis.WithAddress(cfg.Redis.Address),
			redis.WithPassword(cfg.Redis.Password),
			redis.WithDB(cfg.Redis.DB),
			redis.WithChannelPrefix(cfg.Redis.ChannelPrefix),
		)
		if err != nil {
			for _, c := range closers {
				_ = c()
			}
			return nil, nil, fmt.Errorf("failed to connect event broadcaster: %w", err)
		}
		sinks = append(sinks, b)
		closers = append(closers, b.Close)
	}

	return sinks, closers, nil
}

// openStores opens the backend named by the storage configuration.
func openStores(ctx context.Context, cfg config.StorageConfig) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		policies := memory.NewPolicyStore()
		events := memory.NewEventStore()
		return &stores{
			policies:  policies,
			users:     memory.NewUserStore(),
			approvals: memory.NewApprovalStore(),
			versions:  memory.NewVersionStore(policies),
			events:    events,
			close:     events.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(sqlite.DefaultConfig(), sqlite.WithPath(cfg.SQLite.Path))
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		events := sqlite.NewEventStore(db)
		return &stores{
			policies:  sqlite.NewPolicyStore(db),
			users:     sqlite.NewUserStore(db),
			approvals: sqlite.NewApprovalStore(db),
			versions:  sqlite.NewVersionStore(db),
			events:    events,
			close: func() error {
				return errors.Join(events.Close(), db.Close())
			},
		}, nil

	case config.DriverPostgres:
		pool, err := postgres.Open(ctx, postgres.DefaultConfig(),
			postgres.WithDSN(cfg.Postgres.DSN),
			postgres.WithSchema(cfg.Postgres.Schema),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		schema := cfg.Postgres.Schema
		events := postgres.NewEventStore(pool, schema)
		return &stores{
			policies:  postgres.NewPolicyStore(pool, schema),
			users:     postgres.NewUserStore(pool, schema),
			approvals: postgres.NewApprovalStore(pool, schema),
			versions:  postgres.NewVersionStore(pool, schema),
			events:    events,
			close: func() error {
				err := events.Close()
				pool.Close()
				return err
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// Close flushes pending audit events, then the forwarders, and releases
// the backend.
func (r *runtime) Close(ctx context.Context) error {
	errs := []error{r.publisher.Close()}
	for _, c := range r.sinkClosers {
		errs = append(errs, c())
	}
	errs = append(errs, r.closeDB(), r.telemetry.Shutdown(ctx))
	return errors.Join(errs...)
}

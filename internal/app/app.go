package app

import (
	"net/http"

	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/riskibarqy/fpl-collector/internal/config"
	"github.com/riskibarqy/fpl-collector/internal/infrastructure/fplapi"
	"github.com/riskibarqy/fpl-collector/internal/infrastructure/repository/sqldb"
	idgen "github.com/riskibarqy/fpl-collector/internal/platform/id"
	"github.com/riskibarqy/fpl-collector/internal/platform/logging"
	"github.com/riskibarqy/fpl-collector/internal/platform/resilience"
	"github.com/riskibarqy/fpl-collector/internal/usecase"
)

// NewCollector wires the FPL client, the table store and the sync-run
// repository into a collector service. The returned closer releases the
// database handle.
func NewCollector(cfg config.Config, logger *logging.Logger) (*usecase.CollectorService, func() error, error) {
	if logger == nil {
		logger = logging.Default()
	}

	db, dialect, err := sqldb.Open(prepareDBURL(cfg.DBURL, dialectIsSQLite(cfg.DBURL)))
	if err != nil {
		return nil, nil, crerr.Wrap(err, "open store")
	}

	client := fplapi.NewClient(fplapi.ClientConfig{
		HTTPClient: &http.Client{
			Timeout:   cfg.FPLTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		BaseURL: cfg.FPLBaseURL,
		Timeout: cfg.FPLTimeout,
		Logger:  logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLCircuitEnabled,
			FailureThreshold: cfg.FPLCircuitFailureCount,
			OpenTimeout:      cfg.FPLCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLCircuitHalfOpenMaxReq,
		},
	})

	service := usecase.NewCollectorService(
		usecase.CollectorServiceConfig{
			MaxWorkers:   cfg.CollectMaxWorkers,
			CacheEnabled: cfg.CacheEnabled,
			CacheTTL:     cfg.CacheTTL,
		},
		client,
		sqldb.NewTableStore(db, dialect),
		sqldb.NewSyncRunRepository(db),
		idgen.NewRandomGenerator(),
		logger,
	)

	return service, db.Close, nil
}

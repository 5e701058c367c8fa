package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kirillkom/paper-grader/internal/config"
	"github.com/kirillkom/paper-grader/internal/core/domain"
	"github.com/kirillkom/paper-grader/internal/core/ports"
	"github.com/kirillkom/paper-grader/internal/core/usecase"
	"github.com/kirillkom/paper-grader/internal/infrastructure/llm/deepseek"
	"github.com/kirillkom/paper-grader/internal/infrastructure/ocr/baidu"
	"github.com/kirillkom/paper-grader/internal/infrastructure/pacing"
	"github.com/kirillkom/paper-grader/internal/infrastructure/queue/nats"
	"github.com/kirillkom/paper-grader/internal/infrastructure/report"
	"github.com/kirillkom/paper-grader/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/paper-grader/internal/infrastructure/resilience"
	"github.com/kirillkom/paper-grader/internal/infrastructure/rubric"
	"github.com/kirillkom/paper-grader/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/paper-grader/internal/observability/metrics"
)

const serviceName = "paper-grader"

type App struct {
	Config config.Config
	Logger *slog.Logger
	Rubric domain.Rubric

	Source      *localfs.Storage
	Credentials *baidu.TokenStore
	Archive     *postgres.RunRepository
	GradeUC     ports.BatchGrader

	closeFn func()
}

type Options struct {
	// Stdout receives progress lines and the summary table.
	Stdout io.Writer
	Logger *slog.Logger
}

// New validates cfg and wires the grading pipeline. Optional backends
// (Postgres, NATS, Pushgateway, XLSX) are attached only when configured.
func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	gradingRubric, err := rubric.Load(cfg.RubricFile)
	if err != nil {
		return nil, err
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))

	baiduClient := baidu.New(baidu.Config{
		APIKey:    cfg.BaiduAPIKey,
		SecretKey: cfg.BaiduSecretKey,
		TokenURL:  cfg.BaiduTokenURL,
		OCRURL:    cfg.BaiduOCRURL,
		Language:  cfg.BaiduOCRLanguage,
		Timeout:   cfg.HTTPTimeout(),
	}, executor)
	tokens := baidu.NewTokenStore(baiduClient)
	recognizer := baidu.NewRecognizer(baiduClient)

	grader := deepseek.NewGrader(deepseek.New(deepseek.Config{
		APIKey:      cfg.DeepSeekAPIKey,
		BaseURL:     cfg.DeepSeekURL,
		Model:       cfg.DeepSeekModel,
		Temperature: cfg.DeepSeekTemperature,
		Timeout:     cfg.HTTPTimeout(),
	}, executor))

	source := localfs.New(cfg.InputDir)

	var pacer ports.Pacer = pacing.None{}
	if cfg.PaceInterval > 0 {
		pacer = pacing.NewInterval(cfg.PaceInterval)
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	jsonSink := report.NewJSONFile(cfg.OutputFile)
	console := report.NewConsole(stdout, jsonSink.Path())
	sinks := report.NewFanout(logger).
		Required("json", jsonSink).
		Required("console", console)
	observers := []ports.RunObserver{console}

	if cfg.OutputXLSX != "" {
		sinks.BestEffort("xlsx", report.NewWorkbook(cfg.OutputXLSX))
	}

	var archive *postgres.RunRepository
	if cfg.PostgresDSN != "" {
		db, err := openArchive(ctx, cfg.PostgresDSN)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, func() { _ = db.Close() })
		archive = postgres.NewRunRepository(db)
		if err := archive.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		sinks.BestEffort("postgres", report.Archive(archive))
	}

	if cfg.NATSURL != "" {
		notifier, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			Logger:             logger,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init run notifier: %w", err)
		}
		closers = append(closers, notifier.Close)
		sinks.BestEffort("nats", report.Notify(notifier))
	}

	if cfg.MetricsPushgatewayURL != "" {
		batchMetrics := metrics.NewBatchMetrics(serviceName)
		observers = append(observers, batchMetrics)
		sinks.BestEffort("pushgateway", metrics.NewPusher(batchMetrics, cfg.MetricsPushgatewayURL, ""))
	}

	gradeUC := usecase.NewGradeBatchUseCase(
		tokens, recognizer, grader, source, sinks, pacer, gradingRubric,
		usecase.WithObservers(observers...),
		usecase.WithLogger(logger),
		usecase.WithInputDir(cfg.InputDir),
	)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Rubric:      gradingRubric,
		Source:      source,
		Credentials: tokens,
		Archive:     archive,
		GradeUC:     gradeUC,
		closeFn:     closeAll,
	}, nil
}

// OpenArchive connects only the results archive, for commands that read history.
func OpenArchive(ctx context.Context, dsn string) (*postgres.RunRepository, func(), error) {
	if dsn == "" {
		return nil, nil, domain.WrapError(domain.ErrConfig, "open archive", fmt.Errorf("POSTGRES_DSN is not set"))
	}
	db, err := openArchive(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewRunRepository(db), func() { _ = db.Close() }, nil
}

func openArchive(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := postgres.OpenDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.RateLimits = map[string]float64{
		"baidu.ocr":     cfg.OCRQPS,
		"deepseek.chat": cfg.LLMQPS,
	}
	out.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	out.BreakerFailureRatio = cfg.BreakerFailureRatio
	if cfg.BreakerOpenTimeoutSeconds > 0 {
		out.BreakerOpenTimeout = time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second
	}
	return out
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

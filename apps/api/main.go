package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BelowZeroPortfolio/school-scan-sub002/apps/api/echo"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/class"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/enrollment"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/schoolyear"
	"github.com/BelowZeroPortfolio/school-scan-sub002/services/logger"
	"github.com/BelowZeroPortfolio/school-scan-sub002/services/metrics"
	"github.com/BelowZeroPortfolio/school-scan-sub002/services/notify"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database/inmem"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database/sqlboiler"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/database/sqlx"
	"github.com/BelowZeroPortfolio/school-scan-sub002/storage/session/redis"
)

const (
	shutdownTimeout  = 10 * time.Second
	notifyInterval   = time.Minute
	janitorInterval  = 10 * time.Minute
	memoryDBEngine   = "memory"
	redisSessionKind = "redis"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	logger := logsvc.New(log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	dbLogger := logsvc.New(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up DB & repos
	db, repos, closeDB, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up session store
	sessions, err := setUpSessions(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up placement sessions: %v", err), err)
	}

	// set up notifications
	var notifier core.Notifier
	if conf.Debug || conf.SendgridApiKey == "" {
		notifier = notifysvc.NewConsoleNotifier(log.New(os.Stdout, "NOTIFY : ", log.LstdFlags))
	} else {
		notifier = notifysvc.NewSendgridNotifier(conf)
	}
	queue := notifysvc.NewQueue(notifier, logger, conf.Notify.MaxAttempts)
	go queue.Run(ctx, notifyInterval)

	// set up metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// set up services
	yearSvc := schoolyear.NewService(db, repos.Years)
	classSvc := class.NewService(repos.Classes, repos.Years)
	enrollmentSvc := enrollment.NewService(db, repos.Enrollments, repos.Classes, repos.Years, repos.Students)
	placementSvc := placement.NewService(db, repos, logger, queue, metricsvc.NewPlacementRecorder(reg))

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		YearSvc:       yearSvc,
		ClassSvc:      classSvc,
		EnrollmentSvc: enrollmentSvc,
		PlacementSvc:  placementSvc,
		Sessions:      sessions,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}

	if n := len(queue.NeedsAttention()); n > 0 {
		logger.Warn(fmt.Sprintf("%d notifications were not delivered", n))
	}
}

// setUpDB opens the postgres database and brings its schema up to date, or starts an empty
// in-memory store when the engine is "memory".
func setUpDB(ctx context.Context, conf *core.Config) (core.Transactor, placement.Repositories, func() error, error) {
	if conf.Database.Engine == memoryDBEngine {
		mem := inmemdb.Open()
		return mem, placement.Repositories{
			Students:    inmemdb.NewStudentRepository(mem),
			Classes:     inmemdb.NewClassRepository(mem),
			Years:       inmemdb.NewSchoolYearRepository(mem),
			Enrollments: inmemdb.NewEnrollmentRepository(mem),
			Reports:     inmemdb.NewPlacementRepository(mem),
		}, func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, placement.Repositories{}, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, placement.Repositories{}, nil, err
	}
	if err = database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, placement.Repositories{}, nil, err
	}
	return database.NewTransactor(db), placement.Repositories{
		Students:    sqlxrepos.NewStudentRepository(db),
		Classes:     sqlxrepos.NewClassRepository(db),
		Years:       sqlxrepos.NewSchoolYearRepository(db),
		Enrollments: sqlxrepos.NewEnrollmentRepository(db),
		Reports:     boiledrepos.NewPlacementRepository(db),
	}, db.Close, nil
}

func setUpSessions(ctx context.Context, conf *core.Config) (placement.SessionStore, error) {
	if conf.Placement.SessionStore == redisSessionKind {
		client, err := redisstore.Connect(ctx, conf.Redis)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, conf.Placement.SessionTTL), nil
	}
	ms := placement.NewMemoryStore(conf.Placement.SessionTTL)
	go ms.RunJanitor(ctx, janitorInterval)
	return ms, nil
}

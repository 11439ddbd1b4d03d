package dig_container

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/8ddieHu0314/Course-Mapper-sub000/apps/api/echo"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/campus"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/catalog"
	"github.com/8ddieHu0314/Course-Mapper-sub000/core/schedule"
	cachesvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/cache"
	"github.com/8ddieHu0314/Course-Mapper-sub000/services/cornell"
	emailsvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/email"
	logsvc "github.com/8ddieHu0314/Course-Mapper-sub000/services/logger"
	"github.com/8ddieHu0314/Course-Mapper-sub000/services/maps"
	"github.com/8ddieHu0314/Course-Mapper-sub000/storage/buildings"
	"github.com/8ddieHu0314/Course-Mapper-sub000/storage/database"
	inmemdb "github.com/8ddieHu0314/Course-Mapper-sub000/storage/database/inmem"
	sqlxrepos "github.com/8ddieHu0314/Course-Mapper-sub000/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParam struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	CatalogSvc  catalog.ServiceInterface
	CampusSvc   campus.ServiceInterface
	ScheduleSvc schedule.ServiceInterface
	Validate    *validator.Validate
	Translator  ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stdout, "API", conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stdout, "DB", conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newScheduleRepository returns the repository of `database.engine`.
// The returned core.DB is nil with the memory engine.
func newScheduleRepository(conf *core.Config, loggerParam DBLoggerParam) (schedule.Repository, core.DB) {
	if conf.Database.Engine == "memory" {
		loggerParam.Logger.Warn("using the in-memory database: schedules are lost on restart")
		return inmemdb.NewScheduleRepository(inmemdb.Open()), nil
	}

	setUp := func() (core.DB, error) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return sqlxrepos.NewScheduleRepository(db), db
}

func newCacheStore(conf *core.Config, logger core.Logger) (cachesvc.Store, io.Closer) {
	return cachesvc.NewStore(conf, logger)
}

func newGazetteer(conf *core.Config, logger core.Logger) *buildings.Gazetteer {
	g, err := buildings.Load(conf.Campus.BuildingsFile, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading buildings: %v", err), err)
	}
	return g
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(p serverParam) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		CatalogSvc:  p.CatalogSvc,
		CampusSvc:   p.CampusSvc,
		ScheduleSvc: p.ScheduleSvc,
		Validate:    p.Validate,
		Translator:  p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewValidator))
	must(c.Provide(newEmailService))

	// storage & caches
	must(c.Provide(newScheduleRepository))
	must(c.Provide(newCacheStore))
	must(c.Provide(cachesvc.New, dig.As(new(catalog.Cache), new(campus.Cache))))
	must(c.Provide(newGazetteer))
	must(c.Provide(func(g *buildings.Gazetteer) campus.Buildings { return g }))

	// upstream APIs
	must(c.Provide(cornell.NewClient, dig.As(new(catalog.Source))))
	must(c.Provide(maps.NewClient, dig.As(new(campus.Maps))))

	// domain services
	must(c.Provide(catalog.NewService, dig.As(new(catalog.ServiceInterface), new(schedule.Catalog))))
	must(c.Provide(campus.NewService, dig.As(new(campus.ServiceInterface), new(schedule.Walker))))
	must(c.Provide(schedule.NewService, dig.As(new(schedule.ServiceInterface))))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

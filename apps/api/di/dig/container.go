package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/dissertrack/apps/api/echo"
	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/evaluation"
	"github.com/trezcool/dissertrack/core/meeting"
	"github.com/trezcool/dissertrack/core/project"
	"github.com/trezcool/dissertrack/core/user"
	emailsvc "github.com/trezcool/dissertrack/services/email"
	logsvc "github.com/trezcool/dissertrack/services/logger"
	"github.com/trezcool/dissertrack/storage/database"
	inmemdb "github.com/trezcool/dissertrack/storage/database/inmem"
	sqlxrepos "github.com/trezcool/dissertrack/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// DBCloser releases the storage backend.
	DBCloser func() error

	Repositories struct {
		dig.Out
		Users       user.Repository
		Projects    project.Repository
		Meetings    meeting.Repository
		Evaluations evaluation.Repository
		Close       DBCloser
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newRepositories opens the storage backend picked by conf.Storage.
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Storage == "memory" {
		loggerParam.Logger.Warn("using in-memory storage: data is lost on shutdown")
		db := inmemdb.NewDB()
		return Repositories{
			Users:       inmemdb.NewUserRepository(db),
			Projects:    inmemdb.NewProjectRepository(db),
			Meetings:    inmemdb.NewMeetingRepository(db),
			Evaluations: inmemdb.NewEvaluationRepository(db),
			Close:       func() error { return nil },
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}
	return Repositories{
		Users:       sqlxrepos.NewUserRepository(db),
		Projects:    sqlxrepos.NewProjectRepository(db),
		Meetings:    sqlxrepos.NewMeetingRepository(db),
		Evaluations: sqlxrepos.NewEvaluationRepository(db),
		Close:       db.Close,
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newNotifier(conf *core.Config, broker *meeting.Broker, usrSvc user.Service, mailSvc core.EmailService, logger core.Logger) *meeting.Notifier {
	return meeting.StartNotifier(broker, usrSvc, mailSvc, logger, conf.Meetings.SubscriberBuffer)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	broker *meeting.Broker,
	usrSvc user.Service,
	prjSvc project.Service,
	mtgSvc meeting.Service,
	evlSvc evaluation.Service,
	validate *validator.Validate,
	translator ut.Translator,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		Broker:        broker,
		UserSvc:       usrSvc,
		ProjectSvc:    prjSvc,
		MeetingSvc:    mtgSvc,
		EvaluationSvc: evlSvc,
		Validate:      validate,
		Translator:    translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(core.NewValidator))
	must(c.Provide(meeting.NewBroker))
	must(c.Provide(user.NewService))
	must(c.Provide(project.NewService))
	must(c.Provide(meeting.NewService))
	must(c.Provide(evaluation.NewService))
	must(c.Provide(newNotifier))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

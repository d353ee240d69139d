package digcontainer

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/diario/apps/api/echo"
	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
	emailsvc "github.com/trezcool/diario/services/email"
	logsvc "github.com/trezcool/diario/services/logger"
	"github.com/trezcool/diario/storage/database"
	"github.com/trezcool/diario/storage/database/inmem"
	sqlxrepos "github.com/trezcool/diario/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is the class store selected by core.Config.Storage.
type Storage struct {
	Repository attendance.Repository
	Classes    attendance.ClassSaver
	close      func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newStorage(conf *core.Config, validate *validator.Validate, loggerParam DBLoggerParam) *Storage {
	var (
		store *Storage
		err   error
	)
	switch conf.Storage {
	case core.StorageInMem:
		store, err = newInMemStorage(conf, validate)
	case core.StoragePostgres:
		store, err = newPostgresStorage(conf)
	default:
		err = errors.Errorf("unknown storage %q", conf.Storage)
	}
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	loggerParam.Logger.Info("storage ready: " + conf.Storage)
	return store
}

func newInMemStorage(conf *core.Config, validate *validator.Validate) (*Storage, error) {
	db, err := inmemdb.Open()
	if err != nil {
		return nil, err
	}
	repo := inmemdb.NewClassRepository(db)

	if conf.SeedFile != "" {
		classes, err := database.LoadClasses(conf.SeedFile, validate)
		if err != nil {
			return nil, errors.Wrap(err, "seeding inmem storage")
		}
		if _, err = database.SaveClasses(context.Background(), repo, classes); err != nil {
			return nil, errors.Wrap(err, "seeding inmem storage")
		}
	}
	return &Storage{Repository: repo, Classes: repo}, nil
}

func newPostgresStorage(conf *core.Config) (*Storage, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}

	repo := sqlxrepos.NewClassRepository(db)
	return &Storage{Repository: repo, Classes: repo, close: db.Close}, nil
}

func newRepository(store *Storage) attendance.Repository {
	return store.Repository
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	return emailsvc.NewService(conf, logger, log.New(os.Stdout, "MAIL : ", log.LstdFlags))
}

// newValidator returns a validator with every app validator registered.
func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(newStorage))
	must(c.Provide(newRepository))
	must(c.Provide(newEmailService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

package main

import (
	"database/sql"
	"io"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/diario/core"
	"github.com/trezcool/diario/core/attendance"
	emailsvc "github.com/trezcool/diario/services/email"
	logsvc "github.com/trezcool/diario/services/logger"
	"github.com/trezcool/diario/storage/database"
	"github.com/trezcool/diario/storage/database/inmem"
	sqlxrepos "github.com/trezcool/diario/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	defer logger.Close()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)

	db, repo, saver, err := openStorage(conf, validate)
	if err != nil {
		logger.Fatal("setting up storage: "+err.Error(), err)
	}
	if db != nil {
		defer db.Close()
	}

	mailSvc := emailsvc.NewService(conf, logger, log.New(os.Stdout, "MAIL : ", log.LstdFlags))

	// start CLI
	cli := commandLine{
		db:       db,
		svc:      attendance.NewService(repo, logger, mailSvc, conf),
		saver:    saver,
		validate: validate,
		out:      os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("error: "+err.Error(), err)
		}
		logger.Close()
		os.Exit(1)
	}
}

// openStorage returns the configured store. db is nil unless the storage is postgres.
func openStorage(conf *core.Config, validate *validator.Validate) (db *sql.DB, repo attendance.Repository, saver attendance.ClassSaver, err error) {
	switch conf.Storage {
	case core.StoragePostgres:
		if err = database.CreateIfNotExist(conf); err != nil {
			return nil, nil, nil, err
		}
		xdb, err := database.Open(conf)
		if err != nil {
			return nil, nil, nil, err
		}
		r := sqlxrepos.NewClassRepository(xdb)
		return xdb.DB, r, r, nil

	case core.StorageInMem:
		mdb, err := inmemdb.Open()
		if err != nil {
			return nil, nil, nil, err
		}
		r := inmemdb.NewClassRepository(mdb)
		if conf.SeedFile != "" {
			if err = importFile(r, validate, conf.SeedFile, io.Discard); err != nil {
				return nil, nil, nil, err
			}
		}
		return nil, r, r, nil

	default:
		return nil, nil, nil, errors.Errorf("unknown storage %q", conf.Storage)
	}
}

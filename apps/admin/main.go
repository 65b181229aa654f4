package main

import (
	"log"
	"os"

	"github.com/trezcool/dissertrack/core"
	logsvc "github.com/trezcool/dissertrack/services/logger"
	"github.com/trezcool/dissertrack/storage/database"
	sqlxrepos "github.com/trezcool/dissertrack/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed: "+err.Error(), err)
		}
		db.Close()
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
	logsvc "github.com/trezcool/dissertrack/services/logger"
	"github.com/trezcool/dissertrack/services/meetingapi"
	"github.com/trezcool/dissertrack/storage/localstore"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	client, err := meetingapi.NewClient(conf.Client, logger)
	if err != nil {
		logger.Fatal("creating API client", err)
	}

	store, err := localstore.Open(conf.Meetings.StorePath, logger)
	if err != nil {
		logger.Fatal("opening local store", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli := commandLine{
		conf:   conf,
		logger: logger,
		client: client,
		recent: meeting.NewRecentStore(store, logger),
		out:    os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	stop()
	if cErr := store.Close(); cErr != nil {
		logger.Error("closing local store", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error("portal command failed: "+err.Error(), err)
		}
		os.Exit(1)
	}
}

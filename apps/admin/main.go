package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/session"
	"github.com/saber-pedagogico/saber/core/store"
	logsvc "github.com/saber-pedagogico/saber/services/logger"
	"github.com/saber-pedagogico/saber/storage"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	kv, err := storage.Open(conf.Storage)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening %s storage: %v", conf.Storage.Driver, err), err)
	}
	st := store.New(store.Options{
		Storage: kv,
		Codec:   session.NewCodec(conf.SecretKey, conf.AppName, conf.SessionTTL),
		Logger:  logger,
	})

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		store:    st,
		validate: validate,
		in:       os.Stdin,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	if cErr := st.Close(); cErr != nil {
		logger.Error("closing storage", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		os.Exit(1)
	}
}

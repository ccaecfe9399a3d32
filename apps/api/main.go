package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/saber-pedagogico/saber/apps/api/echo"
	"github.com/saber-pedagogico/saber/core"
	"github.com/saber-pedagogico/saber/core/access"
	"github.com/saber-pedagogico/saber/core/billing"
	"github.com/saber-pedagogico/saber/core/pedagogy"
	"github.com/saber-pedagogico/saber/core/school"
	"github.com/saber-pedagogico/saber/core/session"
	"github.com/saber-pedagogico/saber/core/store"
	aisvc "github.com/saber-pedagogico/saber/services/ai"
	emailsvc "github.com/saber-pedagogico/saber/services/email"
	logsvc "github.com/saber-pedagogico/saber/services/logger"
	paymentsvc "github.com/saber-pedagogico/saber/services/payment"
	"github.com/saber-pedagogico/saber/storage"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	storeLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	storeLogger.Enable(!conf.Debug)

	// set up the store
	kv, err := storage.Open(conf.Storage)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening %s storage: %v", conf.Storage.Driver, err), err)
	}
	st := store.New(store.Options{
		Storage:   kv,
		Codec:     session.NewCodec(conf.SecretKey, conf.AppName, conf.SessionTTL),
		Logger:    storeLogger,
		AuthDelay: conf.AuthDelay,
	})
	defer func() {
		if err = st.Close(); err != nil {
			storeLogger.Error("Failed to close", err)
		}
	}()

	unsubscribe := st.Subscribe(func(state school.AppState) {
		storeLogger.Debug(fmt.Sprintf("state changed: %d users, %d classes, %d students",
			len(state.Users), len(state.Classes), len(state.Students)))
	})
	defer unsubscribe()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, os.Stdout, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	analyzer := pedagogy.NewAnalyzer(st, aisvc.NewGemini(conf.Gemini, logger), logger)
	billingSvc := billing.NewService(paymentsvc.NewMercadoPago(conf.MercadoPago), st, mailSvc, logger, conf.PublicURL)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	if conf.SecretKey == "" {
		logger.Warn("SECRET_KEY is empty: session tokens are unsigned")
	}
	if conf.Gemini.ApiKey == "" {
		logger.Warn("Gemini API key is not set: AI features answer with placeholders")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	if conf.Server.DebugHost != "" {
		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		go func() {
			if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Store:      st,
			Policy:     access.NewPolicy(conf.Access.AdminEmails...),
			Analyzer:   analyzer,
			Billing:    billingSvc,
			Validate:   validate,
			Translator: translator,
		},
	)
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

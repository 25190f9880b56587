package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"pension-calculation-engine/internal/config"
	"pension-calculation-engine/internal/engine"
	"pension-calculation-engine/internal/handler"
	"pension-calculation-engine/internal/schemeregistry"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(os.Getenv("PENSION_CONFIG"))
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(level)
	}

	schemes := schemeregistry.New(
		cfg.SchemeRegistry.BaseURL,
		cfg.SchemeRegistry.FetchTimeoutDuration(),
		cfg.SchemeRegistry.JoinTimeoutDuration(),
		schemeregistry.NewRateCache(),
		log,
	)

	h := handler.New(engine.New(schemes), int64(cfg.Server.MaxConcurrentCalculations), log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.WithFields(logrus.Fields{
		"addr":            addr,
		"scheme_registry": schemes.Enabled(),
	}).Info("pension calculation engine starting")

	if err := fasthttp.ListenAndServe(addr, h.Handle); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}

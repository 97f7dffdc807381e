package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mr-tron/base58/base58"
	"github.com/sirupsen/logrus"

	"github.com/barcode-pay/pos-server/pkg/pos/config"
	"github.com/barcode-pay/pos-server/pkg/pos/event"
	"github.com/barcode-pay/pos-server/pkg/pos/payment"
	"github.com/barcode-pay/pos-server/pkg/pos/server"
	"github.com/barcode-pay/pos-server/pkg/solana"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logrus.StandardLogger().WithField("type", "main")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	sc := solana.NewWithTimeout(cfg.RPCEndpoint, cfg.RPCTimeout)

	bridge := event.NewBridge()

	var opts []payment.ProvisionerOption
	if cfg.EmitAfterConfirm {
		opts = append(opts, payment.WithEmitMode(payment.EmitAfterConfirm))
	}
	provisioner := payment.NewProvisioner(sc, bridge, cfg.Mint, opts...)
	builder := payment.NewBuilder(sc, cfg.Mint, cfg.MerchantWallet, cfg.MerchantKey, cfg.Price)

	router := chi.NewRouter()
	server.New(cfg.Label, bridge, provisioner, builder, cfg.RateLimit).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.ListenAddr,
			"merchant": base58.Encode(cfg.MerchantWallet),
			"mint":     base58.Encode(cfg.Mint),
		}).Info("listening")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown did not complete cleanly")
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"voiceshop/internal/config"
	"voiceshop/internal/db"
	"voiceshop/internal/httpserver"
	"voiceshop/internal/payments"
	customerrepo "voiceshop/internal/repository/customer"
	orderrepo "voiceshop/internal/repository/order"
	productrepo "voiceshop/internal/repository/product"
	callsvc "voiceshop/internal/service/calls"
	checkoutsvc "voiceshop/internal/service/checkout"
	"voiceshop/internal/telephony"
	"voiceshop/internal/voiceagent"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	customerRepo := customerrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	productRepo := productrepo.NewPostgres(dbpool)

	telephonyClient := telephony.NewClient(cfg.TelephonyAPIBase, cfg.TelephonyAccountSID, cfg.TelephonyAuthToken, logger)
	agentClient := voiceagent.NewClient(cfg.VoiceAgentAPIBase, cfg.VoiceAgentAPIKey, logger)
	paymentsClient := payments.NewClient(cfg.PaymentAPIBase, cfg.PaymentSecretKey, logger)

	callsService := callsvc.New(callsvc.Config{
		AccountSID:         cfg.TelephonyAccountSID,
		AuthToken:          cfg.TelephonyAuthToken,
		FromNumber:         cfg.TelephonyFromNumber,
		PublicBaseURL:      cfg.PublicBaseURL,
		AgentAPIKey:        cfg.VoiceAgentAPIKey,
		AgentID:            cfg.VoiceAgentID,
		WithStatusCallback: true,
	}, telephonyClient, agentClient, logger)

	checkoutService := checkoutsvc.New(customerRepo, orderRepo, paymentsClient, cfg.StorefrontOrigin, logger)

	srv := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Calls:    callsService,
		Checkout: checkoutService,
		Products: productRepo,
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}

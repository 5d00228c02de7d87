package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/tendant/simple-presign/internal/logging"
	"github.com/tendant/simple-presign/pkg/simplepresign"
	"github.com/tendant/simple-presign/pkg/simplepresign/config"
	"github.com/tendant/simple-presign/pkg/simplepresign/gateway"
)

func main() {
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		slog.Error("Failed to load configuration", "err", err)
		os.Exit(1)
	}

	logging.Setup(os.Stdout, cfg.LogLevel, cfg.Environment)

	// The function answers with an upload URL only.
	svc, err := cfg.BuildService(context.Background(), simplepresign.WithDownloadURL(false))
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	slog.Info("Presign function ready", "backend", svc.Backend().Name())
	lambda.Start(gateway.NewHandler(svc).Handle)
}

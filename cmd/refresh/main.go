// Command refresh is the scheduled Lambda that renews the Guesty access token.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"integrity-responder/handler"
	"integrity-responder/internal/config"
	"integrity-responder/internal/integrations/guesty"
	"integrity-responder/internal/integrations/paramstore"
	"integrity-responder/internal/repository"
	"integrity-responder/internal/usecase"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.KeyPostgresURL, config.KeyParamPrefix)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}

	db, err := repository.Open(cfg.PostgresDSN)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	store, err := repository.New(db)
	if err != nil {
		slog.Error("failed to create store", "err", err)
		os.Exit(1)
	}

	guestyClient, err := guesty.NewClient(ssmClient, cfg.ParamPrefix, guesty.WithAuthBaseURL(cfg.GuestyAuthBaseURL))
	if err != nil {
		slog.Error("failed to create Guesty client", "err", err)
		os.Exit(1)
	}
	tokens, err := usecase.NewTokenService(store, guestyClient)
	if err != nil {
		slog.Error("failed to create token service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewScheduledHandler(tokens)
	if err != nil {
		slog.Error("failed to create scheduled handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

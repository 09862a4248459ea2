package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"integrity-responder/handler"
	"integrity-responder/internal/config"
	"integrity-responder/internal/integrations/guesty"
	"integrity-responder/internal/integrations/paramstore"
	"integrity-responder/internal/integrations/vapi"
	"integrity-responder/internal/repository"
	"integrity-responder/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(config.KeyPostgresURL, config.KeyParamPrefix)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
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
	if cfg.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			slog.Error("failed to migrate database", "err", err)
			os.Exit(1)
		}
	}
	store, err := repository.New(db)
	if err != nil {
		slog.Error("failed to create store", "err", err)
		os.Exit(1)
	}

	var recorder usecase.ToolCallRecorder = store
	if cfg.ToolCallTable != "" {
		recorder, err = repository.NewDynamoToolCallStore(awsdynamodb.NewFromConfig(awsCfg), cfg.ToolCallTable)
		if err != nil {
			slog.Error("failed to create tool call table client", "err", err)
			os.Exit(1)
		}
	}

	guestyClient, err := guesty.NewClient(ssmClient, cfg.ParamPrefix,
		guesty.WithAPIBaseURL(cfg.GuestyAPIBaseURL),
		guesty.WithAuthBaseURL(cfg.GuestyAuthBaseURL),
	)
	if err != nil {
		slog.Error("failed to create Guesty client", "err", err)
		os.Exit(1)
	}
	vapiClient, err := vapi.NewClient(ssmClient, cfg.ParamPrefix, vapi.WithBaseURL(cfg.VapiBaseURL))
	if err != nil {
		slog.Error("failed to create Vapi client", "err", err)
		os.Exit(1)
	}

	// ---- Use cases ----
	tokens, err := usecase.NewTokenService(store, guestyClient)
	if err != nil {
		slog.Error("failed to create token service", "err", err)
		os.Exit(1)
	}
	listings, err := usecase.NewListingService(tokens, guestyClient)
	if err != nil {
		slog.Error("failed to create listing service", "err", err)
		os.Exit(1)
	}
	dispatcher, err := usecase.NewDispatcher(listings, recorder, cfg.MaxToolCalls)
	if err != nil {
		slog.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}
	inbox, err := usecase.NewInboxService(store, cfg.InboxLimit)
	if err != nil {
		slog.Error("failed to create inbox service", "err", err)
		os.Exit(1)
	}
	bot, err := usecase.NewBotService(store)
	if err != nil {
		slog.Error("failed to create bot service", "err", err)
		os.Exit(1)
	}
	properties, err := usecase.NewPropertyService(store)
	if err != nil {
		slog.Error("failed to create property service", "err", err)
		os.Exit(1)
	}
	assistant, err := usecase.NewAssistantService(vapiClient, cfg.AssistantPrompt, cfg.PublicBaseURL)
	if err != nil {
		slog.Error("failed to create assistant service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(handler.Deps{
		Tokens:     tokens,
		Inbox:      inbox,
		Bot:        bot,
		Properties: properties,
		Functions:  dispatcher,
		Assistant:  assistant,
	})
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

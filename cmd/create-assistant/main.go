// Command create-assistant registers the voice assistant with Vapi and prints
// the platform response.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"integrity-responder/internal/config"
	"integrity-responder/internal/integrations/paramstore"
	"integrity-responder/internal/integrations/vapi"
	"integrity-responder/internal/usecase"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("create assistant failed", "err", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	cfg, err := config.Load(config.KeyParamPrefix)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	fs := flag.NewFlagSet("create-assistant", flag.ContinueOnError)
	baseURL := fs.String("base-url", cfg.PublicBaseURL, "public base URL of the deployed API")
	prompt := fs.String("prompt", cfg.AssistantPrompt, "system prompt for the assistant")
	printOnly := fs.Bool("print", false, "print the assistant definition without creating it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *printOnly {
		a, err := vapi.LoadAssistant(*prompt, *baseURL)
		if err != nil {
			return fmt.Errorf("load assistant definition: %w", err)
		}
		return printJSON(stdout, a)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return fmt.Errorf("create SSM client: %w", err)
	}
	vapiClient, err := vapi.NewClient(ssmClient, cfg.ParamPrefix, vapi.WithBaseURL(cfg.VapiBaseURL))
	if err != nil {
		return fmt.Errorf("create Vapi client: %w", err)
	}
	assistant, err := usecase.NewAssistantService(vapiClient, *prompt, *baseURL)
	if err != nil {
		return fmt.Errorf("create assistant service: %w", err)
	}

	out, err := assistant.Create(ctx)
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}
	return printJSON(stdout, out)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

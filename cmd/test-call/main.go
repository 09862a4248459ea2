// Command test-call places an outbound call from an existing assistant.
package main

import (
	"context"
	"encoding/json"
	"errors"
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
)

var errUsage = errors.New("usage: test-call -assistant-id <id> -phone <+15550100>")

type callCreator interface {
	CreateCall(ctx context.Context, in vapi.CallRequest) (json.RawMessage, error)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		slog.Error("test call failed", "err", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("test-call", flag.ContinueOnError)
	assistantID := fs.String("assistant-id", "", "assistant to place the call from (required)")
	phone := fs.String("phone", "", "number to call, E.164 (required)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *assistantID == "" || *phone == "" {
		return errUsage
	}

	cfg, err := config.Load(config.KeyParamPrefix)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
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
	client, err := vapi.NewClient(ssmClient, cfg.ParamPrefix, vapi.WithBaseURL(cfg.VapiBaseURL))
	if err != nil {
		return fmt.Errorf("create Vapi client: %w", err)
	}
	return placeCall(ctx, client, vapi.CallRequest{AssistantID: *assistantID, PhoneNumber: *phone}, stdout)
}

func placeCall(ctx context.Context, client callCreator, in vapi.CallRequest, stdout io.Writer) error {
	out, err := client.CreateCall(ctx, in)
	if err != nil {
		return fmt.Errorf("create call: %w", err)
	}

	var pretty any
	if err := json.Unmarshal(out, &pretty); err != nil {
		_, err = fmt.Fprintln(stdout, string(out))
		return err
	}
	data, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

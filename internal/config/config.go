// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	KeyPostgresURL       = "POSTGRES_URL"
	KeyParamPrefix       = "PARAM_PREFIX"
	KeyPublicBaseURL     = "PUBLIC_BASE_URL"
	KeyAssistantPrompt   = "ASSISTANT_PROMPT"
	KeyToolCallTable     = "TOOL_CALL_TABLE"
	KeyMaxToolCalls      = "MAX_TOOL_CALLS"
	KeyInboxLimit        = "INBOX_LIMIT"
	KeyAutoMigrate       = "AUTO_MIGRATE"
	KeyGuestyAPIBaseURL  = "GUESTY_API_BASE_URL"
	KeyGuestyAuthBaseURL = "GUESTY_AUTH_BASE_URL"
	KeyVapiBaseURL       = "VAPI_BASE_URL"
)

type Config struct {
	PostgresDSN       string
	ParamPrefix       string
	PublicBaseURL     string
	AssistantPrompt   string
	ToolCallTable     string
	MaxToolCalls      int
	InboxLimit        int
	AutoMigrate       bool
	GuestyAPIBaseURL  string
	GuestyAuthBaseURL string
	VapiBaseURL       string
}

// Load reads every setting. Keys listed in required must be non-empty; the
// error names all of the missing ones.
func Load(required ...string) (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}

	missing := lo.Filter(required, func(key string, _ int) bool {
		return strings.TrimSpace(os.Getenv(key)) == ""
	})
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: required environment variables not set: %s", strings.Join(missing, ", "))
	}

	cfg := Config{
		ParamPrefix:       envString(KeyParamPrefix, ""),
		PublicBaseURL:     envString(KeyPublicBaseURL, ""),
		AssistantPrompt:   os.Getenv(KeyAssistantPrompt),
		ToolCallTable:     envString(KeyToolCallTable, ""),
		MaxToolCalls:      envInt(KeyMaxToolCalls, 1),
		InboxLimit:        envInt(KeyInboxLimit, 50),
		AutoMigrate:       envBool(KeyAutoMigrate, false),
		GuestyAPIBaseURL:  envString(KeyGuestyAPIBaseURL, ""),
		GuestyAuthBaseURL: envString(KeyGuestyAuthBaseURL, ""),
		VapiBaseURL:       envString(KeyVapiBaseURL, ""),
	}
	if raw := envString(KeyPostgresURL, ""); raw != "" {
		dsn, err := PostgresDSN(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.PostgresDSN = dsn
	}
	return cfg, nil
}

// LoadDotEnv loads a local .env file for development. It does nothing inside
// Lambda or when the file does not exist; existing variables win.
func LoadDotEnv(paths ...string) error {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		return nil
	}
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

// PostgresDSN requires TLS unless the connection string already chooses an
// sslmode. Both URL and keyword/value forms are accepted.
func PostgresDSN(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("config: postgres url is empty")
	}

	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("config: parse postgres url: %w", err)
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "require")
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	if strings.Contains(raw, "sslmode=") {
		return raw, nil
	}
	return raw + " sslmode=require", nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

package vapi

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"integrity-responder/internal/domain"
)

//go:embed assistant.yaml
var assistantDefinition []byte

// ToolCallsPath is where the platform posts tool calls for this assistant.
const ToolCallsPath = "/api/vapi/tool-calls"

type Assistant struct {
	Name         string `yaml:"name" json:"name"`
	Model        Model  `yaml:"model" json:"model"`
	Voice        Voice  `yaml:"voice" json:"voice"`
	FirstMessage string `yaml:"firstMessage" json:"firstMessage"`
	ServerURL    string `yaml:"serverUrl" json:"serverUrl"`
}

type Model struct {
	Provider    string               `yaml:"provider" json:"provider"`
	Model       string               `yaml:"model" json:"model"`
	Temperature float64              `yaml:"temperature" json:"temperature"`
	Functions   []Function           `yaml:"functions" json:"functions"`
	Messages    []domain.ChatMessage `yaml:"messages" json:"messages,omitempty"`
}

type Function struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Parameters  Schema `yaml:"parameters" json:"parameters"`
}

// Schema is the JSON-schema subset used for function parameters.
type Schema struct {
	Type        string            `yaml:"type" json:"type"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Properties  map[string]Schema `yaml:"properties" json:"properties,omitempty"`
	Required    []string          `yaml:"required" json:"required,omitempty"`
}

type Voice struct {
	Provider string `yaml:"provider" json:"provider"`
	VoiceID  string `yaml:"voiceId" json:"voiceId"`
}

// LoadAssistant parses the embedded assistant definition and fills in the
// system prompt and the tool-call callback URL.
func LoadAssistant(prompt, publicBaseURL string) (Assistant, error) {
	publicBaseURL = strings.TrimRight(strings.TrimSpace(publicBaseURL), "/")
	if publicBaseURL == "" {
		return Assistant{}, errors.New("vapi: public base url must not be empty")
	}

	var a Assistant
	dec := yaml.NewDecoder(bytes.NewReader(assistantDefinition))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil {
		return Assistant{}, fmt.Errorf("vapi: parse assistant definition: %w", err)
	}

	if prompt = strings.TrimSpace(prompt); prompt != "" {
		a.Model.Messages = []domain.ChatMessage{{Role: "system", Content: prompt}}
	}
	a.ServerURL = publicBaseURL + ToolCallsPath
	return a, nil
}

package domain

// ChatMessage is a role/content pair as the voice platform expects it inside an
// assistant model definition.
type ChatMessage struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

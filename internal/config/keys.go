package config

import (
	"os"
	"path/filepath"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// Keys holds credential material loaded from a permissive JSON5 keys.json
// file, kept separate from the main YAML config file.
type Keys struct {
	OpenAIAPIKey    string `json:"openai_api_key"`
	AnthropicAPIKey string `json:"anthropic_api_key"`
	GeminiAPIKey    string `json:"gemini_api_key"`
	GatewayToken    string `json:"gateway_token"`
	SlackBotToken   string `json:"slack_bot_token"`
	SlackAppToken   string `json:"slack_app_token"`
	AuditDatabaseURL string `json:"audit_database_url"`
	SpacesProjectSecret string `json:"spaces_project_secret"`
}

// keysJSONPath returns the conventional keys.json path alongside a config
// file, e.g. config.yaml -> keys.json in the same directory.
func keysJSONPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "keys.json")
}

// LoadKeys parses a JSON5 keys file. JSON5 tolerates comments and trailing
// commas, which operators find easier to hand-edit than strict JSON.
func LoadKeys(path string) (*Keys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var k Keys
	if err := json5.Unmarshal(data, &k); err != nil {
		return nil, err
	}
	return &k, nil
}

func applyKeys(cfg *Config, keys *Keys) {
	if keys == nil {
		return
	}
	if keys.OpenAIAPIKey != "" {
		cfg.Models.OpenAIAPIKey = keys.OpenAIAPIKey
	}
	if keys.AnthropicAPIKey != "" {
		cfg.Models.AnthropicAPIKey = keys.AnthropicAPIKey
	}
	if keys.GeminiAPIKey != "" {
		cfg.Models.GeminiAPIKey = keys.GeminiAPIKey
	}
	if keys.GatewayToken != "" {
		cfg.Tools.GatewayToken = keys.GatewayToken
	}
	if keys.SlackBotToken != "" {
		cfg.Channel.SlackBotToken = keys.SlackBotToken
	}
	if keys.SlackAppToken != "" {
		cfg.Channel.SlackAppToken = keys.SlackAppToken
	}
	if keys.AuditDatabaseURL != "" {
		cfg.Audit.DatabaseURL = keys.AuditDatabaseURL
	}
	if keys.SpacesProjectSecret != "" {
		cfg.Spaces.ProjectSecret = keys.SpacesProjectSecret
	}
}

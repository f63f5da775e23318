// Package backend builds the chat model an interview talks to. Configuration
// comes from a JSON file with environment overrides; the endpoint policy
// refuses plaintext endpoints unless they are loopback or explicitly allowed.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"
)

// Config holds everything needed to reach an OpenAI-compatible endpoint.
type Config struct {
	APIKey string `json:"api_key"`
	// BaseURL overrides the default endpoint, e.g. for a proxy or a local
	// inference server. Empty uses the provider default.
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	// AllowInsecure permits plain HTTP to non-loopback hosts.
	AllowInsecure bool `json:"allow_insecure"`
}

// LoadConfig reads a JSON config file, then applies environment overrides:
// PARLEY_API_KEY, PARLEY_BASE_URL and PARLEY_MODEL, with OPENAI_API_KEY as
// the API key fallback. A .env file in the working directory is honored.
// Path may be empty to configure from the environment alone.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()
	conf := &Config{}
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := sonic.Unmarshal(file, conf); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if v := os.Getenv("PARLEY_API_KEY"); v != "" {
		conf.APIKey = v
	}
	if conf.APIKey == "" {
		conf.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("PARLEY_BASE_URL"); v != "" {
		conf.BaseURL = v
	}
	if v := os.Getenv("PARLEY_MODEL"); v != "" {
		conf.Model = v
	}
	return conf, nil
}

// Validate checks the config and applies the endpoint policy.
func (c *Config) Validate() error {
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	if c.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if !c.AllowInsecure && !isLoopback(u.Hostname()) {
			return fmt.Errorf("plain http endpoint %q refused; set allow_insecure to override", c.BaseURL)
		}
	default:
		return fmt.Errorf("unsupported base_url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", c.BaseURL)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// NewChatModel validates the config and connects the chat model.
func NewChatModel(ctx context.Context, conf *Config) (model.ToolCallingChatModel, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  conf.APIKey,
		Model:   conf.Model,
		BaseURL: conf.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return cm, nil
}

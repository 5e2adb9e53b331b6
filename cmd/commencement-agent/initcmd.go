package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/usfca-its/commencement-agent/internal/config"
)

func initCmd(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	providerType := fs.String("provider", "anthropic", "Model provider: anthropic|openai")
	model := fs.String("model", "", "Model name (default: provider-specific)")
	baseURL := fs.String("base-url", "", "Provider base URL override")
	rosterPath := fs.String("roster", "", "YAML student roster path (default: built-in fixture roster)")
	logFormat := fs.String("log-format", "text", "Log format: json|text")
	logLevel := fs.String("log-level", "info", "Log level: debug|info|warn|error")
	_ = fs.Parse(args)

	ptype := strings.ToLower(strings.TrimSpace(*providerType))
	modelName := strings.TrimSpace(*model)
	if modelName == "" {
		switch ptype {
		case "anthropic":
			modelName = "claude-sonnet-4-20250514"
		case "openai":
			modelName = "gpt-4o"
		}
	}

	cfg := &config.Config{
		RosterPath: strings.TrimSpace(*rosterPath),
		LogFormat:  *logFormat,
		LogLevel:   *logLevel,
		AI: config.AIConfig{
			Providers: []config.AIProvider{{
				ID:      ptype,
				Name:    providerDisplayName(ptype),
				Type:    ptype,
				BaseURL: strings.TrimSpace(*baseURL),
				Models:  []config.AIProviderModel{{ModelName: modelName, IsDefault: true}},
			}},
		},
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(*cfgPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Config written: %s\n", filepath.Clean(*cfgPath))

	key, err := promptAPIKey(ptype)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read API key: %v\n", err)
		os.Exit(1)
	}
	if key == "" {
		fmt.Println("No API key stored. Set one later via the provider environment variable.")
		return
	}
	secrets := config.NewSecretsStore(config.DefaultSecretsPath())
	if err := secrets.SetAIProviderAPIKey(ptype, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store API key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("API key stored: %s\n", secrets.Path())
}

func providerDisplayName(ptype string) string {
	switch ptype {
	case "anthropic":
		return "Anthropic"
	case "openai":
		return "OpenAI"
	default:
		return ptype
	}
}

// promptAPIKey reads the key without echo when stdin is a terminal, and
// falls back to a plain line read otherwise (piped input).
func promptAPIKey(providerID string) (string, error) {
	fmt.Printf("API key for %s (leave empty to skip): ", providerID)
	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}

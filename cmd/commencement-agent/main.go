package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/usfca-its/commencement-agent/internal/config"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
	// BuildTime is set via -ldflags at build time.
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "init":
		initCmd(os.Args[2:])
	case "chat":
		chatCmd(os.Args[2:])
	case "review":
		reviewCmd(os.Args[2:])
	case "version":
		fmt.Printf("commencement-agent %s (%s) %s\n", Version, Commit, BuildTime)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `commencement-agent

Usage:
  commencement-agent init [flags]
  commencement-agent chat [flags]
  commencement-agent review [flags]
  commencement-agent version

Commands:
  init      Write a starter config file and store the provider API key.
  chat      Start a student chat session for commencement exception requests.
  review    Open the registrar review worklist.
  version   Print build information.

`)
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "run 'commencement-agent init' first\n")
		os.Exit(1)
	}
	return cfg
}

func newLogger(format string, level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		lvl = slog.LevelInfo
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("unknown log format: %s", format)
	}

	return slog.New(h), nil
}

// apiKeyFor resolves the provider API key: the secrets file first, then the
// conventional environment variable for the provider type.
func apiKeyFor(secrets *config.SecretsStore, provider *config.AIProvider) (string, error) {
	key, ok, err := secrets.GetAIProviderAPIKey(provider.ID)
	if err != nil {
		return "", err
	}
	if ok {
		return key, nil
	}
	envVar := ""
	switch strings.ToLower(strings.TrimSpace(provider.Type)) {
	case "anthropic":
		envVar = "ANTHROPIC_API_KEY"
	case "openai":
		envVar = "OPENAI_API_KEY"
	}
	if envVar != "" {
		if key := strings.TrimSpace(os.Getenv(envVar)); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("no API key for provider %q: run 'commencement-agent init' or set %s", provider.ID, envVar)
}

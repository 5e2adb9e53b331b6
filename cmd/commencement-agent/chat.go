package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/usfca-its/commencement-agent/internal/agent"
	"github.com/usfca-its/commencement-agent/internal/banner"
	"github.com/usfca-its/commencement-agent/internal/config"
	"github.com/usfca-its/commencement-agent/internal/request"
	"github.com/usfca-its/commencement-agent/internal/sso"
)

func chatCmd(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	user := fs.String("user", os.Getenv("COMMENCEMENT_SSO_USER"), "Authenticated SSO username (env: COMMENCEMENT_SSO_USER)")
	model := fs.String("model", "", "Model wire id <provider>/<model> (default: configured default)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*user) == "" {
		fmt.Fprintf(os.Stderr, "missing -user (or COMMENCEMENT_SSO_USER)\n")
		os.Exit(2)
	}

	cfg := loadConfig(filepath.Clean(*cfgPath))
	logger, err := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	identity, err := sso.Assert(*user)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign-in failed: %v\n", err)
		os.Exit(1)
	}

	var directory banner.Directory
	if cfg.RosterPath != "" {
		d, err := banner.LoadDirectory(cfg.RosterPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load roster: %v\n", err)
			os.Exit(1)
		}
		directory = d
	} else {
		directory = banner.NewFixtureDirectory()
	}

	store, err := request.Open(cfg.EffectiveStorePath(*cfgPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open request store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	modelID := strings.TrimSpace(*model)
	if modelID == "" {
		id, ok := cfg.AI.DefaultModelID()
		if !ok {
			fmt.Fprintf(os.Stderr, "no default model configured\n")
			os.Exit(1)
		}
		modelID = id
	}
	if !cfg.AI.IsAllowedModelID(modelID) {
		fmt.Fprintf(os.Stderr, "model %q is not in the configured allow-list\n", modelID)
		os.Exit(1)
	}
	providerID, modelName, _ := strings.Cut(modelID, "/")
	providerCfg, ok := cfg.AI.ProviderByID(providerID)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown provider %q\n", providerID)
		os.Exit(1)
	}

	secrets := config.NewSecretsStore(config.DefaultSecretsPath())
	apiKey, err := apiKeyFor(secrets, providerCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	provider, err := agent.NewProvider(providerCfg.Type, apiKey, providerCfg.BaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init provider: %v\n", err)
		os.Exit(1)
	}

	toolkit := &agent.Toolkit{
		Username:  identity.Username,
		Directory: directory,
		Store:     store,
		OutputDir: cfg.EffectiveOutputDir(*cfgPath),
		Logger:    logger,
	}
	registry := agent.NewRegistry()
	if err := toolkit.RegisterAll(registry); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register tools: %v\n", err)
		os.Exit(1)
	}

	session, err := agent.NewSession(agent.SessionOptions{
		Provider:      provider,
		Model:         modelName,
		Registry:      registry,
		Store:         store,
		Username:      identity.Username,
		MaxToolRounds: cfg.AI.EffectiveMaxToolRounds(),
		Logger:        logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start session: %v\n", err)
		os.Exit(1)
	}

	// Returning students pick up their stored conversation.
	if rec, err := store.GetByUsername(context.Background(), identity.Username); err == nil && len(rec.Transcript) > 0 {
		session.SeedHistory(rec.Transcript)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	fmt.Println("USF Commencement Exception Request Assistant")
	fmt.Printf("Signed in as %s. Type 'exit' to leave, 'status' to check your request.\n\n", identity.Username)

	reply, err := session.Start(ctx)
	if !printReply(reply, err) {
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		reply, err := session.Turn(ctx, line)
		if !printReply(reply, err) {
			os.Exit(1)
		}
		if ctx.Err() != nil {
			break
		}
	}
	fmt.Println("\nGoodbye!")
}

// printReply writes the assistant reply, or the failure, to the student.
// It returns false when the session cannot continue.
func printReply(reply string, err error) bool {
	if err == nil {
		fmt.Printf("\nassistant> %s\n\n", reply)
		return true
	}
	var transient *agent.TransientBackendError
	if errors.As(err, &transient) {
		fmt.Printf("\nassistant> %s\n\n", transient.UserMessage)
		return true
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	fmt.Fprintf(os.Stderr, "session error: %v\n", err)
	return false
}

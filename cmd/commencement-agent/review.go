package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/usfca-its/commencement-agent/internal/config"
	"github.com/usfca-its/commencement-agent/internal/request"
	"github.com/usfca-its/commencement-agent/internal/review"
)

func reviewCmd(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	reviewer := fs.String("reviewer", "", "Reviewer name recorded on decisions (default: Registrar Staff)")
	_ = fs.Parse(args)

	cfg := loadConfig(filepath.Clean(*cfgPath))
	logger, err := newLogger(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	store, err := request.Open(cfg.EffectiveStorePath(*cfgPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open request store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	svc, err := review.NewService(store, cfg.EffectiveOutputDir(*cfgPath), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init review service: %v\n", err)
		os.Exit(1)
	}

	runReviewLoop(context.Background(), svc, strings.TrimSpace(*reviewer), bufio.NewReader(os.Stdin))
}

func runReviewLoop(ctx context.Context, svc *review.Service, reviewer string, in *bufio.Reader) {
	rule := strings.Repeat("=", 65)
	for {
		q, err := svc.Load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load queue: %v\n", err)
			return
		}
		m := q.Stats()

		fmt.Println()
		fmt.Println(rule)
		fmt.Println("  USF Registrar's Office - Commencement Exception Review")
		fmt.Println(rule)
		fmt.Printf("  Pending: %d  |  Decided: %d (approved %d, denied %d)\n\n", m.Pending, m.Decided, m.Approved, m.Denied)

		all := q.All()
		if len(all) == 0 {
			fmt.Println("  No requests in the system.")
		}
		if len(q.Pending) > 0 {
			fmt.Println("  PENDING REQUESTS:")
			for i, rec := range q.Pending {
				fmt.Println(review.SummaryLine(&rec, i+1))
			}
			fmt.Println()
		}
		if len(q.Decided) > 0 {
			fmt.Println("  DECIDED REQUESTS:")
			for i, rec := range q.Decided {
				fmt.Println(review.SummaryLine(&rec, len(q.Pending)+i+1))
			}
			fmt.Println()
		}

		fmt.Println("  Commands: [#] review/view a request, [R] refresh, [Q] quit")
		raw, ok := prompt(in, "  > ")
		if !ok {
			return
		}
		choice := strings.ToUpper(raw)
		switch {
		case choice == "Q":
			fmt.Println("\n  Goodbye!")
			return
		case choice == "R" || choice == "":
			continue
		default:
			idx, err := strconv.Atoi(choice)
			if err != nil || idx < 1 || idx > len(all) {
				fmt.Println("  Invalid input.")
				continue
			}
			reviewOne(ctx, svc, all[idx-1].ID, reviewer, in)
		}
	}
}

func reviewOne(ctx context.Context, svc *review.Service, id string, reviewer string, in *bufio.Reader) {
	rec, err := svc.Open(ctx, id, reviewer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  failed to open request: %v\n", err)
		return
	}
	fmt.Println(review.Detail(rec))

	if !rec.Status.Active() {
		reviewDecided(ctx, svc, rec, reviewer, in)
		return
	}

	fmt.Println("  Actions: [A] Approve, [D] Deny, [C] Cancel")
	decision, ok := prompt(in, "  Decision (A/D/C): ")
	if !ok {
		return
	}
	var approve bool
	switch strings.ToUpper(decision) {
	case "A":
		approve = true
	case "D":
		approve = false
	default:
		fmt.Println("  Cancelled.")
		return
	}

	rationale := ""
	for rationale == "" {
		line, ok := prompt(in, "  Rationale (required): ")
		if !ok {
			return
		}
		rationale = line
	}

	decided, err := svc.Decide(ctx, rec.ID, approve, reviewer, rationale)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  decision failed: %v\n", err)
		return
	}
	fmt.Printf("\n  Request %s.\n", decided.Status)
	fmt.Printf("  Student %s will be notified at %s.\n", decided.StudentName, decided.Email)

	maybeGenerateDocument(ctx, svc, decided.ID, reviewer, in)
}

// reviewDecided offers the post-decision actions on an already decided
// request: advancing the cap-and-gown order and regenerating the document.
func reviewDecided(ctx context.Context, svc *review.Service, rec *request.Record, reviewer string, in *bufio.Reader) {
	if _, ok := request.NextFulfillment(rec.Fulfillment); ok {
		answer, ok := prompt(in, "  Advance fulfillment status? (y/N): ")
		if !ok {
			return
		}
		if strings.ToUpper(answer) == "Y" {
			updated, err := svc.AdvanceFulfillment(ctx, rec.ID, reviewer)
			if err != nil {
				fmt.Fprintf(os.Stderr, "  failed to advance fulfillment: %v\n", err)
				return
			}
			fmt.Printf("  Fulfillment status is now %s.\n", updated.Fulfillment)
		}
	}
	maybeGenerateDocument(ctx, svc, rec.ID, reviewer, in)
}

func maybeGenerateDocument(ctx context.Context, svc *review.Service, id string, reviewer string, in *bufio.Reader) {
	answer, ok := prompt(in, "  Generate record document now? (Y/n): ")
	if !ok || strings.ToUpper(answer) == "N" {
		return
	}
	path, err := svc.GenerateDocument(ctx, id, reviewer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  failed to generate document: %v\n", err)
		return
	}
	fmt.Printf("  Document saved to: %s\n", path)
}

// prompt reads one line; ok is false once stdin is exhausted.
func prompt(in *bufio.Reader, label string) (string, bool) {
	fmt.Print(label)
	line, err := in.ReadString('\n')
	if err != nil && line == "" {
		return "", false
	}
	return strings.TrimSpace(line), true
}

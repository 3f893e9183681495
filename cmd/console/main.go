package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"dataagentjp.io/querycore/core/config"
	"dataagentjp.io/querycore/internal/catalog"
	"dataagentjp.io/querycore/internal/domain"
	"dataagentjp.io/querycore/internal/masterdata"
	"dataagentjp.io/querycore/internal/nlq"
	"dataagentjp.io/querycore/internal/prevalidate"
	"dataagentjp.io/querycore/internal/resolver"
)

// The console previews the parse → validate → resolve pipeline against the
// bundled metadata files without touching any backend. It never executes
// the SQL it prints.
func main() {
	ctx := context.Background()

	// Keep stdout clean for SQL; only warnings reach the terminal
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fileSource := catalog.NewFileSource(cfg.MetadataPath)
	loader := catalog.NewLoader(catalog.LoaderParams{
		SystemID:       cfg.SystemID,
		Dialect:        cfg.Datasource,
		ConceptSources: []catalog.ConceptSource{fileSource},
		IntentSources:  []catalog.IntentSource{fileSource},
		BindingSources: []catalog.BindingSource{fileSource},
		TableSources:   []catalog.TableSource{fileSource},
	})

	catalogHolder := catalog.NewHolder(loader)
	if err := catalogHolder.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog from %s: %v\n", cfg.MetadataPath, err)
		os.Exit(1)
	}

	masterHolder := masterdata.NewHolder(masterdata.NewLoader(
		masterdata.NewFileSource(cfg.MetadataPath),
	))
	if err := masterHolder.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load master data: %v\n", err)
		os.Exit(1)
	}

	aliases := resolver.DefaultAliases()
	for name, target := range cfg.Parser.IntentAliases {
		aliases[name] = target
	}

	// Rule stage only; the console stays useful with no LLM running
	parser := nlq.New(nlq.Params{
		Catalog:        catalogHolder,
		RuleThreshold:  cfg.Parser.RuleThreshold,
		ConfidenceGate: cfg.Parser.ConfidenceGate,
		CacheSize:      cfg.Parser.CacheSize,
		CacheTTL:       cfg.Parser.CacheTTL,
		MaxResults:     cfg.MaxResults,
	})

	validator := prevalidate.New(prevalidate.Params{
		Catalog:        catalogHolder,
		Master:         masterHolder,
		Aliases:        aliases,
		ConfidenceGate: cfg.Parser.ConfidenceGate,
	})

	res := resolver.New(resolver.Params{
		Catalog:        catalogHolder,
		Dialect:        cfg.Datasource,
		Aliases:        aliases,
		ConfidenceGate: cfg.Parser.ConfidenceGate,
		MaxLimit:       cfg.MaxResults,
		FallbackBucket: cfg.DuckDB.S3Bucket,
	})

	counts := catalogHolder.Current().Counts()
	fmt.Fprintf(os.Stderr, "Query console ready (dialect=%s, concepts=%d, intents=%d, bindings=%d)\n",
		cfg.Datasource, counts.Concepts, counts.Intents, counts.Bindings)
	fmt.Fprintln(os.Stderr, "Enter a question (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" || query == "q" {
			break
		}

		parsed := parser.Parse(ctx, query)
		fmt.Fprintf(os.Stderr, "intent: %s (confidence=%.2f, stage=%s)\n",
			parsed.Intent, parsed.Confidence, parsed.Stage)
		for name, value := range parsed.Params {
			fmt.Fprintf(os.Stderr, "  param %s = %s\n", name, value.String())
		}

		if d := validator.Check(parsed); d != nil {
			printDiagnostic(d)
			continue
		}

		resolution, diag := res.Resolve(ctx, resolver.Request{NLQ: query, Parsed: parsed})
		fmt.Fprintf(os.Stderr, "states: %s\n", stateTrace(resolution.StateHistory))
		if diag != nil {
			printDiagnostic(diag)
			continue
		}

		for _, m := range resolution.Matched {
			fmt.Fprintf(os.Stderr, "  matched %s = %s (%s)\n", m.Concept, m.Value.String(), m.Source)
		}
		if resolution.Partition != nil {
			fmt.Fprintf(os.Stderr, "  partition %s..%s\n", resolution.Partition.Start, resolution.Partition.End)
		}

		fmt.Println(resolution.SQL)
		if resolution.CountSQL != "" {
			fmt.Fprintf(os.Stderr, "count: %s\n", resolution.CountSQL)
		}
		fmt.Println()
	}

	fmt.Fprintln(os.Stderr, "Goodbye!")
}

func printDiagnostic(d *domain.Diagnostic) {
	fmt.Fprintf(os.Stderr, "Error [%s]: %s\n", d.Code, d.Message)
	for _, s := range d.Suggestions {
		fmt.Fprintf(os.Stderr, "  hint: %s\n", s)
	}
}

func stateTrace(states []domain.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

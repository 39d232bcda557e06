// Command sumjudge runs a batch of source documents through every
// configured generation policy and scores each output with a judge model.
//
// Items are read from a JSONL file (one {"source_text", "reference_text"}
// object per line), processed sequentially with per-item fan-out across run
// configurations, and written as JSONL results. SIGINT cancels
// cooperatively: in-flight calls finish but their results are discarded and
// no further items are claimed.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mgmancho/sumjudge/internal/batch"
	"github.com/mgmancho/sumjudge/internal/config"
	"github.com/mgmancho/sumjudge/internal/domain"
	"github.com/mgmancho/sumjudge/internal/llm"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sumjudge failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present; missing files are fine.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "sumjudge.yaml", "path to the YAML configuration file")
		itemsPath  = flag.String("items", "", "path to the JSONL items file")
		outPath    = flag.String("out", "results.jsonl", "path for the JSONL results file")
		listModels = flag.String("list-models", "", "query the endpoint's model listing and exit")
		judgeAll   = flag.Bool("judge-all", false, "re-judge every existing non-error result after processing")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log)

	if warning := cfg.WeightWarning(); warning != "" {
		slog.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(ctx, cfg.ClientConfig())
	if err != nil {
		return err
	}

	if *listModels != "" {
		models, err := client.ListModels(ctx, *listModels, os.Getenv("SUMJUDGE_API_KEY"))
		if err != nil {
			return err
		}
		for _, id := range models {
			fmt.Println(id)
		}
		return nil
	}

	if *itemsPath == "" {
		return fmt.Errorf("missing required -items flag")
	}

	store := batch.NewStore()
	count, err := loadItems(store, *itemsPath)
	if err != nil {
		return err
	}
	slog.Info("batch loaded", "items", count, "configurations", len(cfg.Runs))

	orch := batch.NewOrchestrator(store, client, cfg.JudgeSettings())
	orch.OnItemDone = func(item domain.WorkItem) {
		slog.Info("item done", "id", item.ID, "results", len(item.Results), "evaluations", len(item.Evaluations))
	}

	if err := orch.ProcessBatch(ctx, cfg.Runs, cfg.Criteria); err != nil {
		if ctx.Err() != nil {
			slog.Warn("batch interrupted, writing partial results")
		} else {
			return err
		}
	}

	if *judgeAll && ctx.Err() == nil {
		judged, failed, err := orch.JudgeAll(ctx, cfg.Runs, cfg.Criteria)
		if err != nil && ctx.Err() == nil {
			return err
		}
		slog.Info("judge-all finished", "judged", judged, "failed", failed)
	}

	return writeResults(store, cfg.Runs, *outPath)
}

// setupLogging installs the slog handler selected by configuration.
func setupLogging(cfg config.LogConfig) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// loadItems reads the JSONL items file into the store and returns how many
// items were added.
func loadItems(store *batch.Store, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open items file: %w", err)
	}
	defer func() { _ = f.Close() }()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec struct {
			SourceText    string `json:"source_text"`
			ReferenceText string `json:"reference_text"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return count, fmt.Errorf("invalid items line %d: %w", count+1, err)
		}

		item, err := domain.NewWorkItem(rec.SourceText, rec.ReferenceText)
		if err != nil {
			return count, fmt.Errorf("invalid items line %d: %w", count+1, err)
		}
		store.Add(item)
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("failed reading items file: %w", err)
	}
	return count, nil
}

// writeResults exports the finished collection as JSONL.
func writeResults(store *batch.Store, configs []domain.RunConfiguration, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create results file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	if err := batch.ExportJSONL(w, store.Items(), configs); err != nil {
		return err
	}
	return w.Flush()
}

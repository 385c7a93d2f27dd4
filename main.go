package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/schollz/progressbar/v3"

	"github.com/mfreitas/taxpilot/answer"
	"github.com/mfreitas/taxpilot/config"
	"github.com/mfreitas/taxpilot/corpus"
	"github.com/mfreitas/taxpilot/database"
	"github.com/mfreitas/taxpilot/embeddings"
	"github.com/mfreitas/taxpilot/eval"
	"github.com/mfreitas/taxpilot/index"
	"github.com/mfreitas/taxpilot/llm"
	"github.com/mfreitas/taxpilot/qa"
	"github.com/mfreitas/taxpilot/retrieval"
	"github.com/mfreitas/taxpilot/store"
	"github.com/mfreitas/taxpilot/tone"
)

const questionTimeout = 90 * time.Second

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ingest":
		ingestCmd(logger, os.Args[2:])
	case "chat":
		chatCmd(logger, os.Args[2:])
	case "ask":
		askCmd(logger, os.Args[2:])
	case "clear":
		clearCmd(logger, os.Args[2:])
	case "minetone":
		minetoneCmd(logger, os.Args[2:])
	case "calibrate":
		calibrateCmd(logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// pipeline holds the process-wide clients shared by every query.
type pipeline struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	store   *store.Postgres
	idx     *index.Index
	service *qa.Service
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *log.Logger) (*pipeline, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres connection: %w", err)
	}

	vectorStore := store.NewPostgres(pool)

	embedder := embeddings.NewRateLimited(
		embeddings.NewOpenAIEmbedder(embeddings.Options{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.EmbeddingModel,
			Dimension: cfg.Collection.Dimension,
			Timeout:   cfg.OpenAITimeout(),
		}),
		cfg.Embeddings.RequestsPerSecond,
	)

	generator := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Timeout:     cfg.OpenAITimeout(),
		Temperature: cfg.Sampling.Temperature,
		MaxTokens:   cfg.Sampling.MaxTokens,
		TopP:        cfg.Sampling.TopP,
	})

	// The tone classifier uses the same model with tightly constrained
	// sampling: deterministic and just enough tokens for a label name.
	toneClient := llm.NewOpenAIClient(llm.Options{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.ChatModel,
		Timeout:     cfg.OpenAITimeout(),
		Temperature: 0,
		MaxTokens:   15,
		TopP:        1,
	})

	classifier := tone.NewClassifier(toneClient, tone.NewFileSink(cfg.Tone.FeedbackLog), logger)
	retriever := retrieval.New(vectorStore, embedder, logger)
	answerer := answer.NewSafe(generator, logger)

	defaults := retrieval.Options{
		K:              cfg.Retrieval.K,
		ScoreThreshold: cfg.Retrieval.ScoreThreshold,
		Diversify:      cfg.Retrieval.Diversify,
		Lambda:         cfg.Retrieval.Lambda,
	}

	return &pipeline{
		cfg:     cfg,
		pool:    pool,
		store:   vectorStore,
		idx:     index.New(vectorStore, embedder, cfg.Collection.Dimension, logger),
		service: qa.NewService(classifier, retriever, answerer, cfg.Collection.Name, defaults, logger),
	}, nil
}

func (p *pipeline) Close() {
	p.pool.Close()
}

func (p *pipeline) syncDocuments(ctx context.Context, docs []index.SourceDocument, showProgress bool) (index.SyncResult, error) {
	if err := p.idx.EnsureCollection(ctx, p.cfg.Collection.Name, store.Metric(p.cfg.Collection.Metric)); err != nil {
		return index.SyncResult{}, fmt.Errorf("ensure collection: %w", err)
	}

	if showProgress {
		bar := progressbar.Default(int64(len(docs)), "indexing documents")
		p.idx.Progress = func(done, total int) {
			_ = bar.Add(1)
		}
		defer func() { p.idx.Progress = nil }()
	}

	return p.idx.Sync(ctx, p.cfg.Collection.Name, docs)
}

func loadDocuments(dir string, logger *log.Logger) ([]index.SourceDocument, error) {
	if dir == "" {
		return corpus.SampleDocuments(), nil
	}
	return corpus.LoadDirectory(dir, logger)
}

func ingestCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := flags.String("config", "", "path to config file")
	dataDir := flags.String("dir", "", "directory with txt/md/pdf documents (default: built-in sample set)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.Close()

	docs, err := loadDocuments(*dataDir, logger)
	if err != nil {
		logger.Fatalf("load documents: %v", err)
	}

	result, err := p.syncDocuments(ctx, docs, true)
	if err != nil {
		logger.Fatalf("sync failed: %v", err)
	}

	color.Green("inserted %d, unchanged %d, failed %d", result.Inserted, result.Unchanged, len(result.Failures))
	for _, failure := range result.Failures {
		color.Red("  %s: %v", failure.ExternalID, failure.Err)
	}
}

func chatCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := flags.String("config", "", "path to config file")
	dataDir := flags.String("dir", "", "directory with documents to index on startup")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse chat flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.Close()

	// Startup sync is cheap to repeat: content addressing makes it a no-op
	// when nothing changed.
	docs, err := loadDocuments(*dataDir, logger)
	if err != nil {
		logger.Fatalf("load documents: %v", err)
	}
	if _, err := p.syncDocuments(ctx, docs, false); err != nil {
		logger.Fatalf("sync failed: %v", err)
	}

	color.Cyan("RAG pipeline ready! (type 'exit' or Ctrl+C to quit)")
	prompt := color.New(color.FgYellow, color.Bold)
	scanner := bufio.NewScanner(os.Stdin)

	for {
		prompt.Print("Question> ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if q := strings.ToLower(question); q == "exit" || q == "quit" {
			break
		}

		askCtx, cancelAsk := context.WithTimeout(ctx, questionTimeout)
		start := time.Now()
		resp, err := p.service.Ask(askCtx, question)
		elapsed := time.Since(start)
		cancelAsk()

		if err != nil {
			logger.Printf("question failed: %v", err)
			color.Red("Something went wrong, please try again.")
			continue
		}

		fmt.Println()
		fmt.Println("Answer:", resp.Answer)
		if len(resp.Sources) > 0 {
			fmt.Println("Sources:")
			for _, src := range resp.Sources {
				fmt.Printf("  [%s] %s\n", src.ExternalID, snippet(src.Text, 80))
			}
		}
		color.New(color.Faint).Printf("( %.2fs – detected tone: %s )\n", elapsed.Seconds(), resp.Tone)
		fmt.Println(strings.Repeat("-", 60))
	}

	if err := scanner.Err(); err != nil {
		logger.Printf("read input: %v", err)
	}
	color.Cyan("\nGoodbye!")
}

func askCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := flags.String("config", "", "path to config file")
	question := flags.String("question", "", "question to ask")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ask flags: %v", err)
	}
	if strings.TrimSpace(*question) == "" {
		logger.Fatal("ask requires --question")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.Close()

	if _, err := p.syncDocuments(ctx, corpus.SampleDocuments(), false); err != nil {
		logger.Fatalf("sync failed: %v", err)
	}

	askCtx, cancelAsk := context.WithTimeout(ctx, questionTimeout)
	defer cancelAsk()

	resp, err := p.service.Ask(askCtx, *question)
	if err != nil {
		logger.Fatalf("question failed: %v", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range resp.Sources {
			fmt.Printf("  [%s] %s\n", src.ExternalID, snippet(src.Text, 80))
		}
	}
}

func clearCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := flags.String("config", "", "path to config file")
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse clear flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	if !*confirmed {
		fmt.Printf("This will permanently delete collection %q. Continue? [y/N]: ", cfg.Collection.Name)
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			logger.Println("clear aborted")
			return
		}
		response := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if response != "y" && response != "yes" {
			logger.Println("clear aborted")
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if err := store.NewPostgres(pool).Reset(ctx, cfg.Collection.Name); err != nil {
		logger.Fatalf("reset collection: %v", err)
	}

	logger.Printf("collection %s removed", cfg.Collection.Name)
}

func minetoneCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("minetone", flag.ExitOnError)
	configPath := flags.String("config", "", "path to config file")
	logPath := flags.String("log", "", "feedback log to mine (default: configured tone log)")
	minFreq := flags.Int("min-freq", 2, "minimum term frequency to suggest")
	maxTerms := flags.Int("max-terms", 30, "maximum suggestions per label")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse minetone flags: %v", err)
	}

	path := *logPath
	if path == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("configuration: %v", err)
		}
		path = cfg.Tone.FeedbackLog
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Fatalf("open feedback log: %v", err)
	}
	defer f.Close()

	suggestions, err := tone.MineMarkers(f, nil, *minFreq, *maxTerms)
	if err != nil {
		logger.Fatalf("mine feedback log: %v", err)
	}

	for _, label := range []tone.Label{tone.Irritated, tone.Informal, tone.Formal} {
		terms := suggestions[label]
		if len(terms) == 0 {
			continue
		}
		color.Cyan("# ======= %s ======= #", strings.ToUpper(string(label)))
		fmt.Printf("%sMarkers = []string{\n", label)
		for _, term := range terms {
			fmt.Printf("\t%q,\n", term)
		}
		fmt.Println("}")
		fmt.Println()
	}
	fmt.Println("# Review and paste the terms above into the local marker sets.")
}

func calibrateCmd(logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("calibrate", flag.ExitOnError)
	configPath := flags.String("config", "", "path to config file")
	goldPath := flags.String("gold", "gold.jsonl", "path to JSONL gold set")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse calibrate flags: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("configuration: %v", err)
	}

	gold, err := eval.LoadGold(*goldPath)
	if err != nil {
		logger.Fatalf("load gold set: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.Close()

	if _, err := p.syncDocuments(ctx, corpus.SampleDocuments(), false); err != nil {
		logger.Fatalf("sync failed: %v", err)
	}

	ask := func(ctx context.Context, question string, k int, threshold float64) (string, error) {
		resp, err := p.service.AskWithOptions(ctx, question, retrieval.Options{
			K:              k,
			ScoreThreshold: threshold,
			Diversify:      cfg.Retrieval.Diversify,
			Lambda:         cfg.Retrieval.Lambda,
		})
		if err != nil {
			return "", err
		}
		return resp.Answer, nil
	}

	points, best, err := eval.Calibrate(ctx, ask, gold,
		[]int{4, 6, 8},
		[]float64{0.25, 0.30, 0.35, 0.40},
	)
	if err != nil {
		logger.Fatalf("calibration failed: %v", err)
	}

	for _, point := range points {
		fmt.Printf("k=%d, thr=%.2f -> %.2f%%\n", point.K, point.Threshold, point.Precision*100)
	}
	color.Green("\nbest combination: k=%d, thr=%.2f (%.2f%%)", best.K, best.Threshold, best.Precision*100)
}

func snippet(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

func printUsage() {
	fmt.Println("Usage: taxpilot <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  ingest     Index documents into the vector store (use --dir to override the sample set)")
	fmt.Println("  chat       Interactive question loop over the indexed documents")
	fmt.Println("  ask        Answer a single question (--question)")
	fmt.Println("  clear      Remove the configured collection")
	fmt.Println("  minetone   Suggest new tone markers from the escalation feedback log")
	fmt.Println("  calibrate  Sweep retrieval k/threshold against a gold set (--gold)")
}

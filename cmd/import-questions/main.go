package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"quizbank-backend/config"
	"quizbank-backend/events"
	"quizbank-backend/importer"
	"quizbank-backend/logger"
	"quizbank-backend/repository"
	"quizbank-backend/service"
	"quizbank-backend/topics"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	file := flag.String("file", "", "question file to import (.json, .csv, .tsv, .xlsx)")
	bucket := flag.String("bucket", string(importer.BucketHighConfidence), "bucket to bulk approve: all, high_confidence or selected")
	commit := flag.Bool("commit", false, "write approved questions to the corpus")
	batch := flag.Int("batch", 0, "commit batch size (default from IMPORT_BATCH_SIZE)")
	editor := flag.String("editor", "cli", "editor recorded on the import session")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables := topics.Tables{}
	if cfg.TopicsFile != "" {
		tables, err = topics.Load(cfg.TopicsFile)
	} else {
		tables, err = topics.Default()
	}
	if err != nil {
		log.Fatalf("Failed to load topic tables: %v", err)
	}

	opts := []service.ImportServiceOption{
		service.WithClassifier(importer.NewClassifier(tables)),
		service.WithPublisher(events.NewLogPublisher(appLog)),
		service.WithLogger(appLog),
		service.WithImportConfig(cfg.Import),
		service.WithSource("cli_import"),
	}

	switch cfg.CorpusDriver {
	case config.DriverSQLite:
		store, err := repository.NewSQLiteQuestionStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("Failed to open SQLite corpus: %v", err)
		}
		defer store.Close()
		opts = append(opts, service.WithQuestionStore(store))
	default:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()
		opts = append(opts,
			service.WithQuestionStore(repository.NewQuestionRepository(pool)),
			service.WithImportSessionRepository(repository.NewImportSessionRepository(pool)),
		)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	importService := service.NewImportService(opts...)
	started, err := importService.StartImport(ctx, service.StartImportRequest{
		Filename:  filepath.Base(*file),
		Data:      data,
		CreatedBy: *editor,
	})
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	sess := started.Session

	approved, err := sess.BulkApprove(importer.Bucket(*bucket))
	if err != nil {
		log.Fatalf("Bulk approve failed: %v", err)
	}

	counts := sess.Counts()
	fmt.Printf("\n📄 %s (session %s)\n", sess.Filename, sess.ID)
	fmt.Printf("   Candidates:       %d\n", counts.Candidates)
	fmt.Printf("   Exact duplicates: %d\n", counts.ExactDuplicates)
	fmt.Printf("   Near duplicates:  %d\n", counts.NearDuplicates)
	fmt.Printf("   Critical:         %d\n", counts.Critical)
	fmt.Printf("   Approved (%s): %d\n", *bucket, approved)

	if !*commit {
		fmt.Println("\nDry run: pass -commit to write approved questions")
		importService.Shutdown(ctx)
		return
	}

	result, err := importService.Commit(ctx, service.CommitRequest{
		SessionID: sess.ID,
		BatchSize: *batch,
	})
	if err != nil && result == nil {
		log.Fatalf("Commit failed: %v", err)
	}

	fmt.Printf("\n✅ Commit finished in %d batches\n", len(result.Batches))
	fmt.Printf("   Written: %d\n", result.Written)
	fmt.Printf("   Failed:  %d\n", result.Failed)
	fmt.Printf("   Skipped: %d\n", result.Skipped)
	if err != nil {
		fmt.Printf("   Stopped early: %v\n", err)
	}

	importService.Shutdown(context.Background())
	if result.Failed > 0 || err != nil {
		os.Exit(1)
	}
}

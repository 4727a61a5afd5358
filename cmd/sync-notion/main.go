package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/dvloznov/vehicle-tracker/internal/bootstrap"
	"github.com/dvloznov/vehicle-tracker/internal/config"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/notionsync"
)

func main() {
	log := logger.New()
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Load()
	log = logger.Configure(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	userID := flag.String("user", "", "User id whose data is exported (required)")
	notionToken := flag.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN)")
	txDB := flag.String("transactions-db", cfg.NotionTransactionsDB, "Notion database id for transactions")
	remDB := flag.String("reminders-db", cfg.NotionRemindersDB, "Notion database id for reminders")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	prune := flag.Bool("prune", false, "Archive pages whose transaction or reminder was deleted")
	flag.Parse()

	if *userID == "" {
		log.Fatal().Msg("Error: --user is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *txDB == "" && *remDB == "" {
		log.Fatal().Msg("Error: at least one of --transactions-db and --reminders-db is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	syncer := notionsync.NewSyncer(notionsync.NewNotionClient(*notionToken), st, notionsync.Options{
		TransactionsDB: *txDB,
		RemindersDB:    *remDB,
		DryRun:         *dryRun,
		Prune:          *prune,
	})

	report, err := syncer.Sync(ctx, *userID)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	prefix := ""
	if *dryRun {
		prefix = "[dry run] "
	}
	for _, line := range []struct {
		name string
		c    notionsync.Counts
	}{{"Transactions", report.Transactions}, {"Reminders", report.Reminders}} {
		fmt.Printf("%s%-12s created=%d updated=%d archived=%d failed=%d\n",
			prefix, line.name, line.c.Created, line.c.Updated, line.c.Archived, line.c.Failed)
	}
	if report.Transactions.Failed+report.Reminders.Failed > 0 {
		log.Fatal().Msg("Some pages failed to sync")
	}
	fmt.Println("Sync completed successfully.")
}

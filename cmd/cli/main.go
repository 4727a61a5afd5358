package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/vehicle-tracker/internal/auth"
	"github.com/dvloznov/vehicle-tracker/internal/bootstrap"
	"github.com/dvloznov/vehicle-tracker/internal/config"
	"github.com/dvloznov/vehicle-tracker/internal/dashboard"
	"github.com/dvloznov/vehicle-tracker/internal/domain"
	"github.com/dvloznov/vehicle-tracker/internal/logger"
	"github.com/dvloznov/vehicle-tracker/internal/money"
	"github.com/dvloznov/vehicle-tracker/internal/pipeline"
	"github.com/dvloznov/vehicle-tracker/internal/store"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env *cliEnv, args []string) error
}

var commands = []command{
	{"parse", "Parse free text into transactions, optionally saving them", runParse},
	{"add-vehicle", "Register a vehicle", runAddVehicle},
	{"list-vehicles", "List vehicles", runListVehicles},
	{"add-transaction", "Record a transaction by hand", runAddTransaction},
	{"list-transactions", "List transactions, newest first", runListTransactions},
	{"add-reminder", "Schedule a reminder", runAddReminder},
	{"list-reminders", "List reminders by due date", runListReminders},
	{"complete-reminder", "Mark a reminder completed", runCompleteReminder},
	{"dashboard", "Show dashboard statistics", runDashboard},
	{"attach", "Attach a local file to a transaction", runAttach},
	{"set-api-key", "Store the LLM API key for the user", runSetAPIKey},
}

// cliEnv is the opened backend shared by every command.
type cliEnv struct {
	cfg    *config.Config
	store  store.Store
	userID string
	log    zerolog.Logger
}

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	name := os.Args[1]
	if name == "help" || name == "-h" || name == "--help" {
		printUsage()
		return
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	cfg := config.Load()
	log = logger.Configure(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: os.Stderr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := bootstrap.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	userID := os.Getenv("CLI_USER_ID")
	if userID == "" {
		userID = "local"
	}
	env := &cliEnv{cfg: cfg, store: st, userID: userID, log: log}

	if err := cmd.run(auth.WithUserID(ctx, userID), env, os.Args[2:]); err != nil {
		log.Error().Err(err).Str("command", name).Msg("Command failed")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Vehicle Tracker CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	for _, c := range commands {
		fmt.Printf("  %-18s %s\n", c.name, c.usage)
	}
	fmt.Println("\nThe acting user is taken from CLI_USER_ID (default \"local\").")
	fmt.Println("Run 'cli <command> -h' for more information on a command.")
}

func runParse(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", "Free text describing transactions")
	vehicleID := fs.String("vehicle", "", "Vehicle id to save the transactions under")
	save := fs.Bool("save", false, "Save the parsed transactions")
	fs.Parse(args)

	if strings.TrimSpace(*text) == "" {
		return fmt.Errorf("--text is required")
	}
	if *save && *vehicleID == "" {
		return fmt.Errorf("--vehicle is required with --save")
	}

	completer, err := bootstrap.NewCompleter(env.cfg)
	if err != nil {
		return err
	}
	parsed, err := bootstrap.NewParser(env.cfg, completer, env.store).ParseTransactions(ctx, *text)
	if err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintln(w, "DATE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, p := range parsed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", p.Date, p.TransactionType, p.Category, p.Amount, p.Description)
	}
	w.Flush()

	if !*save || len(parsed) == 0 {
		return nil
	}
	res, err := pipeline.NewBulkPersister(env.store, env.cfg.BulkConcurrency).AddBulkTransactions(ctx, env.userID, *vehicleID, parsed)
	if err != nil {
		return err
	}
	fmt.Printf("\nSaved %d of %d transactions.\n", res.Succeeded, len(parsed))
	for _, it := range res.Items {
		if it.Error != "" {
			fmt.Printf("  #%d: %s\n", it.Index+1, it.Error)
		}
	}
	return nil
}

func runAddVehicle(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("add-vehicle", flag.ExitOnError)
	plate := fs.String("plate", "", "License plate")
	brand := fs.String("brand", "", "Brand")
	model := fs.String("model", "", "Model")
	year := fs.Int("year", 0, "Model year")
	fs.Parse(args)

	v := domain.Vehicle{LicensePlate: *plate, Brand: *brand, Model: *model, Year: *year}
	if err := v.Validate(); err != nil {
		return err
	}
	id, err := env.store.AddVehicle(ctx, env.userID, v)
	if err != nil {
		return err
	}
	fmt.Printf("Added vehicle %s (%s)\n", id, v.LicensePlate)
	return nil
}

func runListVehicles(ctx context.Context, env *cliEnv, args []string) error {
	vehicles, err := env.store.ListVehicles(ctx, env.userID)
	if err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tPLATE\tBRAND\tMODEL\tYEAR")
	for _, v := range vehicles {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", v.ID, v.LicensePlate, v.Brand, v.Model, v.Year)
	}
	return w.Flush()
}

func runAddTransaction(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("add-transaction", flag.ExitOnError)
	vehicleID := fs.String("vehicle", "", "Vehicle id")
	amount := fs.String("amount", "", "Amount, e.g. 150000, 150k or 1.2m")
	date := fs.String("date", "today", "Date as YYYY-MM-DD or today, yesterday, this week, last week")
	category := fs.String("category", string(domain.CategoryFuel), "Category")
	txType := fs.String("type", "", "Income or Expense; inferred from the category when empty")
	desc := fs.String("desc", "", "Description")
	fs.Parse(args)

	cat := domain.TransactionCategory(*category)
	tx := domain.Transaction{
		VehicleID:       *vehicleID,
		Amount:          money.ParseShorthand(*amount),
		Date:            pipeline.FormatDate(pipeline.ResolveDate(*date, time.Now())),
		Description:     *desc,
		Category:        cat,
		TransactionType: pipeline.ResolveTransactionType(*txType, cat),
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	id, err := env.store.AddTransaction(ctx, env.userID, tx)
	if err != nil {
		return err
	}
	fmt.Printf("Added transaction %s: %s %.2f on %s\n", id, tx.Category, tx.Amount, tx.Date)
	return nil
}

func runListTransactions(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("list-transactions", flag.ExitOnError)
	vehicleID := fs.String("vehicle", "", "Only transactions of this vehicle")
	fs.Parse(args)

	txs, err := env.store.ListTransactions(ctx, env.userID)
	if err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tDATE\tVEHICLE\tTYPE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, tx := range txs {
		if *vehicleID != "" && tx.VehicleID != *vehicleID {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n", tx.ID, tx.Date, tx.VehicleID, tx.TransactionType, tx.Category, tx.Amount, tx.Description)
	}
	return w.Flush()
}

func runAddReminder(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("add-reminder", flag.ExitOnError)
	vehicleID := fs.String("vehicle", "", "Vehicle id")
	kind := fs.String("type", string(domain.ReminderMaintenance), "Maintenance, Insurance or Registration")
	due := fs.String("due", "", "Due date, YYYY-MM-DD")
	desc := fs.String("desc", "", "Description")
	fs.Parse(args)

	r := domain.Reminder{VehicleID: *vehicleID, Type: domain.ReminderType(*kind), DueDate: *due, Description: *desc}
	if err := r.Validate(); err != nil {
		return err
	}
	id, err := env.store.AddReminder(ctx, env.userID, r)
	if err != nil {
		return err
	}
	fmt.Printf("Added reminder %s due %s\n", id, r.DueDate)
	return nil
}

func runListReminders(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("list-reminders", flag.ExitOnError)
	all := fs.Bool("all", false, "Include completed reminders")
	fs.Parse(args)

	reminders, err := env.store.ListReminders(ctx, env.userID)
	if err != nil {
		return err
	}
	w := newTable()
	fmt.Fprintln(w, "ID\tDUE\tVEHICLE\tTYPE\tDONE\tDESCRIPTION")
	for _, r := range reminders {
		if r.IsCompleted && !*all {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.DueDate, r.VehicleID, r.Type, r.IsCompleted, r.Description)
	}
	return w.Flush()
}

func runCompleteReminder(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("complete-reminder", flag.ExitOnError)
	id := fs.String("id", "", "Reminder id")
	fs.Parse(args)

	r, err := store.CompleteReminder(ctx, env.store, env.userID, *id)
	if err != nil {
		return err
	}
	fmt.Printf("Completed reminder %s (%s)\n", r.ID, r.Type)
	return nil
}

func runDashboard(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	rng := fs.String("range", string(domain.TimeRangeMonth), "week, month, quarter or all")
	vehicleID := fs.String("vehicle", "", "Only this vehicle")
	fs.Parse(args)

	stats, err := dashboard.NewService(env.store).Stats(ctx, env.userID, domain.TimeRange(*rng), *vehicleID)
	if err != nil {
		return err
	}

	fmt.Printf("Range:            %s\n", *rng)
	fmt.Printf("Total expenses:   %.2f\n", stats.TotalExpenses)
	fmt.Printf("Total income:     %.2f\n", stats.TotalIncome)
	fmt.Printf("This month:       %.2f\n", stats.MonthlyExpenses)

	fmt.Println("\nExpenses by category:")
	for _, c := range domain.AllTransactionCategories() {
		if v := stats.ExpensesByCategory[c]; v != 0 {
			fmt.Printf("  %-14s %.2f\n", c, v)
		}
	}

	fmt.Println("\nUpcoming reminders:")
	for _, r := range stats.UpcomingReminders {
		fmt.Printf("  %s  %-12s %s\n", r.DueDate, r.Type, r.Description)
	}
	return nil
}

func runAttach(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("attach", flag.ExitOnError)
	txID := fs.String("tx", "", "Transaction id")
	filePath := fs.String("file", "", "Path to the local file")
	fs.Parse(args)

	if *txID == "" || *filePath == "" {
		return fmt.Errorf("usage: cli attach -tx ID -file PATH")
	}

	svc, closeAttachments, err := bootstrap.OpenAttachments(ctx, env.cfg, env.store, env.log)
	if err != nil {
		return err
	}
	defer closeAttachments()
	if svc == nil {
		return fmt.Errorf("ATTACHMENTS_BUCKET is not set")
	}

	f, err := os.Open(*filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	name := filepath.Base(*filePath)
	tx, err := svc.Upload(ctx, env.userID, *txID, name, mime.TypeByExtension(filepath.Ext(name)), f)
	if err != nil {
		return err
	}
	fmt.Printf("Attached %s as %s\n", name, tx.Attachments[len(tx.Attachments)-1])
	return nil
}

func runSetAPIKey(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("set-api-key", flag.ExitOnError)
	key := fs.String("key", "", "API key; empty clears it")
	fs.Parse(args)

	if err := env.store.SetAPIKey(ctx, env.userID, strings.TrimSpace(*key)); err != nil {
		return err
	}
	if *key == "" {
		fmt.Println("API key cleared.")
	} else {
		fmt.Println("API key saved.")
	}
	return nil
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

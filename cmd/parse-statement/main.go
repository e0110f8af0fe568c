package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/statement-engine/internal/classify"
	"github.com/ledgerline/statement-engine/internal/domain"
	"github.com/ledgerline/statement-engine/internal/engine"
	"github.com/ledgerline/statement-engine/internal/logger"
	"github.com/ledgerline/statement-engine/internal/rules"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(log)
	case "banks":
		runBanks(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Engine CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  parse-statement <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse     Parse a statement text file and print the JSON report")
	fmt.Println("  banks     List the bank IDs with rule overrides")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'parse-statement <command> -h' for more information on a command.")
}

func runParse(log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	inputPath := fs.String("input", "", "Path to the statement text file ('-' for stdin)")
	bank := fs.String("bank", "", "Bank ID hint, e.g. bbva (skips detection)")
	accountType := fs.String("account-type", "", "Account type hint: CREDIT_CARD or CHECKING")
	invoicesPath := fs.String("invoices", "", "Path to a JSON array of invoice candidates")
	accountID := fs.String("account-id", "", "Account identifier echoed on profile updates")
	advisoryBank := fs.String("advisory-bank", "", "Externally supplied bank name")
	advisoryType := fs.String("advisory-type", "", "Externally supplied account type")
	advisoryConf := fs.Float64("advisory-confidence", 0, "Confidence of the advisory classification")
	pretty := fs.Bool("pretty", false, "Indent the JSON report")
	fs.Parse(os.Args[2:])

	if *inputPath == "" {
		log.Fatal().Msg("Error: -input is required")
	}

	text, err := readInput(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Reading statement text failed")
	}

	input := engine.Input{
		Text:            text,
		Account:         domain.AccountMetadata{AccountID: *accountID},
		BankHint:        *bank,
		AccountTypeHint: domain.AccountType(*accountType),
	}
	if *invoicesPath != "" {
		invoices, err := readInvoices(*invoicesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Reading invoice candidates failed")
		}
		input.Invoices = invoices
	}
	if *advisoryBank != "" || *advisoryType != "" {
		input.Advisory = &classify.Advisory{
			BankName:    *advisoryBank,
			AccountType: domain.AccountType(*advisoryType),
			Confidence:  *advisoryConf,
		}
	}

	eng, err := engine.New(engine.DefaultConfig(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Engine setup failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	report, err := eng.Parse(ctx, input)
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(report); err != nil {
		log.Fatal().Err(err).Msg("Writing report failed")
	}
}

func runBanks(log zerolog.Logger) {
	provider, err := rules.NewProvider()
	if err != nil {
		log.Fatal().Err(err).Msg("Loading bank rules failed")
	}

	ids := provider.Known()
	sort.Strings(ids)

	fmt.Println("Bank IDs with rule overrides:")
	for _, id := range ids {
		fmt.Printf("  %s\n", id)
	}
}

func readInput(path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", path, err)
	}
	return string(raw), nil
}

func readInvoices(path string) ([]domain.InvoiceCandidate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	var invoices []domain.InvoiceCandidate
	if err := json.Unmarshal(raw, &invoices); err != nil {
		return nil, fmt.Errorf("decoding %q: %w", path, err)
	}
	return invoices, nil
}

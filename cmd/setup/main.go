// The setup command walks through the initial configuration: collect the API
// credentials, verify them against both APIs, write the config file and
// register the bunq webhook callback.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/svanherk/bunqynab/internal/config"
	"github.com/svanherk/bunqynab/pkg/bunq"
	"github.com/svanherk/bunqynab/pkg/ynab"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "setup failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	reader := bufio.NewReader(os.Stdin)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Println("bunq-ynab setup")
	fmt.Println()

	bunqKey := prompt(reader, "bunq API key", "")
	bunqClient := bunq.NewClient(&bunq.ClientOptions{APIKey: bunqKey})
	accounts, err := bunqClient.Accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("bunq API key rejected: %w", err)
	}
	fmt.Printf("  ok, %d monetary accounts visible\n", len(accounts))

	ynabToken := prompt(reader, "YNAB personal access token", "")
	ynabClient := ynab.NewClient(&ynab.ClientOptions{Token: ynabToken})
	budgets, err := ynabClient.Budgets.List(ctx)
	if err != nil {
		return fmt.Errorf("YNAB token rejected: %w", err)
	}
	fmt.Printf("  ok, %d budgets visible\n", len(budgets))

	fmt.Println()
	fmt.Println("Link bank accounts to budget accounts by putting the IBAN in the")
	fmt.Println("budget account's note field. Detected IBANs:")
	for _, account := range accounts {
		if iban := account.IBAN(); iban != "" {
			fmt.Printf("  %s  (%s)\n", iban, account.Description)
		}
	}
	fmt.Println()

	hostname := prompt(reader, "externally reachable hostname for callbacks (empty to skip)", "")
	currency := prompt(reader, "currency", "EUR")
	port := 8045

	cfg := map[string]any{
		"bunq_api_key": bunqKey,
		"ynab_token":   ynabToken,
		"hostname":     hostname,
		"currency":     currency,
		"port":         port,
	}

	path := config.ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	fmt.Printf("configuration written to %s\n", path)

	if hostname != "" {
		callbackURL := fmt.Sprintf("https://%s:%d/receive-transaction", hostname, port)
		if err := bunqClient.Callbacks.Ensure(ctx, callbackURL, "MUTATION"); err != nil {
			return fmt.Errorf("failed to register callback: %w", err)
		}
		fmt.Printf("callback registered for %s\n", callbackURL)
	}

	fmt.Println()
	fmt.Println("next steps: run train-models, then serve-models and webhook-server")
	return nil
}

func prompt(reader *bufio.Reader, label, fallback string) string {
	if fallback != "" {
		fmt.Printf("%s [%s]: ", label, fallback)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback
	}
	return line
}

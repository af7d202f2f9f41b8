package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vibetemplate/prompthub/internal/adapter"
	"github.com/vibetemplate/prompthub/internal/config"
	"github.com/vibetemplate/prompthub/internal/keyring"
)

// checkResult mirrors the teacher's doctor.go reporting shape (name/status/
// message), colorized the same way.
type checkResult struct {
	name    string
	status  string // "ok", "warn", "error"
	message string
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, Chrome executable path, keychain and adapter selectors",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	fmt.Println("\033[1mbridged doctor\033[0m")
	fmt.Println("===============")
	fmt.Println()

	var results []checkResult
	results = append(results, checkConfig()...)
	results = append(results, checkAdapters()...)
	results = append(results, checkKeyring())

	okCount, warnCount, errCount := 0, 0, 0
	for _, r := range results {
		switch r.status {
		case "ok":
			fmt.Printf("\033[32m✓\033[0m %s: %s\n", r.name, r.message)
			okCount++
		case "warn":
			fmt.Printf("\033[33m⚠\033[0m %s: %s\n", r.name, r.message)
			warnCount++
		default:
			fmt.Printf("\033[31m✗\033[0m %s: %s\n", r.name, r.message)
			errCount++
		}
	}

	fmt.Println()
	fmt.Printf("Summary: %d ok, %d warnings, %d errors\n", okCount, warnCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}

func checkConfig() []checkResult {
	cfg, err := config.Load(configPath)
	if err != nil {
		return []checkResult{{name: "Config", status: "error", message: err.Error()}}
	}

	results := []checkResult{
		{name: "Relay address", status: "ok", message: cfg.RelayAddr},
		{name: "Data directory", status: "ok", message: cfg.DataDir},
	}

	if cfg.ExecutablePath != "" {
		if _, err := os.Stat(cfg.ExecutablePath); err != nil {
			results = append(results, checkResult{
				name: "Chrome executable", status: "error",
				message: fmt.Sprintf("%s: %v", cfg.ExecutablePath, err),
			})
		} else {
			results = append(results, checkResult{name: "Chrome executable", status: "ok", message: cfg.ExecutablePath})
		}
	} else {
		results = append(results, checkResult{
			name: "Chrome executable", status: "warn",
			message: "not configured, auto-detection will be used",
		})
	}

	return results
}

func checkKeyring() checkResult {
	if keyring.Available() {
		return checkResult{name: "OS keychain", status: "ok", message: "relay auth token can be persisted"}
	}
	return checkResult{
		name: "OS keychain", status: "warn",
		message: "unavailable; relay-backed mode will connect without an auth token",
	}
}

func checkAdapters() []checkResult {
	var results []checkResult
	for _, a := range adapter.All() {
		if len(a.Selectors().InputArea) == 0 {
			results = append(results, checkResult{
				name: a.WebsiteID(), status: "error", message: "no input selectors configured",
			})
			continue
		}
		results = append(results, checkResult{
			name: a.WebsiteID(), status: "ok", message: a.DisplayName(),
		})
	}
	return results
}

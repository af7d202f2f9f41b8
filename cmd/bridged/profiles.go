package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vibetemplate/prompthub/internal/adapter"
	"github.com/vibetemplate/prompthub/internal/config"
)

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured site adapters and their selector profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfiles()
		},
	}
}

func runProfiles() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var overrides map[string]adapter.SelectorProfile
	if cfg.ProfilesDir != "" {
		if store, err := config.NewProfileStore(cfg.ProfilesDir); err == nil {
			overrides = store.All()
		}
	}

	for _, a := range adapter.All() {
		profile := a.Selectors()
		source := "built-in"
		if o, ok := overrides[a.WebsiteID()]; ok {
			profile = o
			source = cfg.ProfilesDir
		}

		fmt.Printf("%s  (%s)\n", a.WebsiteID(), a.DisplayName())
		fmt.Printf("  home:   %s\n", a.HomeURL())
		fmt.Printf("  source: %s\n", source)
		fmt.Printf("  input:  %v\n", profile.InputArea)
		fmt.Printf("  send:   %v\n", profile.SendButton)
		fmt.Println()
	}

	return nil
}

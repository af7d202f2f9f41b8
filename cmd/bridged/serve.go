package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vibetemplate/prompthub/internal/adapter"
	"github.com/vibetemplate/prompthub/internal/config"
	"github.com/vibetemplate/prompthub/internal/contextfactory"
	"github.com/vibetemplate/prompthub/internal/keyring"
	"github.com/vibetemplate/prompthub/internal/logging"
	"github.com/vibetemplate/prompthub/internal/registry"
	"github.com/vibetemplate/prompthub/internal/relay"
	"github.com/vibetemplate/prompthub/internal/tabs"
)

// relayAuthToken returns the persisted relay auth token, minting and
// storing a fresh one on first run so the same token is reused across
// bridged restarts. The relay does not check it.
func relayAuthToken() (string, error) {
	if !keyring.Available() {
		return "", fmt.Errorf("OS keychain unavailable")
	}
	if token, err := keyring.Get(); err == nil && token != "" {
		return token, nil
	}
	token := uuid.NewString()
	if err := keyring.Set(token); err != nil {
		return "", fmt.Errorf("storing relay auth token: %w", err)
	}
	return token, nil
}

func serveCmd() *cobra.Command {
	var persistent bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CDP relay and Tab Controller HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(persistent)
		},
	}
	cmd.Flags().BoolVar(&persistent, "persistent", true, "launch a local Chrome profile instead of the relay-backed extension variant")
	return cmd
}

func runServe(persistent bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logging.Named("bridged")

	var factory contextfactory.Factory
	if persistent {
		factory, err = contextfactory.NewPersistentFactory(contextfactory.PersistentConfig{
			ExecutablePath: cfg.ExecutablePath,
			Headless:       cfg.Headless,
			UserDataDir:    cfg.DataDir,
		})
		if err != nil {
			return fmt.Errorf("configuring persistent context factory: %w", err)
		}
	} else {
		var authHeaders map[string]string
		if token, err := relayAuthToken(); err != nil {
			log.Warn("relay auth token unavailable, connecting without one", "error", err)
		} else {
			authHeaders = map[string]string{"Authorization": "Bearer " + token}
		}
		factory = contextfactory.NewRelayBackedFactory(authHeaders)
	}

	reg := registry.New(adapter.All()...)

	if cfg.ProfilesDir != "" {
		if store, err := config.NewProfileStore(cfg.ProfilesDir); err != nil {
			log.Warn("selector-profile store unavailable", "dir", cfg.ProfilesDir, "error", err)
		} else if err := store.Watch(nil); err != nil {
			log.Warn("selector-profile hot-reload unavailable", "error", err)
		}
	}

	controller := tabs.New(factory, reg)
	controller.StartSweeper()
	defer controller.Shutdown()

	cdpRelay := relay.New()

	r := chi.NewRouter()
	r.Mount("/", cdpRelay.Handler())
	mountControllerAPI(r, controller)

	srv := &http.Server{Addr: cfg.RelayAddr, Handler: r}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		cancel()
		_ = srv.Close()
	}()

	log.Info("serving", "addr", cfg.RelayAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serving: %w", err)
	}
	<-ctx.Done()
	return nil
}

// mountControllerAPI exposes the Tab Controller's request/response
// operations (spec.md §6, "External caller -> Tab Controller") as JSON over
// HTTP — the concrete transport spec.md leaves unspecified.
func mountControllerAPI(r chi.Router, c *tabs.Controller) {
	r.Post("/tabs", func(w http.ResponseWriter, req *http.Request) {
		var body struct{ URL string `json:"url"` }
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		id, err := c.OpenTab(req.Context(), body.URL)
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, map[string]string{"tabId": id})
	})

	r.Delete("/tabs/{tabID}", func(w http.ResponseWriter, req *http.Request) {
		if err := c.CloseTab(req.Context(), chi.URLParam(req, "tabID")); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/tabs/{tabID}/prompt", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SiteID string `json:"siteId"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := c.ExecutePrompt(req.Context(), chi.URLParam(req, "tabID"), body.SiteID, body.Prompt); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/tabs/{tabID}/content", func(w http.ResponseWriter, req *http.Request) {
		content, err := c.GetPageContent(req.Context(), chi.URLParam(req, "tabID"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, map[string]string{"content": content})
	})

	r.Get("/tabs", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, c.GetTabs())
	})

	r.Get("/websites", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, c.SupportedWebsites())
	})

	r.Get("/tabs/{tabID}/cookies", func(w http.ResponseWriter, req *http.Request) {
		cookies, err := c.GetCookies(req.Context(), chi.URLParam(req, "tabID"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, cookies)
	})

	r.Post("/tabs/{tabID}/cookies", func(w http.ResponseWriter, req *http.Request) {
		var cookie tabs.Cookie
		if err := json.NewDecoder(req.Body).Decode(&cookie); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := c.SetCookie(req.Context(), chi.URLParam(req, "tabID"), cookie); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

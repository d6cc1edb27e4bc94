// Package cli implements the ownai workshop CLI commands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/ownai-workshop/internal/api"
	"github.com/rcliao/ownai-workshop/internal/config"
	"github.com/rcliao/ownai-workshop/internal/logging"
	"github.com/rcliao/ownai-workshop/internal/session"
	"github.com/rcliao/ownai-workshop/internal/store"
)

var (
	configPath string
	baseURL    string
	sessionDB  string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "ownai",
	Short: "Manage AIs, knowledge and documents on an ownAI backend",
	Long:  "A workshop client for an ownAI backend. Log in once, then list, create, update and delete AIs, knowledge bases and their documents.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if formatFlag != "json" && formatFlag != "text" {
			exitErr("format", fmt.Errorf("unknown format %q (json or text)", formatFlag))
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	RootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Backend URL (default: $OWNAI_BASE_URL or http://localhost:5000)")
	RootCmd.PersistentFlags().StringVar(&sessionDB, "session-db", "", "Session database path (default: $OWNAI_SESSION_DB or ~/.ownai/sessions.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if sessionDB != "" {
		cfg.SessionDB = sessionDB
	}
	return cfg, nil
}

// env is what a command needs to talk to the backend.
type env struct {
	cfg      *config.Config
	log      zerolog.Logger
	client   *api.Client
	sessions *session.SQLiteStore
	ws       *store.Workshop
}

// openEnv builds the client and restores the stored session for its backend.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(logging.Console(cmd.ErrOrStderr()), cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	client, err := api.NewClient(cfg.BaseURL, cfg.Timeout, log)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewSQLiteStore(cfg.SessionDB)
	if err != nil {
		return nil, fmt.Errorf("open sessions: %w", err)
	}

	sess, err := sessions.Get(cmd.Context(), client.BaseURL())
	switch {
	case err == nil:
		client.SetCookies(session.ToHTTP(sess.Cookies, time.Now()))
		log.Debug().Str("username", sess.Username).Str("session", sess.ID).Msg("restored session")
	case errors.Is(err, session.ErrNotFound):
		log.Debug().Str("base_url", client.BaseURL()).Msg("no stored session")
	default:
		sessions.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}

	return &env{
		cfg:      cfg,
		log:      log,
		client:   client,
		sessions: sessions,
		ws:       store.NewWorkshop(client),
	}, nil
}

func (e *env) Close() error {
	return e.sessions.Close()
}

func mustOpenEnv(cmd *cobra.Command) *env {
	e, err := openEnv(cmd)
	if err != nil {
		exitErr("open", err)
	}
	return e
}

func textFormat() bool {
	return formatFlag == "text"
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

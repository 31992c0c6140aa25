package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"vrcal/internal/api"
	"vrcal/internal/config"
	"vrcal/internal/google"
	"vrcal/internal/icloud"
	"vrcal/internal/metrics"
	"vrcal/internal/syncer"
	"vrcal/internal/transport"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "vrcal",
		Usage:     "Browse VRChat group events and export them to your calendars.",
		Writer:    out,
		ErrWriter: os.Stderr,
		Commands: []*cli.Command{
			eventsCommand(),
			eventCommand(),
			groupCommand(),
			meCommand(),
			authCommand(),
			calendarsCommand(),
			syncCommand(),
		},
	}
}

func filterFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:  "filter",
		Usage: "Backend event filter as key=value. Repeatable.",
	}
}

func eventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "List events.",
		Flags: []cli.Flag{filterFlag()},
		Action: func(c *cli.Context) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			query, err := parseFilters(c.StringSlice("filter"))
			if err != nil {
				return err
			}
			events, err := client.Events.QueryEvents(c.Context, query)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, events)
		},
	}
}

func eventCommand() *cli.Command {
	return &cli.Command{
		Name:      "event",
		Usage:     "Show one event.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event id")
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			event, err := client.Events.FetchEvent(c.Context, id)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, event)
		},
	}
}

func groupCommand() *cli.Command {
	return &cli.Command{
		Name:      "group",
		Usage:     "Show one group.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "group id")
			if err != nil {
				return err
			}
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			group, err := client.Groups.GetGroup(c.Context, id)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, group)
		},
	}
}

func meCommand() *cli.Command {
	return &cli.Command{
		Name:  "me",
		Usage: "Show the user behind VRCAL_SESSION.",
		Action: func(c *cli.Context) error {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			user, err := client.Users.GetInfo(c.Context)
			if err != nil {
				return err
			}
			if user == nil {
				fmt.Fprintln(c.App.Writer, "not logged in")
				return nil
			}
			return printJSON(c.App.Writer, struct {
				ID          string `json:"id"`
				Username    string `json:"username"`
				DisplayName string `json:"display_name"`
				AvatarURL   string `json:"avatar_url,omitempty"`
			}{user.ID, user.Username, user.DisplayName(), user.AvatarURL()})
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthCfg, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(c.App.Writer, "Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Fprint(c.App.Writer, "Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthCfg, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			account := os.Getenv("GOOGLE_ACCOUNT")
			if account == "" {
				account = "default"
			}
			tokenFile := google.TokenFile(account)
			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List the Google calendars available to GOOGLE_ACCOUNT.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)
			gClient, err := google.NewClient(c.Context, logger, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.Account, cfg.Google.CalendarID)
			if err != nil {
				return fmt.Errorf("failed to create google client: %w", err)
			}
			calendars, err := gClient.ListCalendars(c.Context)
			if err != nil {
				return err
			}
			return printJSON(c.App.Writer, calendars)
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Export backend events to the configured calendars.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the sync cycle once and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be synced without making changes."},
			&cli.BoolFlag{Name: "force", Usage: "Push events again even if they were synced before."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run sync every N seconds. Overrides --once."},
			filterFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("watch") && c.Int("watch") <= 0 {
				return fmt.Errorf("--watch must be a positive number of seconds")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := setupLogger(cfg.LogLevel)

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			query, err := parseFilters(c.StringSlice("filter"))
			if err != nil {
				return err
			}

			m := metrics.New()
			client := api.New(cfg.APIURL, transport.NewHTTPClient(transport.Options{
				APIKey:     cfg.APIKey,
				Session:    cfg.Session,
				UserAgent:  cfg.UserAgent,
				Timeout:    cfg.Timeout,
				Instrument: m.InstrumentRoundTripper,
			}))

			var targets []syncer.Target
			if cfg.ICloud.Enabled() {
				iClient, err := icloud.NewClient(c.Context, logger, cfg.ICloud.Username, cfg.ICloud.Password, cfg.ICloud.CalendarName, cfg.UserAgent)
				if err != nil {
					return fmt.Errorf("failed to create icloud client: %w", err)
				}
				targets = append(targets, iClient)
			}
			if cfg.Google.Enabled() {
				gClient, err := google.NewClient(c.Context, logger, cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.Account, cfg.Google.CalendarID)
				if err != nil {
					return fmt.Errorf("failed to create google client for account %s: %w", cfg.Google.Account, err)
				}
				targets = append(targets, gClient)
			}
			logger.Info("Initialized calendar targets.", "count", len(targets))

			s, err := syncer.NewSyncer(logger, client.Events, targets, syncer.Options{
				StateFile: cfg.StateFile,
				Filter:    query,
				DryRun:    c.Bool("dry-run"),
				Force:     c.Bool("force"),
				Location:  cfg.Location(),
				Groups:    client.Groups,
				Observer:  m,
			})
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			// --watch flag takes precedence
			if c.IsSet("watch") {
				if cfg.MetricsAddr != "" {
					go func() {
						logger.Info("Serving metrics.", "addr", cfg.MetricsAddr)
						if err := m.Serve(c.Context, cfg.MetricsAddr); err != nil {
							logger.Error("Metrics server failed", "error", err)
						}
					}()
				}

				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if err := s.Sync(c.Context); err != nil {
						if errors.Is(err, context.Canceled) {
							return nil
						}
						logger.Error("Sync cycle failed", "error", err)
					}
					select {
					case <-c.Context.Done():
						logger.Info("Watcher stopped.")
						return nil
					case <-ticker.C:
					}
				}
			}

			// --once is the default behavior if --watch is not set
			logger.Info("Running a single sync cycle.")
			if err := s.Sync(c.Context); err != nil {
				return fmt.Errorf("single sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

// newAPIClient builds an authenticated backend client from the environment.
func newAPIClient() (*api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return api.New(cfg.APIURL, transport.NewHTTPClient(transport.Options{
		APIKey:    cfg.APIKey,
		Session:   cfg.Session,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
	})), nil
}

func parseFilters(raw []string) (url.Values, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	query := url.Values{}
	for _, f := range raw {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q, want key=value", f)
		}
		query.Add(key, value)
	}
	return query, nil
}

func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 || c.Args().First() == "" {
		return "", fmt.Errorf("expected exactly one argument: %s", name)
	}
	return c.Args().First(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"

	"calcore/internal/cache"
	"calcore/internal/config"
	"calcore/internal/creds"
	"calcore/internal/layout"
	"calcore/internal/provider"
	"calcore/internal/provider/caldav"
	"calcore/internal/provider/google"
	"calcore/internal/registry"
	"calcore/internal/snapshot"
	"calcore/internal/week"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calcore",
		Usage: "Calendar scheduling and sync engine.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "calcore.yaml", Usage: "Path to the config file."},
		},
		Commands: []*cli.Command{
			authCommand(),
			refreshCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate a Google account and store its token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "Account ID to store the token under."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			oauthCfg, err := googleOAuthConfig()
			if err != nil {
				return err
			}

			authURL := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			reader := bufio.NewReader(os.Stdin)
			fmt.Print("Enter Authorization Code: ")
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := oauthCfg.Exchange(c.Context, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			accountID := c.String("account")
			if accountID == "" {
				fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
				accountID, _ = reader.ReadString('\n')
				accountID = strings.TrimSpace(accountID)
			}

			store := &creds.FileStore{Dir: cfg.StateDir}
			err = store.Write(accountID, creds.Credential{
				AccessToken:  token.AccessToken,
				RefreshToken: token.RefreshToken,
				Expiry:       token.Expiry,
			})
			if err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "accountID", accountID)
			return nil
		},
	}
}

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Fetch the rolling event window once and print this week.",
		Action: func(c *cli.Context) error {
			engine, cfg, loc, err := buildEngine(c)
			if err != nil {
				return err
			}
			defer engine.events.Flush()

			now := time.Now().In(loc)
			window := week.FetchRange(now, cfg.StartDay(), loc, cfg.WindowMonthsBack, cfg.WindowMonthsForward)
			if err := engine.events.Refresh(c.Context, window); err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}

			printWeek(engine.events, now, cfg.StartDay(), loc)
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Keep the rolling event window fresh on a cron schedule.",
		Action: func(c *cli.Context) error {
			engine, cfg, loc, err := buildEngine(c)
			if err != nil {
				return err
			}
			defer engine.events.Flush()

			refresh := func() {
				now := time.Now().In(loc)
				window := week.FetchRange(now, cfg.StartDay(), loc, cfg.WindowMonthsBack, cfg.WindowMonthsForward)
				if err := engine.events.Refresh(c.Context, window); err != nil {
					engine.logger.Error("Refresh cycle failed", "error", err)
				}
			}
			refresh()

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(cfg.RefreshCron, refresh); err != nil {
				return fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshCron, err)
			}
			scheduler.Start()
			defer scheduler.Stop()

			engine.logger.Info("Watching.", "schedule", cfg.RefreshCron)
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop
			return nil
		},
	}
}

// engine bundles the wired-up core for the CLI commands.
type engine struct {
	logger *slog.Logger
	events *cache.Cache
}

func buildEngine(c *cli.Context) (*engine, *config.Config, *time.Location, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	logger := setupLogger(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := buildSnapshotStore(c.Context, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	reg := registry.New(c.Context, store, logger)

	oauthCfg, err := googleOAuthConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	coordinator := creds.NewCoordinator(
		&creds.FileStore{Dir: cfg.StateDir},
		&creds.OAuthRefresher{Config: oauthCfg},
		logger,
	)

	var clients []provider.Client
	for _, acc := range cfg.Accounts {
		switch acc.Platform {
		case "caldav":
			client, err := caldav.NewClient(c.Context, logger, acc.ID, acc.Endpoint, acc.Username, os.Getenv(acc.PasswordEnv), loc)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create caldav client for account %s: %w", acc.ID, err)
			}
			clients = append(clients, client)
		default:
			client, err := google.NewClient(c.Context, logger, acc.ID, coordinator.TokenSource(c.Context, acc.ID))
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to create google client for account %s: %w", acc.ID, err)
			}
			clients = append(clients, client)
		}
	}
	if len(clients) == 0 {
		return nil, nil, nil, fmt.Errorf("no accounts configured; add accounts to the config and run the 'auth' command")
	}
	logger.Info("Initialized provider clients for all accounts.", "count", len(clients))

	events := cache.New(c.Context, logger, store, reg, nil, clients, cfg.UserID)
	return &engine{logger: logger, events: events}, cfg, loc, nil
}

func buildSnapshotStore(ctx context.Context, cfg *config.Config) (snapshot.Store, error) {
	if cfg.PostgresDSN == "" {
		return &snapshot.FileStore{Dir: cfg.StateDir}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping postgres: %w", err)
	}
	return snapshot.NewPGStore(ctx, pool)
}

// printWeek renders a terse per-day summary of the current week, with the
// column layout each day's events would get.
func printWeek(events *cache.Cache, now time.Time, startDay week.StartDay, loc *time.Location) {
	w := week.Of(now, startDay, loc)
	weekEvents := events.EventsForRange(w.Range())

	for i, day := range w.Days {
		marker := " "
		if w.IsToday(i, now) {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, w.DayHeader(i))

		var dayEvents []string
		placements := layout.ForDay(day, weekEvents)
		byID := make(map[string]layout.Placement, len(placements))
		for _, p := range placements {
			byID[p.EventID] = p
		}
		for _, ev := range weekEvents {
			if !sameDay(ev.Start.In(loc), day) {
				continue
			}
			if ev.AllDay {
				dayEvents = append(dayEvents, fmt.Sprintf("    all day        %s", ev.Title))
				continue
			}
			p := byID[ev.ID]
			dayEvents = append(dayEvents, fmt.Sprintf("    %s-%s  [col %d/%d]  %s",
				ev.Start.In(loc).Format("15:04"), ev.End.In(loc).Format("15:04"),
				p.Column+1, p.TotalColumns, ev.Title))
		}
		for _, line := range dayEvents {
			fmt.Println(line)
		}
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func googleOAuthConfig() (*oauth2.Config, error) {
	clientID := os.Getenv("GOOGLE_CLIENT_ID")
	clientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{calendarapi.CalendarScope},
		Endpoint:     googleauth.Endpoint,
	}, nil
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

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"elms-extractor/internal/components/telemetry"
	"elms-extractor/internal/scrapers/elms"
	"elms-extractor/internal/store"
	"elms-extractor/pkg/configutil"
	"elms-extractor/pkg/restyutil"

	"github.com/spf13/cobra"
)

type Config struct {
	BaseUrl  string             `json:"base_url"`
	Username string             `json:"username"`
	Password string             `json:"password"`
	Scraper  elms.ScraperConfig `json:"scraper"`
}

var (
	configPath *string
	outDir     *string
	dbPath     *string
	dumpDir    *string
	verbose    *bool
)

var rootCmd = &cobra.Command{
	Use:   "elms-cli",
	Short: "elms-cli exports the participants of your eLMS courses as csv files and email lists.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if *verbose {
			telemetry.InitSlog(false, slog.LevelDebug)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The configuration file to read credentials and scraper settings from.")
	outDir = rootCmd.PersistentFlags().String("out", ".", "The directory to write extracted files to.")
	dbPath = rootCmd.PersistentFlags().String("db", "", "If set, extracted rosters are also recorded in this sqlite database.")
	dumpDir = rootCmd.PersistentFlags().String("dump-http", "", "If set, every http message exchanged with eLMS is written to this directory with credentials redacted.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readConfig reads the config file, the ELMS_USERNAME and ELMS_PASSWORD
// environment variables take precedence over it.
func readConfig() (Config, error) {
	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	if cfg.BaseUrl == "" {
		cfg.BaseUrl = "https://elms.uiu.ac.bd"
	}
	if username, ok := os.LookupEnv("ELMS_USERNAME"); ok {
		cfg.Username = username
	}
	if password, ok := os.LookupEnv("ELMS_PASSWORD"); ok {
		cfg.Password = password
	}
	if cfg.Username == "" || cfg.Password == "" {
		return Config{}, fmt.Errorf("username and password must be set in %s or through ELMS_USERNAME and ELMS_PASSWORD", *configPath)
	}
	return cfg, nil
}

func login(ctx context.Context) (*elms.Session, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	opts := cfg.Scraper.Options(cfg.BaseUrl)
	if *dumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(*dumpDir)
		if err != nil {
			return nil, err
		}
		opts.Dump = output
	}

	client, err := elms.NewClient(opts, telemetry.NewSlogAPI(nil))
	if err != nil {
		return nil, err
	}
	slog.Info("logging in", "username", cfg.Username)
	return client.Login(ctx, cfg.Username, cfg.Password)
}

// openStore returns nil when --db was not given.
func openStore() (*store.Store, error) {
	if *dbPath == "" {
		return nil, nil
	}
	s, err := store.Open(*dbPath)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

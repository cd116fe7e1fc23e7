// Package cli implements the planctl command line interface on top of the
// scenario engine service.
package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"plancore/internal/blob"
	"plancore/internal/config"
	"plancore/internal/core"
	"plancore/internal/infra/blob/fs"
	blobmemory "plancore/internal/infra/blob/memory"
	"plancore/internal/infra/blob/s3"
	"plancore/internal/infra/persistence/badger"
	"plancore/internal/infra/persistence/memory"
	"plancore/internal/infra/persistence/postgres"
	"plancore/internal/infra/persistence/sqlite"
)

var (
	configPath string
	jsonOutput bool
	author     string
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "Scenario planning from the command line",
	Long: `planctl manages planning scenarios: branch from a baseline, edit
projects, people and assignments in isolation, compare scenarios field by
field, and merge a branch back into its parent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// SetVersion wires the build version into the root command.
func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to plancore.yaml (default ./plancore.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&author, "author", "", "Author recorded on writes")
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

func newService() (*core.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	return core.NewService(store, core.WithLogger(logger)), nil
}

func openStore(cfg config.StorageConfig) (core.PersistentStore, error) {
	switch core.StorageDriver(cfg.Driver) {
	case core.StorageMemory:
		return memory.NewStore(), nil
	case core.StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case core.StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN)
	case core.StorageBadger:
		return badger.NewStore(badger.Config{Dir: cfg.BadgerDir})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

func openBlob(cmd *cobra.Command, cfg config.BlobConfig) (blob.Store, error) {
	switch blob.Driver(cfg.Driver) {
	case blob.DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case blob.DriverS3:
		return s3.New(cmd.Context(), s3.Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	case blob.DriverMemory:
		return blobmemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

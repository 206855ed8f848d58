package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/corbin/stride/internal"
	pkgconfig "github.com/corbin/stride/pkg/config"
)

const defaultConfigFile = "config/config.yaml"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), defaultConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{internal.WithConfig(cfg)}
	if cmd.Bool("offline") {
		opts = append(opts, internal.WithOffline())
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runSync(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rep, err := internal.RunSyncOnce(ctx, cfg)
	if err != nil {
		return fmt.Errorf("sync error: %w", err)
	}

	out, _ := json.MarshalIndent(rep, "", "  ")
	fmt.Println(string(out))
	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: defaultConfigFile,
		Value:       defaultConfigFile,
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
	offlineFlag := &cli.BoolFlag{
		Name:  "offline",
		Usage: "Serve from the local store without contacting the remote service",
	}

	cmd := &cli.Command{
		Name:   "stride",
		Usage:  "Offline-first goal tracking daemon with local SQLite storage and remote sync",
		Action: runServe,
		Flags:  []cli.Flag{configFlag, offlineFlag},
		Commands: []*cli.Command{
			{
				Name:   "sync",
				Usage:  "Run one reconciliation pass and print the report",
				Action: runSync,
				Flags:  []cli.Flag{configFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

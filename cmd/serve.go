package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"gloss-relay/internal/config"
	"gloss-relay/internal/models"
	providerfactory "gloss-relay/internal/provider/factory"
	"gloss-relay/internal/relay"
	"gloss-relay/internal/server"
	"gloss-relay/internal/translator"
)

const serveUsage = `Usage:
  gloss-relay serve [--config <path>] [--env-file <path>] [--host <host>] [--port <port>]

Flags:`

type serveOptions struct {
	configPath   string
	envFile      string
	overrideHost string
	overridePort int
}

func serve(ctx context.Context, args []string) error {
	opts, err := parseServeFlags(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := loadEnvFile(opts.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	if opts.overrideHost != "" {
		cfg.Server.Host = opts.overrideHost
	}
	if opts.overridePort != 0 {
		if opts.overridePort < 0 || opts.overridePort > 65535 {
			return fmt.Errorf("port override %d must be a valid TCP port", opts.overridePort)
		}
		cfg.Server.Port = opts.overridePort
	}

	slog.SetDefault(newLogger(cfg.Log))

	systemPrompt, err := translator.LoadSystemPrompt(cfg.Prompt.SystemFile)
	if err != nil {
		return err
	}

	upstream, err := providerfactory.NewConfiguredProvider(cfg.Upstream)
	if err != nil {
		return err
	}

	rl, err := relay.New(upstream, relay.Options{
		Model:        cfg.Upstream.Model,
		SystemPrompt: systemPrompt,
		Generation: models.GenerationOptions{
			Temperature: cfg.Upstream.Temperature,
			NumPredict:  cfg.Upstream.NumPredict,
		},
	})
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, rl)
	if err != nil {
		return err
	}

	return srv.Run(ctx)
}

func parseServeFlags(args []string) (serveOptions, error) {
	var opts serveOptions

	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, serveUsage)
		fmt.Fprint(os.Stderr, flags.FlagUsages())
	}

	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration, skipped when missing")
	flags.StringVar(&opts.overrideHost, "host", "", "override listen host")
	flags.IntVarP(&opts.overridePort, "port", "p", 0, "override listen port")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return opts, err
		}
		return opts, fmt.Errorf("parse serve flags: %w", err)
	}
	if flags.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}
	return opts, nil
}

// loadEnvFile populates unset environment variables from a dotenv file.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

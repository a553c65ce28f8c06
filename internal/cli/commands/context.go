// Package commands implements the xcsp2cpo subcommands.
package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cspkit/xcsp2cpo/internal/cli/config"
	"github.com/cspkit/xcsp2cpo/internal/cli/output"
)

// Context keys shared between the root command and the subcommands.
type (
	configKey   struct{}
	rendererKey struct{}
	loggerKey   struct{}
)

// WithConfig stores the loaded config in the context.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithRenderer stores the renderer in the context.
func WithRenderer(ctx context.Context, r *output.Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, r)
}

// WithLogger stores the logger in the context.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// GetConfig retrieves the config from the command context.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		StatePath:    config.DefaultStateFile,
		OutputFormat: config.DefaultOutput,
	}
}

// GetRenderer retrieves the renderer from the command context.
func GetRenderer(ctx context.Context) *output.Renderer {
	if r, ok := ctx.Value(rendererKey{}).(*output.Renderer); ok {
		return r
	}
	return output.NewRenderer(os.Stdout, os.Stderr, output.ModeAuto)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// CommandContext bundles what every command needs.
type CommandContext struct {
	Config   *config.Config
	Renderer *output.Renderer
	Logger   *slog.Logger
}

// NewCommandContext builds the command context from the cobra command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	return &CommandContext{
		Config:   GetConfig(ctx),
		Renderer: GetRenderer(ctx),
		Logger:   GetLogger(ctx),
	}
}

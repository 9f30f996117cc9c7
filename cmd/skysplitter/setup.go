package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cgillinger/skysplitter/internal/bluesky"
	"github.com/cgillinger/skysplitter/internal/config"
	"github.com/cgillinger/skysplitter/internal/database"
	"github.com/cgillinger/skysplitter/internal/database/cache"
)

func initializeServices() error {
	if err := database.Open(config.DatabaseFile); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.CreateTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if config.RedisAddress != "" {
		if err := cache.RedisClient(config.RedisAddress, config.RedisPassword, config.RedisDB); err != nil {
			fmt.Println("\033[0;31mRedis cache is currently unavailable.\033[0m")
		}
	}

	return nil
}

// loginOrResume restores the stored session when one exists and still
// refreshes, and falls back to a fresh login otherwise. Auth errors are
// surfaced as-is; neither path retries.
func loginOrResume(client *bluesky.Client) error {
	stored, err := database.GetSession(config.BlueskyIdentifier)
	if err == nil {
		if session, err := client.ResumeSession(stored); err == nil {
			return database.SaveSession(config.BlueskyIdentifier, session)
		}
		slog.Warn("Stored session no longer valid, logging in again")
		if err := database.DeleteSession(config.BlueskyIdentifier); err != nil {
			slog.Warn("Could not clear stored session",
				"error", err.Error())
		}
	} else if !errors.Is(err, database.ErrSessionNotFound) {
		return err
	}

	session, err := client.Login(config.BlueskyIdentifier, config.BlueskyPassword)
	if err != nil {
		return err
	}

	return database.SaveSession(config.BlueskyIdentifier, session)
}

type ColorHandler struct {
	handler slog.Handler
	out     io.Writer
	colors  map[slog.Level]string
	opts    *slog.HandlerOptions
}

func NewColorHandler(out io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}

	return &ColorHandler{
		handler: slog.NewTextHandler(out, opts),
		out:     out,
		opts:    opts,
		colors: map[slog.Level]string{
			slog.LevelError: "\033[0;31m", // red
			slog.LevelWarn:  "\033[0;33m", // yellow
			slog.LevelInfo:  "\033[0;36m", // cyan
			slog.LevelDebug: "\033[0;32m", // green
		},
	}
}

func (h *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	timestamp := r.Time.Format("[01/02 15:04]")
	colorCode, ok := h.colors[r.Level]
	if !ok {
		colorCode = "\033[0m"
	}

	colorReset := "\033[0m"
	colorGray := "\033[90m"
	colorWhiteBold := "\033[1;37m"

	attrs := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "" {
			attrs[a.Key] = a.Value.Any()
		}
		return true
	})

	var jsonAttrs string
	if r.NumAttrs() > 0 {
		jsonBytes, err := json.MarshalIndent(attrs, "", "  ")
		if err == nil {
			jsonAttrs = " " + string(jsonBytes)
		}
	}

	msg := fmt.Sprintf("%s%s %s%s%s: %s%s%s\n",
		colorGray,
		timestamp,
		colorCode,
		r.Level.String(),
		colorWhiteBold,
		r.Message,
		colorReset,
		jsonAttrs,
	)

	_, err := h.out.Write([]byte(msg))
	return err
}

func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{
		handler: h.handler.WithAttrs(attrs),
		out:     h.out,
		opts:    h.opts,
		colors:  h.colors,
	}
}

func (h *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{
		handler: h.handler.WithGroup(name),
		out:     h.out,
		opts:    h.opts,
		colors:  h.colors,
	}
}

func (h *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

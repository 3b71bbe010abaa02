// Package logger builds the bot's slog logger: tinted human-readable
// output for local runs, JSON when QABOT_LOG_JSON is set for log
// collectors in production.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

func New(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	if os.Getenv("QABOT_LOG_JSON") != "" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: replaceAttr,
		}))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:       logLevel,
		ReplaceAttr: replaceAttr,
	}))
}

// replaceAttr pins timestamps to UTC millis and drops empty-string attrs,
// which the bot emits for optional fields like turn metadata.
func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		t := a.Value.Time().UTC()
		a.Value = slog.StringValue(formatRFC3339Millis(t))
	}
	if s, ok := a.Value.Any().(string); ok && s == "" {
		return slog.Attr{}
	}
	return a
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}

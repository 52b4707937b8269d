// Package slogx provides slog.Attr constructors with the keys used across the indexer.
package slogx

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	ErrorKey           = "error"
	ErrorVerboseKey    = "error_verbose"
	ErrorStackTraceKey = "error_stacktrace"
)

// Error returns an attribute under ErrorKey. A nil error yields an empty attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any(ErrorKey, err)
}

// Stringer calls value.String() eagerly. Nil values are rendered as "<nil>".
func Stringer(key string, value fmt.Stringer) slog.Attr {
	if value == nil {
		return slog.String(key, "<nil>")
	}
	return slog.String(key, value.String())
}

func Any(key string, value any) slog.Attr                { return slog.Any(key, value) }
func String(key, value string) slog.Attr                 { return slog.String(key, value) }
func Int(key string, value int) slog.Attr                { return slog.Int(key, value) }
func Int64(key string, value int64) slog.Attr            { return slog.Int64(key, value) }
func Uint64(key string, value uint64) slog.Attr          { return slog.Uint64(key, value) }
func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

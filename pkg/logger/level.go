package logger

import (
	"fmt"
	"log/slog"
)

const (
	LevelCritical = slog.Level(12)
	LevelPanic    = slog.Level(14)
	LevelFatal    = slog.Level(16)
)

func levelName(l slog.Level) string {
	offset := func(base string, d slog.Level) string {
		if d == 0 {
			return base
		}
		return fmt.Sprintf("%s%+d", base, d)
	}
	switch {
	case l < LevelCritical:
		return l.String()
	case l < LevelPanic:
		return offset("CRITICAL", l-LevelCritical)
	case l < LevelFatal:
		return offset("PANIC", l-LevelPanic)
	default:
		return offset("FATAL", l-LevelFatal)
	}
}

func levelAttrReplacer(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) > 0 || attr.Key != slog.LevelKey {
		return attr
	}
	if l, ok := attr.Value.Any().(slog.Level); ok && l >= LevelCritical {
		attr.Value = slog.StringValue(levelName(l))
	}
	return attr
}

// https://cloud.google.com/logging/docs/reference/v2/rest/v2/LogEntry#logseverity
func gcpSeverity(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARNING"
	case l < LevelCritical:
		return "ERROR"
	case l < LevelPanic:
		return "CRITICAL"
	case l < LevelFatal:
		return "ALERT"
	default:
		return "EMERGENCY"
	}
}

package logger

import (
	"log/slog"
	"time"
)

// Helpers return an empty Attr for nil or empty input where that makes sense,
// so log.Info("msg", logger.Error(err)) needs no nil check. slog drops empty attrs.

// Error puts err under "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component names the package emitting the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event names a state change, e.g. "blacklisted".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Count is an integer under key.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// RetryCount is the number of attempts made so far.
func RetryCount(n int) slog.Attr {
	return slog.Int("retry_count", n)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed is the time since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// HTTP

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status_code", code)
}

// Traffic

// ClientID logs the unresolved identity as "<unresolved>" so the shared
// bucket stays visible.
func ClientID(id string) slog.Attr {
	if id == "" {
		return slog.String("client_id", "<unresolved>")
	}
	return slog.String("client_id", id)
}

func RecordID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("record_id", id)
}

func SessionID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("session_id", id)
}

// Decision is a gate outcome, "admit" or "block".
func Decision(d string) slog.Attr {
	return slog.String("decision", d)
}

package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/amandocs/internal/logging"
)

// loggerName identifies amandocs in client log notifications.
const loggerName = "amandocs"

type sessionKey struct{}

// withSession attaches the calling client session to ctx so reporters can
// reach it. A nil session leaves ctx unchanged.
func withSession(ctx context.Context, ss *mcp.ServerSession) context.Context {
	if ss == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, ss)
}

func sessionFrom(ctx context.Context) *mcp.ServerSession {
	ss, _ := ctx.Value(sessionKey{}).(*mcp.ServerSession)
	return ss
}

// SessionReporter reports through a base reporter and also forwards each
// message to the client session found in the context, if any. Index
// rebuilds started by a tool call are therefore visible to that client.
type SessionReporter struct {
	base logging.Reporter
}

// Ensure SessionReporter implements logging.Reporter.
var _ logging.Reporter = (*SessionReporter)(nil)

// NewSessionReporter wraps base; nil means a slog reporter on the default logger.
func NewSessionReporter(base logging.Reporter) *SessionReporter {
	if base == nil {
		base = logging.NewSlogReporter(nil)
	}
	return &SessionReporter{base: base}
}

// Info logs and forwards at info level.
func (r *SessionReporter) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.base.Info(ctx, msg, attrs...)
	r.forward(ctx, "info", msg, attrs)
}

// Warn logs and forwards at warning level.
func (r *SessionReporter) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	r.base.Warn(ctx, msg, attrs...)
	r.forward(ctx, "warning", msg, attrs)
}

// Fatal logs and forwards err at error level, then returns it.
func (r *SessionReporter) Fatal(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	err = r.base.Fatal(ctx, err)
	r.forward(ctx, "error", err.Error(), nil)
	return err
}

// forward sends a log notification. Delivery failures are dropped: the
// message is already in the log file.
func (r *SessionReporter) forward(ctx context.Context, level mcp.LoggingLevel, msg string, attrs []slog.Attr) {
	ss := sessionFrom(ctx)
	if ss == nil {
		return
	}
	data := make(map[string]any, len(attrs)+1)
	data["event"] = msg
	for _, a := range attrs {
		data[a.Key] = a.Value.Resolve().Any()
	}
	_ = ss.Log(context.WithoutCancel(ctx), &mcp.LoggingMessageParams{
		Logger: loggerName,
		Level:  level,
		Data:   data,
	})
}

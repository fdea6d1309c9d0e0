package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LogTap is a slog.Handler that forwards records to another handler and
// mirrors those at or above its level into a RunState.
type LogTap struct {
	next   slog.Handler
	state  *RunState
	level  slog.Leveler
	prefix string
	attrs  []slog.Attr
}

// NewLogTap wraps next. A nil level mirrors Info and above.
func NewLogTap(next slog.Handler, state *RunState, level slog.Leveler) *LogTap {
	if level == nil {
		level = slog.LevelInfo
	}
	return &LogTap{next: next, state: state, level: level}
}

func (t *LogTap) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= t.level.Level() || t.next.Enabled(ctx, l)
}

func (t *LogTap) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= t.level.Level() {
		t.state.Log(t.format(r))
	}
	if t.next.Enabled(ctx, r.Level) {
		return t.next.Handle(ctx, r)
	}
	return nil
}

func (t *LogTap) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *t
	c.next = t.next.WithAttrs(attrs)
	c.attrs = make([]slog.Attr, 0, len(t.attrs)+len(attrs))
	c.attrs = append(c.attrs, t.attrs...)
	for _, a := range attrs {
		a.Key = t.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}
	return &c
}

func (t *LogTap) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	c := *t
	c.next = t.next.WithGroup(name)
	c.prefix = t.prefix + name + "."
	return &c
}

// format renders "15:04:05 INFO message key=value ..." and skips the
// component attribute, which the message already implies.
func (t *LogTap) format(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Time.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	write := func(a slog.Attr) {
		if a.Key == "component" || a.Equal(slog.Attr{}) {
			return
		}
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Resolve())
	}
	for _, a := range t.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		a.Key = t.prefix + a.Key
		write(a)
		return true
	})
	return b.String()
}

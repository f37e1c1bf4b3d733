package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"go.trai.ch/devshell/internal/ui/output"
	"go.trai.ch/devshell/internal/ui/style"
)

// PrettyHandler is a slog.Handler that writes one colored line per record.
// Attributes follow the message as key=value pairs; grouped keys are dotted.
type PrettyHandler struct {
	out   *termenv.Output
	level slog.Leveler
	// prefix holds attributes already rendered by WithAttrs.
	prefix []string
	group  string
}

// NewPrettyHandler creates a new PrettyHandler writing to w, or stderr when w is nil.
func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}

	return &PrettyHandler{
		out:   output.New(w),
		level: level,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes the record.
//
//nolint:gocritic // slog.Handler interface requires slog.Record by value
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	glyph, color := decoration(r.Level)

	var b strings.Builder
	if glyph != "" {
		b.WriteString(glyph)
		b.WriteByte(' ')
	}
	b.WriteString(r.Message)
	for _, a := range h.prefix {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	r.Attrs(func(attr slog.Attr) bool {
		if s := renderAttr(h.group, attr); s != "" {
			b.WriteByte(' ')
			b.WriteString(s)
		}
		return true
	})

	_, err := h.out.WriteString(h.out.String(b.String()).Foreground(color).String() + "\n")
	return err
}

func decoration(level slog.Level) (string, termenv.Color) {
	switch {
	case level >= slog.LevelError:
		return style.Cross, termenv.RGBColor(string(style.Red))
	case level >= slog.LevelWarn:
		return style.Warning, termenv.RGBColor(string(style.Yellow))
	case level < slog.LevelInfo:
		return "", termenv.RGBColor(string(style.Iris))
	default:
		return "", termenv.RGBColor(string(style.Slate))
	}
}

// WithAttrs returns a new Handler with the given attributes rendered under the current group.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	prefix := make([]string, 0, len(h.prefix)+len(attrs))
	prefix = append(prefix, h.prefix...)
	for _, a := range attrs {
		if s := renderAttr(h.group, a); s != "" {
			prefix = append(prefix, s)
		}
	}

	next := *h
	next.prefix = prefix
	return &next
}

// WithGroup returns a new Handler that qualifies later attribute keys with name.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = qualify(h.group, name)
	return &next
}

func renderAttr(group string, attr slog.Attr) string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return ""
	}
	if attr.Value.Kind() == slog.KindGroup {
		sub := qualify(group, attr.Key)
		parts := make([]string, 0, len(attr.Value.Group()))
		for _, a := range attr.Value.Group() {
			if s := renderAttr(sub, a); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return qualify(group, attr.Key) + "=" + attr.Value.String()
}

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	if key == "" {
		return group
	}
	return group + "." + key
}

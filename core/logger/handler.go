package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

type handlerConfig struct {
	level    slog.Leveler
	writer   *lineWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders each record as one KV or JSON line. Keys listed
// in keyOrder come first in that order, the rest alphabetically.
type structuredHandler struct {
	cfg    handlerConfig
	rank   map[string]int
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = defaultKeyOrder
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = slices.Clip(h.attrs)
	for _, a := range attrs {
		c.attrs = append(c.attrs, slog.Attr{Key: join(h.prefix, a.Key), Value: a.Value})
	}
	return &c
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.prefix = join(h.prefix, name)
	return &c
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialized")
	}
	asJSON := h.cfg.format == formatJSON
	ts := r.Time.UTC()

	var rec record
	rec.set("ts", ts.Truncate(time.Millisecond).Format(timeFormatMillis))
	rec.set("level", levelName(r.Level))
	if asJSON {
		rec.set("ts_unix_nano", ts.UnixNano())
	}
	for _, a := range h.attrs {
		rec.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.add(h.prefix, a)
		return true
	})
	rec.fromContext(ctx)
	rec.finish(r.Message, asJSON)

	slices.SortStableFunc(rec.fields, h.compare)
	var line []byte
	if asJSON {
		var err error
		if line, err = rec.appendJSON(nil); err != nil {
			return err
		}
	} else {
		line = rec.appendKV(nil)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) compare(a, b field) int {
	ra, oka := h.rank[a.key]
	rb, okb := h.rank[b.key]
	switch {
	case oka && okb:
		return ra - rb
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a.key, b.key)
}

func join(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

type field struct {
	key string
	val any
}

// record is the flattened field list of one line. Later values replace
// earlier ones under the same key.
type record struct {
	fields []field
}

func (r *record) index(key string) int {
	return slices.IndexFunc(r.fields, func(f field) bool { return f.key == key })
}

func (r *record) set(key string, v any) {
	if i := r.index(key); i >= 0 {
		r.fields[i].val = v
		return
	}
	r.fields = append(r.fields, field{key, v})
}

func (r *record) setDefault(key string, v any) {
	if r.index(key) < 0 {
		r.fields = append(r.fields, field{key, v})
	}
}

func (r *record) str(key string) string {
	if i := r.index(key); i >= 0 {
		if s, ok := r.fields[i].val.(string); ok {
			return s
		}
		return fmt.Sprint(r.fields[i].val)
	}
	return ""
}

func (r *record) drop(key string) {
	if i := r.index(key); i >= 0 {
		r.fields = slices.Delete(r.fields, i, i+1)
	}
}

func (r *record) add(prefix string, a slog.Attr) {
	key := join(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			r.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if v.Kind() == slog.KindDuration {
		r.set(msKey(key), RoundMS(v.Duration()).Milliseconds())
		return
	}
	if val, ok := plain(v); ok {
		r.set(key, val)
	}
}

// msKey renames duration attributes so the unit is part of the key.
func msKey(key string) string {
	switch {
	case key == "duration":
		return "duration_ms"
	case strings.HasSuffix(key, "_ms"):
		return key
	}
	return key + "_ms"
}

func plain(v slog.Value) (any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return v.Bool(), true
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), true
		}
		return v.Uint64(), true
	case slog.KindFloat64:
		return v.Float64(), true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false
	case error:
		return x.Error(), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// fromContext adds request metadata unless the record already carries it.
func (r *record) fromContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	if v := RIDFrom(ctx); v != "" {
		r.setDefault("rid", v)
	}
	if v := UserIDFrom(ctx); v != 0 {
		r.setDefault("user_id", v)
	}
	if v := UpdateIDFrom(ctx); v != 0 {
		r.setDefault("update_id", v)
	}
	if v := ChatIDFrom(ctx); v != 0 {
		r.setDefault("chat_id", v)
	}
	if v := HandlerFrom(ctx); v != "" {
		r.setDefault("handler", v)
	}
}

// finish applies defaults, compacts the request id and drops empty values
// and unknown outcomes.
func (r *record) finish(msg string, asJSON bool) {
	if rid := r.str("rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			r.set("rid", short)
			if asJSON {
				r.set("rid_full", rid)
			}
		}
	}
	if r.str("event") == "" {
		if msg == "" {
			msg = "unknown"
		}
		r.set("event", msg)
	}
	if r.str("component") == "" {
		r.set("component", "app")
	}
	if s := r.str("status"); s != "" {
		s, _ = oneOf(s, statuses)
		r.set("status", s)
	}
	if o := r.str("outcome"); o != "" {
		if o, ok := oneOf(o, outcomes); ok {
			r.set("outcome", o)
		} else {
			r.drop("outcome")
		}
	}
	r.fields = slices.DeleteFunc(r.fields, func(f field) bool {
		s, isStr := f.val.(string)
		return f.val == nil || (isStr && s == "")
	})
}

func (r *record) appendJSON(buf []byte) ([]byte, error) {
	buf = append(buf, '{')
	for i, f := range r.fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		data, err := json.Marshal(f.val)
		if err != nil {
			return nil, fmt.Errorf("logger: field %s: %w", f.key, err)
		}
		buf = strconv.AppendQuote(buf, f.key)
		buf = append(buf, ':')
		buf = append(buf, data...)
	}
	return append(buf, '}'), nil
}

func (r *record) appendKV(buf []byte) []byte {
	for i, f := range r.fields {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, f.key...)
		buf = append(buf, '=')
		s := fmt.Sprint(f.val)
		if strings.IndexFunc(s, func(c rune) bool { return c <= ' ' || c == '=' || c == '"' }) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

package logtail

import (
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Attr is one key=value pair that is not part of the record header.
type Attr struct {
	Key   string
	Value string
}

// Record is a parsed slog text line.
type Record struct {
	Time      time.Time
	Level     string
	Message   string
	Component string
	Attrs     []Attr
	Raw       string
	// Structured is false when the line did not look like a slog record.
	Structured bool
}

// Parse splits a line written by slog's TextHandler into its fields. Lines in
// any other format come back with only Raw and Message set.
func Parse(line string) Record {
	rec := Record{Raw: line, Message: line}
	pairs, ok := splitPairs(line)
	if !ok {
		return rec
	}
	var sawHeader bool
	for _, p := range pairs {
		switch p.Key {
		case slog.TimeKey:
			if ts, err := time.Parse(time.RFC3339Nano, p.Value); err == nil {
				rec.Time = ts
			}
			sawHeader = true
		case slog.LevelKey:
			rec.Level = strings.ToUpper(p.Value)
			sawHeader = true
		case slog.MessageKey:
			rec.Message = p.Value
			sawHeader = true
		case "component":
			rec.Component = p.Value
		default:
			rec.Attrs = append(rec.Attrs, p)
		}
	}
	if !sawHeader {
		return Record{Raw: line, Message: line}
	}
	rec.Structured = true
	return rec
}

// AtLeast reports whether the record's level is at or above min. Unparsed
// records always pass.
func (r Record) AtLeast(min slog.Level) bool {
	if r.Level == "" {
		return true
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(r.Level)); err != nil {
		return true
	}
	return lvl >= min
}

// Filter keeps records at or above min whose component matches component.
// An empty component matches everything.
func Filter(records []Record, min slog.Level, component string) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !r.AtLeast(min) {
			continue
		}
		if component != "" && !strings.EqualFold(r.Component, component) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func splitPairs(line string) ([]Attr, bool) {
	var pairs []Attr
	rest := strings.TrimSpace(line)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 {
			return nil, false
		}
		key := rest[:eq]
		if strings.ContainsAny(key, " \t\"") {
			return nil, false
		}
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, false
			}
			value, err = strconv.Unquote(quoted)
			if err != nil {
				return nil, false
			}
			rest = rest[len(quoted):]
		} else {
			end := strings.IndexByte(rest, ' ')
			if end < 0 {
				end = len(rest)
			}
			value = rest[:end]
			rest = rest[end:]
		}
		pairs = append(pairs, Attr{Key: key, Value: value})
		rest = strings.TrimLeft(rest, " ")
	}
	return pairs, len(pairs) > 0
}

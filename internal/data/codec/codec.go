// Package codec serializes projects, tasks and frames to the line-oriented
// text format used by the store: one record per line, tab-separated fields in
// a stable order, UTF-8, newline-terminated. The format is append-friendly
// and safe to grep, diff and commit.
//
// Fields beyond the ones a reader understands are preserved verbatim as an
// opaque tail and re-emitted on encode, so files written by a newer version
// round-trip losslessly through an older reader.
package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/kvisser/tempo/internal/core/model"
)

// FieldSep separates fields within a record. Validated names and tags can
// never contain it; free text is escaped.
const FieldSep = "\t"

const tagSep = ","

// Known field counts per record kind. Shorter lines are malformed; longer
// lines carry a forward-compatible tail.
const (
	projectFieldCount = 3
	taskFieldCount    = 3
	frameFieldCount   = 7
)

// EncodeProject renders a project as a single record line (without the
// trailing newline).
func EncodeProject(p *model.Project) string {
	fields := []string{
		p.Name,
		escape(p.Description),
		strings.Join(p.DefaultTags, tagSep),
	}
	return strings.Join(append(fields, p.Extra...), FieldSep)
}

// DecodeProject parses a project record line.
func DecodeProject(line string) (*model.Project, error) {
	fields, err := splitRecord(line, projectFieldCount)
	if err != nil {
		return nil, err
	}
	description, err := unescape(fields[1])
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	p, err := model.NewProject(fields[0], description, decodeTags(fields[2]))
	if err != nil {
		return nil, err
	}
	p.Extra = tail(fields, projectFieldCount)
	return p, nil
}

// EncodeTask renders a task as a single record line.
func EncodeTask(t *model.Task) string {
	fields := []string{
		t.Project,
		t.Name,
		escape(t.Description),
	}
	return strings.Join(append(fields, t.Extra...), FieldSep)
}

// DecodeTask parses a task record line.
func DecodeTask(line string) (*model.Task, error) {
	fields, err := splitRecord(line, taskFieldCount)
	if err != nil {
		return nil, err
	}
	description, err := unescape(fields[2])
	if err != nil {
		return nil, fmt.Errorf("description: %w", err)
	}
	t, err := model.NewTask(fields[0], fields[1], description)
	if err != nil {
		return nil, err
	}
	t.Extra = tail(fields, taskFieldCount)
	return t, nil
}

// EncodeFrame renders a frame as a single record line. A running frame has
// an empty end field.
func EncodeFrame(f *model.Frame) string {
	end := ""
	if !f.End.IsZero() {
		end = f.End.Format(time.RFC3339)
	}
	fields := []string{
		f.ID,
		f.Project,
		f.Task,
		f.Start.Format(time.RFC3339),
		end,
		strings.Join(f.Tags, tagSep),
		escape(f.Note),
	}
	return strings.Join(append(fields, f.Extra...), FieldSep)
}

// DecodeFrame parses a frame record line.
func DecodeFrame(line string) (*model.Frame, error) {
	fields, err := splitRecord(line, frameFieldCount)
	if err != nil {
		return nil, err
	}
	if fields[0] == "" {
		return nil, fmt.Errorf("empty frame id")
	}
	start, err := time.Parse(time.RFC3339, fields[3])
	if err != nil {
		return nil, fmt.Errorf("unparsable start timestamp %q", fields[3])
	}
	var end time.Time
	if fields[4] != "" {
		end, err = time.Parse(time.RFC3339, fields[4])
		if err != nil {
			return nil, fmt.Errorf("unparsable end timestamp %q", fields[4])
		}
	}
	note, err := unescape(fields[6])
	if err != nil {
		return nil, fmt.Errorf("note: %w", err)
	}
	f, err := model.NewFrame(fields[1], fields[2], start, decodeTags(fields[5]), note)
	if err != nil {
		return nil, err
	}
	f.ID = fields[0]
	f.End = end
	f.Extra = tail(fields, frameFieldCount)
	return f, nil
}

// splitRecord splits a line into fields and checks the minimum field count.
func splitRecord(line string, min int) ([]string, error) {
	fields := strings.Split(line, FieldSep)
	if len(fields) < min {
		return nil, fmt.Errorf("wrong field count: got %d, want at least %d", len(fields), min)
	}
	return fields, nil
}

func tail(fields []string, known int) []string {
	if len(fields) <= known {
		return nil
	}
	extra := make([]string, len(fields)-known)
	copy(extra, fields[known:])
	return extra
}

func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, tagSep)
}

// escape protects free-text fields (descriptions, notes) from the record and
// field delimiters. Empty string encodes an absent value.
func escape(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape")
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			return "", fmt.Errorf("unknown escape \\%c", s[i])
		}
	}
	return b.String(), nil
}

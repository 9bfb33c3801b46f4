package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed line of a JSON log file.
type LogEntry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any

	// Raw is the original line. Lines that are not JSON keep only Raw.
	Raw     string
	IsValid bool
}

// ViewerConfig filters entries.
type ViewerConfig struct {
	// Level drops entries below this level. Empty keeps all.
	Level string

	// Pattern keeps only entries whose raw line matches.
	Pattern *regexp.Regexp
}

// Viewer reads and formats log files written by Setup.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
}

// NewViewer creates a Viewer printing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{config: cfg, out: out}
}

// Tail returns the last n entries of path that pass the filters.
func (v *Viewer) Tail(path string, n int) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	const maxLine = 1024 * 1024
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var entries []LogEntry
	for scanner.Scan() {
		entry := parseLine(scanner.Text())
		if v.matches(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Print writes entries, one per line.
func (v *Viewer) Print(entries []LogEntry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, FormatEntry(e))
	}
}

// FormatEntry renders an entry as "15:04:05.000 LEVEL msg key=value ...",
// with attributes sorted by key.
func FormatEntry(e LogEntry) string {
	if !e.IsValid {
		return e.Raw
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %-5s %s", e.Time.Format("15:04:05.000"), strings.ToUpper(e.Level), e.Msg)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, e.Attrs[k])
	}
	return sb.String()
}

func parseLine(line string) LogEntry {
	entry := LogEntry{Raw: line}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return entry
	}

	entry.IsValid = true
	if s, ok := fields["time"].(string); ok {
		entry.Time, _ = time.Parse(time.RFC3339Nano, s)
	}
	entry.Level, _ = fields["level"].(string)
	entry.Msg, _ = fields["msg"].(string)
	delete(fields, "time")
	delete(fields, "level")
	delete(fields, "msg")
	entry.Attrs = fields
	return entry
}

func (v *Viewer) matches(e LogEntry) bool {
	if v.config.Level != "" && e.IsValid && LevelFromString(e.Level) < LevelFromString(v.config.Level) {
		return false
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

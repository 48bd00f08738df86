package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/delayboard/internal/config"
)

// eventRecord mirrors otel.Event for JSON decoding.
// We decode from JSONL rather than importing otel to keep this
// subcommand usable even if the event schema evolves.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	Source    string         `json:"source"`
	Seq       uint64         `json:"seq"`
	Cycle     uint64         `json:"cycle"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

// eventFilter selects which records are printed.
type eventFilter struct {
	kind    string
	level   string
	comp    string
	source  string
	session string
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level string) int {
	switch level {
	case "debug":
		return 0
	case "info", "":
		return 1
	case "warn":
		return 2
	case "error":
		return 3
	default:
		return 0
	}
}

func (f eventFilter) match(ev eventRecord) bool {
	if f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind) {
		return false
	}
	if f.level != "" && levelRank(ev.Level) < levelRank(f.level) {
		return false
	}
	if f.comp != "" && ev.Comp != f.comp {
		return false
	}
	if f.source != "" && ev.Source != f.source {
		return false
	}
	if f.session != "" && !strings.HasPrefix(ev.SessionID, f.session) {
		return false
	}
	return true
}

func formatEvent(ev eventRecord) string {
	ts := ev.Time.Format("15:04:05.000")
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "INFO"
	}

	parts := []string{fmt.Sprintf("%s %-5s [%-9s] %-16s", ts, lvl, ev.Comp, ev.Kind)}
	if ev.Source != "" {
		parts = append(parts, "src="+ev.Source)
	}
	if ev.Cycle > 0 {
		parts = append(parts, fmt.Sprintf("cycle=%d", ev.Cycle))
	}
	if ev.Seq > 0 {
		parts = append(parts, fmt.Sprintf("seq=%d", ev.Seq))
	}
	if ev.DurMs > 0 {
		parts = append(parts, fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Count > 0 {
		parts = append(parts, fmt.Sprintf("n=%d", ev.Count))
	}
	if ev.Msg != "" {
		parts = append(parts, ev.Msg)
	}
	if ev.Err != "" {
		parts = append(parts, "err="+ev.Err)
	}
	return strings.Join(parts, " ")
}

func eventsCmd() *cobra.Command {
	var (
		f       eventFilter
		tail    int
		follow  bool
		rawJSON bool
		path    string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the dashboard's JSONL event log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = filepath.Join(config.ConfigDir(), "events.jsonl")
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("event log not found at %s (run delayboard first): %w", path, err)
			}
			defer file.Close()

			out := cmd.OutOrStdout()
			show := func(l parsedLine) {
				if rawJSON {
					fmt.Fprintln(out, string(l.raw))
					return
				}
				fmt.Fprintln(out, formatEvent(l.ev))
			}

			for _, l := range readTailLines(file, tail, f.match) {
				show(l)
			}
			if !follow {
				return nil
			}

			// Follow mode: poll for appended lines until interrupted.
			reader := bufio.NewReader(file)
			for {
				line, err := reader.ReadBytes('\n')
				if err != nil {
					if err == io.EOF {
						select {
						case <-cmd.Context().Done():
							return nil
						case <-time.After(100 * time.Millisecond):
						}
						continue
					}
					return err
				}
				line = trimLine(line)
				if len(line) == 0 {
					continue
				}
				var ev eventRecord
				if json.Unmarshal(line, &ev) != nil {
					continue
				}
				if f.match(ev) {
					show(parsedLine{ev: ev, raw: line})
				}
			}
		},
	}
	cmd.Flags().IntVar(&tail, "tail", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow mode (like tail -f)")
	cmd.Flags().StringVar(&f.kind, "kind", "", "Filter by event kind prefix (e.g. 'source')")
	cmd.Flags().StringVar(&f.level, "level", "", "Minimum level: debug, info, warn, error")
	cmd.Flags().StringVar(&f.comp, "comp", "", "Filter by component name")
	cmd.Flags().StringVar(&f.source, "source", "", "Filter by source or line code")
	cmd.Flags().StringVar(&f.session, "session", "", "Filter by session id prefix")
	cmd.Flags().BoolVar(&rawJSON, "raw", false, "Output raw JSON lines")
	cmd.Flags().StringVar(&path, "file", "", "Event log path (default ~/.delayboard/events.jsonl)")
	return cmd
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines reads r and returns the last n lines matching the filter.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	scanner := bufio.NewScanner(r)
	// Allow large lines (some events may have big Extra maps)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	var ring []parsedLine
	if n <= 0 {
		return ring
	}
	ring = make([]parsedLine, 0, n)

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev eventRecord
		if json.Unmarshal(raw, &ev) != nil {
			continue
		}
		if !match(ev) {
			continue
		}
		// scanner reuses its buffer
		rawCopy := make([]byte, len(raw))
		copy(rawCopy, raw)

		if len(ring) < n {
			ring = append(ring, parsedLine{ev: ev, raw: rawCopy})
		} else {
			copy(ring, ring[1:])
			ring[n-1] = parsedLine{ev: ev, raw: rawCopy}
		}
	}
	return ring
}

func trimLine(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}

func durPrecision(ms float64) int {
	if ms >= 100 {
		return 0
	}
	if ms >= 1 {
		return 1
	}
	return 2
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (rt *runtime) printJSON(v any) error {
	return printJSON(rt.out, v)
}

// printTable writes rows under an upper-cased header, columns aligned.
func (rt *runtime) printTable(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(rt.out, 0, 0, 2, ' ', 0)
	upper := make([]string, len(header))
	for i, h := range header {
		upper[i] = strings.ToUpper(h)
	}
	_, _ = fmt.Fprintln(tw, strings.Join(upper, "\t"))
	for _, r := range rows {
		_, _ = fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

// print emits v as JSON, or as a table built by rows.
func (rt *runtime) print(v any, header []string, rows func() [][]string) error {
	if rt.opts.output == outputJSON {
		return rt.printJSON(v)
	}
	return rt.printTable(header, rows())
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

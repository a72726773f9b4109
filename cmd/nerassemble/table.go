package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"nerassemble/internal/batch"
	"nerassemble/internal/ledger"
	"nerassemble/internal/preflight"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

var titleCaser = cases.Title(language.English)

// stdoutIsTerminal selects rounded box drawing for interactive output and
// plain ASCII otherwise so piped output stays greppable.
var stdoutIsTerminal = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if stdoutIsTerminal {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render() + "\n"
}

// statusLabel turns "published" or "not_found" into "Published" or "Not Found".
func statusLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

func renderSummary(summary batch.Summary) string {
	rows := make([][]string, 0, len(summary.Files))
	for _, f := range summary.Files {
		detail := f.Reason
		if f.Status == ledger.FileFailed && f.Stage != "" {
			detail = fmt.Sprintf("%s: %s", f.Stage, truncate(f.Reason, 80))
		}
		rows = append(rows, []string{
			f.Name,
			statusLabel(string(f.Status)),
			fmt.Sprintf("%d", f.Records),
			formatDuration(f.Elapsed),
			detail,
		})
	}
	return renderTable(
		[]string{"File", "Status", "Records", "Elapsed", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderPreflight(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		if !r.Passed {
			status = "failed"
		}
		rows = append(rows, []string{r.Name, statusLabel(status), r.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil)
}

func renderRuns(runs []ledger.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			statusLabel(string(run.Status)),
			fmt.Sprintf("%d", run.Published),
			fmt.Sprintf("%d", run.Skipped),
			fmt.Sprintf("%d", run.Failed),
			formatDuration(run.Duration()),
			filepath.Base(run.InputDir),
		})
	}
	return renderTable(
		[]string{"Run", "Started", "Status", "Published", "Skipped", "Failed", "Elapsed", "Input"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func renderFiles(files []ledger.File) string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		kind := f.ErrorKind
		if kind != "" {
			kind = statusLabel(kind)
		}
		rows = append(rows, []string{
			filepath.Base(f.InputPath),
			statusLabel(string(f.Status)),
			fmt.Sprintf("%d", f.Records),
			formatDuration(f.Elapsed),
			kind,
			truncate(f.ErrorMessage, 80),
		})
	}
	return renderTable(
		[]string{"File", "Status", "Records", "Elapsed", "Error", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

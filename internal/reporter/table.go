package reporter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Nomadcxx/jellyname/internal/detector"
	"github.com/Nomadcxx/jellyname/internal/naming"
	"github.com/Nomadcxx/jellyname/internal/organizer"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

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

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func number(n detector.Number) string {
	if !n.Valid {
		return "-"
	}
	return fmt.Sprintf("%02d", n.Value)
}

// PreviewTable renders previews as a numbered table
func PreviewTable(previews []naming.Preview) string {
	rows := make([][]string, 0, len(previews))
	for i, p := range previews {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			p.Original,
			p.New,
			number(p.Season),
			number(p.Episode),
		})
	}
	return renderTable(
		[]string{"#", "Original", "New name", "Season", "Episode"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
	)
}

// OperationsTable renders planned operations, marking files that keep their name
func OperationsTable(ops []organizer.Operation) string {
	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		target := filepath.Base(op.Target)
		if op.Noop() {
			target = "(unchanged)"
		}
		rows = append(rows, []string{
			filepath.Base(op.Source),
			target,
			string(op.Kind),
			FormatBytes(op.Size),
		})
	}
	return renderTable(
		[]string{"Source", "Target", "Kind", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

// ResultTable renders the files of a processed archive
func ResultTable(result *organizer.ProcessingResult) string {
	rows := make([][]string, 0, len(result.Files))
	for _, f := range result.Files {
		rows = append(rows, []string{
			f.Filename,
			f.NewFilename,
			string(f.Type),
			FormatBytes(f.Size),
		})
	}
	return renderTable(
		[]string{"Original", "New name", "Type", "Size"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	)
}

// JournalTable renders the operations recorded in a journal
func JournalTable(j *organizer.Journal) string {
	rows := make([][]string, 0, len(j.Operations))
	for _, op := range j.Operations {
		status := "ok"
		switch {
		case op.Skipped:
			status = "skipped"
		case !op.Success:
			status = "failed: " + op.Error
		}
		rows = append(rows, []string{
			op.Type,
			filepath.Base(op.OldPath),
			filepath.Base(op.NewPath),
			status,
		})
	}
	return renderTable([]string{"Type", "From", "To", "Status"}, rows, nil)
}

// Summary describes a processed archive in a few lines, errors included
func Summary(result *organizer.ProcessingResult) string {
	var sb strings.Builder
	if result.Success {
		sb.WriteString(fmt.Sprintf("Processed %d file(s), %s, into %s\n",
			len(result.Files), FormatBytes(result.TotalSize), result.ExtractionPath))
	} else {
		sb.WriteString(fmt.Sprintf("Failed to process %s\n", filepath.Base(result.Archive)))
	}
	for _, e := range result.Errors {
		sb.WriteString("  - " + e + "\n")
	}
	return sb.String()
}

// DetectionTable renders what was inferred from each filename
func DetectionTable(infos []detector.EpisodeInfo) string {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{
			info.OriginalFilename,
			info.ShowName,
			number(info.Season),
			number(info.Episode),
			info.Quality,
			info.Audio,
		})
	}
	return renderTable(
		[]string{"File", "Show", "Season", "Episode", "Quality", "Audio"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

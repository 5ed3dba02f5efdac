package main

import (
	"fmt"
	"strconv"

	"github.com/claude/liftlog/internal/ingest"
	"github.com/claude/liftlog/internal/ingest/setgraph"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, col := range rightAligned {
		configs = append(configs, table.ColumnConfig{
			Number:      col,
			Align:       text.AlignRight,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func proposalTable(proposals []setgraph.Proposal, names map[string]string) string {
	rows := make([][]string, 0, len(proposals))
	for _, p := range proposals {
		target := "(new custom exercise)"
		if p.ExerciseID != nil && *p.ExerciseID != "" {
			target = *p.ExerciseID
			if name, ok := names[target]; ok {
				target = fmt.Sprintf("%s (%s)", name, target)
			}
		}
		review := ""
		if p.NeedsMapping {
			review = "needs review"
		}
		rows = append(rows, []string{p.SetgraphName, strconv.Itoa(p.SetCount), target, p.Source, review})
	}
	return renderTable([]string{"Setgraph name", "Sets", "Exercise", "Source", ""}, rows, 2)
}

func resultTable(res *ingest.Result) string {
	return renderTable(
		[]string{"Rows", "Workouts", "Sets", "New exercises", "Errors"},
		[][]string{{
			strconv.Itoa(res.RowsReceived),
			strconv.Itoa(res.WorkoutsCreated),
			strconv.Itoa(res.SetsCreated),
			strconv.Itoa(res.ExercisesCreated),
			strconv.Itoa(len(res.Errors)),
		}},
		1, 2, 3, 4, 5,
	)
}

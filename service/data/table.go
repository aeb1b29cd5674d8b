package data

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteSessionsTable renders every persisted session with the last coach
// stats reported for it.
func WriteSessionsTable(w io.Writer, svc IService, useColors bool) error {
	sessions, err := svc.RetrieveSessions()
	if err != nil {
		return err
	}

	calibrated, pending := fmt.Sprint, fmt.Sprint
	if useColors {
		calibrated = color.New(color.FgGreen).SprintFunc()
		pending = color.New(color.FgYellow).SprintFunc()
	}

	var data [][]string
	for _, s := range sessions {
		row := []string{
			s.ID,
			s.Exercise,
			s.FramerType,
			s.Source,
			time.Unix(s.StartupTime, 0).Format(time.DateTime),
		}

		stats, err := svc.RetrieveCoachStats(s.ID)
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			data = append(data, append(row, "-", "-", "-", "-", pending("no stats")))
			continue
		}

		last := stats[len(stats)-1]
		state := pending("calibrating")
		if last.Calibrated {
			state = calibrated("calibrated")
		}
		data = append(data, append(row,
			strconv.Itoa(last.Cycles),
			strconv.Itoa(last.Remaps),
			strconv.Itoa(last.SkippedRemaps),
			strconv.Itoa(last.Errors),
			state,
		))
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Session", "Exercise", "Framer", "Source", "Started", "Cycles", "Remaps", "Skipped", "Errors", "State"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// WriteErrorsTable renders the persisted errors, oldest first.
func WriteErrorsTable(w io.Writer, svc IService) error {
	records, err := svc.RetrieveErrors()
	if err != nil {
		return err
	}

	var data [][]string
	for _, r := range records {
		data = append(data, []string{
			time.Unix(r.Timestamp, 0).Format(time.DateTime),
			r.Processor,
			r.Message,
			r.Inner,
		})
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Time", "Processor", "Message", "Error"})
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

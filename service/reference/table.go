package reference

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/khaledhikmat/fit-coach/model"
	"github.com/khaledhikmat/fit-coach/pose"
)

// LengthsOf reads path as a dataset and measures it, or as a lengths file
// when it is not a dataset.
func LengthsOf(path string) (model.Lengths, error) {
	set, setErr := LoadFrameSet(path)
	if setErr == nil {
		return BuildLengths(set), nil
	}
	lengths, err := LoadLengths(path)
	if err != nil {
		return nil, errors.Join(setErr, err)
	}
	return lengths, nil
}

// WriteLengthsTable renders lengths in segment table order. Segments the
// data does not cover are listed as missing.
func WriteLengthsTable(w io.Writer, lengths model.Lengths, useColors bool) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header([]string{"Segment", "DX", "DY", "Length", "Angle"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	missing := fmt.Sprint
	if useColors {
		missing = color.New(color.FgYellow).SprintFunc()
	}

	var data [][]string
	for _, seg := range pose.Segments {
		l, ok := lengths[seg.Name]
		if !ok {
			data = append(data, []string{seg.Name, "-", "-", missing("missing"), "-"})
			continue
		}
		data = append(data, []string{
			seg.Name,
			fmt.Sprintf("%.2f", l.DX),
			fmt.Sprintf("%.2f", l.DY),
			fmt.Sprintf("%.2f", l.Length),
			fmt.Sprintf("%.1f°", l.Angle()),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

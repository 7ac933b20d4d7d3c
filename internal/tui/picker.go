package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/mrsinham/dicomview/internal/dicom"
	"github.com/mrsinham/dicomview/internal/study"
)

// PickSeries asks the user which series to open. A single series is
// returned without prompting.
func PickSeries(refs []dicom.SeriesRef) (dicom.SeriesRef, error) {
	switch len(refs) {
	case 0:
		return dicom.SeriesRef{}, dicom.ErrNoSeries
	case 1:
		return refs[0], nil
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Series").
				Description("Select the series to open").
				Options(seriesOptions(refs)...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return dicom.SeriesRef{}, fmt.Errorf("series picker: %w", err)
	}
	return refs[choice], nil
}

func seriesOptions(refs []dicom.SeriesRef) []huh.Option[int] {
	opts := make([]huh.Option[int], len(refs))
	for i, r := range refs {
		opts[i] = huh.NewOption(seriesLabel(r), i)
	}
	return opts
}

func seriesLabel(r dicom.SeriesRef) string {
	name, date := "", ""
	if r.Patient != nil {
		name = study.FormatPersonName(r.Patient.Name)
	}
	if r.Study != nil {
		date = study.FormatDate(r.Study.Date)
	}
	if name == "" {
		name = "Unknown patient"
	}
	label := name
	if date != "" {
		label += " · " + date
	}
	if r.Series != nil {
		label += " · " + r.Series.Label()
	}
	return label
}

// Package dicom provides the series provider and image decoder of the viewer,
// plus a synthetic series writer used for demos and tests.
package dicom

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomview/internal/study"
)

var (
	// ErrNoSeries is returned when a directory holds no readable DICOM image.
	ErrNoSeries = errors.New("no DICOM series found")
	// ErrSeriesNotFound is returned by Find when no series matches.
	ErrSeriesNotFound = errors.New("series not found")
)

// SeriesRef locates a series within its patient and study.
type SeriesRef struct {
	Patient *study.Patient
	Study   *study.Study
	Series  *study.ImageSeries
}

// Info returns the overlay metadata of the series.
func (r SeriesRef) Info() study.Info {
	info := study.NewInfo(r.Patient, r.Study)
	if r.Series != nil && r.Series.Modality != "" {
		info.Modality = r.Series.Modality
	}
	return info
}

// Index is the patient -> study -> series tree of a scanned directory.
type Index struct {
	Root     string
	Patients []*study.Patient
	// Skipped counts files that could not be parsed as DICOM.
	Skipped int
}

// Scan walks root recursively and indexes every DICOM image it can parse.
// Unreadable files are skipped and logged. Images are sorted by instance
// number within each series.
func Scan(ctx context.Context, root string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index{Root: root}

	patients := make(map[string]*study.Patient)
	studies := make(map[string]*study.Study)
	series := make(map[string]*study.ImageSeries)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if name == "DICOMDIR" || strings.HasPrefix(name, ".") {
			return nil
		}

		ds, perr := parseHeaderTolerant(path)
		if perr != nil {
			idx.Skipped++
			logger.Debug("skipping file", slog.String("path", path), slog.Any("error", perr))
			return nil
		}
		if stringValue(ds, tag.SOPInstanceUID) == "" && stringValue(ds, tag.SeriesInstanceUID) == "" {
			idx.Skipped++
			logger.Debug("skipping non-image file", slog.String("path", path))
			return nil
		}

		addImage(ds, path, patients, studies, series)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	for _, s := range series {
		sort.SliceStable(s.Images, func(i, j int) bool {
			a, b := s.Images[i], s.Images[j]
			if a.InstanceNumber != b.InstanceNumber {
				return a.InstanceNumber < b.InstanceNumber
			}
			return a.Source < b.Source
		})
	}
	for _, st := range studies {
		sort.Slice(st.Series, func(i, j int) bool {
			if st.Series[i].Number != st.Series[j].Number {
				return st.Series[i].Number < st.Series[j].Number
			}
			return st.Series[i].UID < st.Series[j].UID
		})
	}
	for _, p := range patients {
		sort.Slice(p.Studies, func(i, j int) bool {
			if p.Studies[i].Date != p.Studies[j].Date {
				return p.Studies[i].Date < p.Studies[j].Date
			}
			return p.Studies[i].UID < p.Studies[j].UID
		})
		idx.Patients = append(idx.Patients, p)
	}
	sort.Slice(idx.Patients, func(i, j int) bool { return idx.Patients[i].ID < idx.Patients[j].ID })

	if len(series) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoSeries)
	}
	logger.Info("indexed directory",
		slog.String("root", root),
		slog.Int("patients", len(patients)),
		slog.Int("series", len(series)),
		slog.Int("skipped", idx.Skipped))
	return idx, nil
}

func addImage(ds dicom.Dataset, path string,
	patients map[string]*study.Patient, studies map[string]*study.Study, series map[string]*study.ImageSeries) {

	patientID := stringValue(ds, tag.PatientID)
	p, ok := patients[patientID]
	if !ok {
		p = &study.Patient{
			ID:        patientID,
			Name:      stringValue(ds, tag.PatientName),
			BirthDate: stringValue(ds, tag.PatientBirthDate),
			Sex:       stringValue(ds, tag.PatientSex),
		}
		patients[patientID] = p
	}

	studyUID := stringValue(ds, tag.StudyInstanceUID)
	studyKey := patientID + "|" + studyUID
	st, ok := studies[studyKey]
	if !ok {
		st = &study.Study{
			UID:             studyUID,
			ID:              stringValue(ds, tag.StudyID),
			Date:            stringValue(ds, tag.StudyDate),
			Time:            stringValue(ds, tag.StudyTime),
			Description:     stringValue(ds, tag.StudyDescription),
			AccessionNumber: stringValue(ds, tag.AccessionNumber),
			Modality:        stringValue(ds, tag.Modality),
		}
		studies[studyKey] = st
		p.Studies = append(p.Studies, st)
	}

	seriesUID := stringValue(ds, tag.SeriesInstanceUID)
	seriesKey := studyKey + "|" + seriesUID
	s, ok := series[seriesKey]
	if !ok {
		s = &study.ImageSeries{
			UID:         seriesUID,
			Number:      intValue(ds, tag.SeriesNumber),
			Description: stringValue(ds, tag.SeriesDescription),
			Modality:    stringValue(ds, tag.Modality),
			BodyPart:    stringValue(ds, tag.BodyPartExamined),
		}
		series[seriesKey] = s
		st.Series = append(st.Series, s)
	}

	s.Images = append(s.Images, imageFromDataset(ds, path))
}

func imageFromDataset(ds dicom.Dataset, path string) study.Image {
	img := study.Image{
		InstanceNumber: intValue(ds, tag.InstanceNumber),
		SOPInstanceUID: stringValue(ds, tag.SOPInstanceUID),
		SliceThickness: floatValue(ds, tag.SliceThickness),
		SliceLocation:  floatValue(ds, tag.SliceLocation),
		Rows:           intValue(ds, tag.Rows),
		Columns:        intValue(ds, tag.Columns),
		WindowCenter:   floatValue(ds, tag.WindowCenter),
		WindowWidth:    floatValue(ds, tag.WindowWidth),
		Source:         path,
	}
	if ps := multiValue(ds, tag.PixelSpacing); ps != "" {
		img.PixelSpacing = study.ParsePixelSpacing(ps)
	}
	return img
}

// Series returns every series of the index, patient by patient.
func (x *Index) Series() []SeriesRef {
	var refs []SeriesRef
	for _, p := range x.Patients {
		for _, st := range p.Studies {
			for _, s := range st.Series {
				refs = append(refs, SeriesRef{Patient: p, Study: st, Series: s})
			}
		}
	}
	return refs
}

// First returns the first series of the index.
func (x *Index) First() (SeriesRef, error) {
	refs := x.Series()
	if len(refs) == 0 {
		return SeriesRef{}, ErrNoSeries
	}
	return refs[0], nil
}

// Find returns the series matching the given identifiers. Empty identifiers
// match anything.
func (x *Index) Find(patientID, studyUID, seriesUID string) (SeriesRef, error) {
	for _, r := range x.Series() {
		if patientID != "" && r.Patient.ID != patientID {
			continue
		}
		if studyUID != "" && r.Study.UID != studyUID {
			continue
		}
		if seriesUID != "" && r.Series.UID != seriesUID {
			continue
		}
		return r, nil
	}
	return SeriesRef{}, fmt.Errorf("patient %q study %q series %q: %w", patientID, studyUID, seriesUID, ErrSeriesNotFound)
}

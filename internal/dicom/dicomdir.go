package dicom

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// OrganizeFiles moves generated files into the standard PT*/ST*/SE*/IM*
// hierarchy under outputDir and returns the files with their new paths.
func OrganizeFiles(outputDir string, files []GeneratedFile, quiet bool) ([]GeneratedFile, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to organize")
	}

	// patient -> study -> series -> files
	groups := make(map[string]map[string]map[string][]int)
	for i, f := range files {
		studies, ok := groups[f.PatientID]
		if !ok {
			studies = make(map[string]map[string][]int)
			groups[f.PatientID] = studies
		}
		series, ok := studies[f.StudyUID]
		if !ok {
			series = make(map[string][]int)
			studies[f.StudyUID] = series
		}
		series[f.SeriesUID] = append(series[f.SeriesUID], i)
	}

	out := make([]GeneratedFile, len(files))
	copy(out, files)

	for patientIdx, patientID := range sortedKeys(groups) {
		studies := groups[patientID]
		for studyIdx, studyUID := range sortedKeys(studies) {
			seriesGroups := studies[studyUID]
			for seriesIdx, seriesUID := range sortedKeys(seriesGroups) {
				seriesPath := filepath.Join(outputDir,
					fmt.Sprintf("PT%06d", patientIdx),
					fmt.Sprintf("ST%06d", studyIdx),
					fmt.Sprintf("SE%06d", seriesIdx))
				if err := os.MkdirAll(seriesPath, 0755); err != nil {
					return nil, fmt.Errorf("create series directory: %w", err)
				}

				idx := seriesGroups[seriesUID]
				sort.Slice(idx, func(i, j int) bool {
					return files[idx[i]].InstanceNumber < files[idx[j]].InstanceNumber
				})
				for imageIdx, i := range idx {
					destPath := filepath.Join(seriesPath, fmt.Sprintf("IM%06d", imageIdx+1))
					if err := os.Rename(files[i].Path, destPath); err != nil {
						return nil, fmt.Errorf("move file %s to %s: %w", files[i].Path, destPath, err)
					}
					out[i].Path = destPath
				}
			}
		}
	}

	if !quiet {
		fmt.Printf("✓ Organized %d files into PT*/ST*/SE* structure\n", len(files))
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// parseHeaderTolerant parses a DICOM file element-by-element without pixel
// data, keeping every element read before the first error.
func parseHeaderTolerant(path string) (dicom.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return dicom.Dataset{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return dicom.Dataset{}, err
	}

	p, err := dicom.NewParser(f, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return dicom.Dataset{}, err
	}

	var elements []*dicom.Element
	for {
		elem, err := p.Next()
		if err != nil {
			// stop on any error, keep what was read
			break
		}
		elements = append(elements, elem)
	}

	if len(elements) == 0 {
		return dicom.Dataset{}, fmt.Errorf("no elements parsed")
	}

	meta := p.GetMetadata()
	return dicom.Dataset{Elements: append(meta.Elements, elements...)}, nil
}

// stringValue returns the first value of a string element, or "".
func stringValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return ""
	}
	if v, ok := elem.Value.GetValue().([]string); ok {
		if len(v) == 0 {
			return ""
		}
		return strings.TrimSpace(v[0])
	}
	return strings.Trim(elem.Value.String(), " []")
}

// multiValue joins all values of a string element with a backslash.
func multiValue(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return ""
	}
	if v, ok := elem.Value.GetValue().([]string); ok {
		return strings.Join(v, `\`)
	}
	return strings.Trim(elem.Value.String(), " []")
}

func intValue(ds dicom.Dataset, t tag.Tag) int {
	elem, err := ds.FindElementByTag(t)
	if err != nil || elem == nil {
		return 0
	}
	switch v := elem.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0]
		}
	case []string:
		if len(v) > 0 {
			n, _ := strconv.Atoi(strings.TrimSpace(v[0]))
			return n
		}
	}
	return 0
}

func floatValue(ds dicom.Dataset, t tag.Tag) float64 {
	f, _ := strconv.ParseFloat(stringValue(ds, t), 64)
	return f
}

// Package coverage summarizes the Cobertura XML report written by pytest-cov.
package coverage

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// ErrNoReport is returned when the report file does not exist.
var ErrNoReport = errors.New("coverage report not found")

// Summary holds the headline numbers of a coverage report.
type Summary struct {
	Path         string
	LineRate     float64
	BranchRate   float64
	LinesCovered int
	LinesValid   int
	Size         int64
}

type report struct {
	XMLName      xml.Name `xml:"coverage"`
	LineRate     float64  `xml:"line-rate,attr"`
	BranchRate   float64  `xml:"branch-rate,attr"`
	LinesCovered int      `xml:"lines-covered,attr"`
	LinesValid   int      `xml:"lines-valid,attr"`
}

// Summarize reads the report at path.
func Summarize(afs afero.Fs, path string) (*Summary, error) {
	info, err := afs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoReport, path)
		}
		return nil, fmt.Errorf("failed to stat coverage report %s: %w", path, err)
	}

	f, err := afs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open coverage report %s: %w", path, err)
	}
	defer f.Close()

	var r report
	if err := xml.NewDecoder(f).Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to parse coverage report %s: %w", path, err)
	}

	return &Summary{
		Path:         path,
		LineRate:     r.LineRate,
		BranchRate:   r.BranchRate,
		LinesCovered: r.LinesCovered,
		LinesValid:   r.LinesValid,
		Size:         info.Size(),
	}, nil
}

// String renders e.g. "91.3% lines, 84.0% branches (1.2 MB)".
func (s *Summary) String() string {
	return fmt.Sprintf("%.1f%% lines, %.1f%% branches (%s)",
		s.LineRate*100, s.BranchRate*100, humanize.Bytes(uint64(s.Size)))
}

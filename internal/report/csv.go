package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/flow.report/internal/crossing"
	"github.com/banshee-data/flow.report/internal/fsutil"
	"github.com/banshee-data/flow.report/internal/monitoring"
)

// WriteCounts writes the count summary: a direction,count header, one row
// per line in the given order, an empty row and a duration_sec row with the
// elapsed seconds to two decimals.
func WriteCounts(w io.Writer, counts []crossing.LineCount, elapsed time.Duration) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"direction", "count"}); err != nil {
		return err
	}
	for _, c := range counts {
		if err := cw.Write([]string{c.Name, strconv.Itoa(c.Count)}); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{}); err != nil {
		return err
	}
	if err := cw.Write([]string{"duration_sec", fmt.Sprintf("%.2f", elapsed.Seconds())}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// CSVWriter persists the count summary to Path.
type CSVWriter struct {
	Path string
	FS   fsutil.FileSystem // Defaults to the OS filesystem
}

// Persist implements pipeline.Persister.
func (c *CSVWriter) Persist(counts []crossing.LineCount, elapsed time.Duration) error {
	err := fsutil.WriteFileAtomic(fileSystem(c.FS), c.Path, func(w io.Writer) error {
		return WriteCounts(w, counts, elapsed)
	})
	if err != nil {
		return fmt.Errorf("write counts csv: %w", err)
	}
	monitoring.Logf("[report] counts saved to %s", c.Path)
	return nil
}

func fileSystem(fsys fsutil.FileSystem) fsutil.FileSystem {
	if fsys == nil {
		return fsutil.OSFileSystem{}
	}
	return fsys
}

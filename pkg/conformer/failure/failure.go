// Package failure reports the containers that ended a run without any variant.
package failure

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

// FileSuffix is appended to the main output file to name the failure file.
const FileSuffix = ".failed.smi"

// Record describes one failed container.
type Record struct {
	ContainerID int
	// Original is the structure as it was given, before any transformation.
	Original string
	Name     string
}

// Line returns the record as written to the failure file.
func (r Record) Line() string {
	return r.Original + "\t" + r.Name
}

// CollectFailures returns one record per container with no variant, in
// container order. It does not modify the containers.
func CollectFailures(containers []*model.Container) []Record {
	var failed []Record

	for _, ctn := range containers {
		if !ctn.Failed() {
			continue
		}
		failed = append(failed, Record{
			ContainerID: ctn.ID(),
			Original:    ctn.Original,
			Name:        ctn.Name,
		})
	}

	return failed
}

// Write writes the records one per line. Lines are separated by "\n" and
// the last one has no trailing newline.
func Write(w io.Writer, records []Record) error {
	lines := make([]string, len(records))
	for i, rec := range records {
		lines[i] = rec.Line()
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	if err != nil {
		return errors.Wrap(err, "unable to write failed molecules")
	}

	return nil
}

// Path returns the failure file that goes with outputFile.
func Path(outputFile string) string {
	return outputFile + FileSuffix
}

// WriteFile writes the failure file next to outputFile. Nothing is written
// when there is no record. It returns the path written, if any.
func WriteFile(outputFile string, records []Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	path := Path(outputFile)

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create file %s", path)
	}

	err = Write(file, records)
	if err != nil {
		_ = file.Close()

		return "", err
	}

	err = file.Close()
	if err != nil {
		return "", errors.Wrapf(err, "unable to close file %s", path)
	}

	return path, nil
}

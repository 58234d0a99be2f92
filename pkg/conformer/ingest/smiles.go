// Package ingest reads input records from SMILES files.
package ingest

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-conformer/pkg/conformer/model"
)

var ErrUnsupportedSource = errors.New("unsupported source file")

// maxLine bounds the length of one input line.
const maxLine = 1 << 20

// ReadSMILES parses one record per non blank line: the first whitespace
// separated token is the structure and the remaining tokens, joined by a
// single space, are the name. Names may be empty.
func ReadSMILES(r io.Reader) ([]model.InputRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var records []model.InputRecord

	for scanner.Scan() {
		chunks := strings.Fields(scanner.Text())
		if len(chunks) == 0 {
			continue
		}

		records = append(records, model.InputRecord{
			Structure: chunks[0],
			Name:      strings.Join(chunks[1:], " "),
			Props:     map[string]string{},
		})
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "unable to read smiles")
	}

	return records, nil
}

// ReadFile reads a .smi or .can file.
func ReadFile(path string) ([]model.InputRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".smi", ".can":
	default:
		return nil, errors.Wrapf(ErrUnsupportedSource, "%s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	records, err := ReadSMILES(file)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}

	return records, nil
}

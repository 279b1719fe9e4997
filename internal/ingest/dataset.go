package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Sumanthkatapally/KG-Builder-Marist-Poll/internal/types"
)

// Dataset is a loaded tabular survey dataset.
type Dataset struct {
	Header []string
	Rows   []map[string]string
}

// LoadDataset reads a CSV file into memory. The first row is the header;
// every column name must be non-empty and unique.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.WrapError(types.DATASET_INVALID, "failed to open dataset", err)
	}
	defer f.Close()

	return ReadDataset(f)
}

// ReadDataset parses CSV content from a reader.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, types.NewError(types.DATASET_INVALID, "dataset is empty")
	}
	if err != nil {
		return nil, types.WrapError(types.DATASET_INVALID, "failed to read dataset header", err)
	}

	seen := make(map[string]bool, len(header))
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			return nil, types.NewError(types.DATASET_INVALID, fmt.Sprintf("column %d has an empty name", i))
		}
		if seen[header[i]] {
			return nil, types.NewError(types.DATASET_INVALID, fmt.Sprintf("duplicate column %q", header[i]))
		}
		seen[header[i]] = true
	}

	ds := &Dataset{Header: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.WrapError(types.DATASET_INVALID,
				fmt.Sprintf("failed to read dataset row %d", len(ds.Rows)+2), err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		ds.Rows = append(ds.Rows, row)
	}

	return ds, nil
}

// DOIPub - DOI Publication Workflow Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/doipub

package externaldoi

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadDOIs reads one DOI per row from the first CSV column. Resolver URLs
// are normalized; header rows, blanks and duplicates are skipped.
func ReadDOIs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var dois []string
	seen := make(map[string]bool)
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if len(row) == 0 {
			continue
		}
		doi := NormalizeDOI(strings.TrimPrefix(row[0], "\ufeff"))
		if !strings.HasPrefix(doi, "10.") || seen[doi] {
			continue
		}
		seen[doi] = true
		dois = append(dois, doi)
	}
	return dois, nil
}

// ReadDOIsFile reads DOIs from the CSV file at path.
func ReadDOIsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return ReadDOIs(f)
}

package storage

import "io"

// NewCSVWriterTo writes the export to w instead of a file.
func NewCSVWriterTo(w io.Writer) (*CSVWriter, error) {
	return newCSVWriter(w, nil)
}

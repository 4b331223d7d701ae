package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/linkrank/pkg/errors"
	"github.com/matzehuels/linkrank/pkg/rank"
)

// Format selects an output encoding.
type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	YAML Format = "yaml"
)

// DefaultFile is the results file written when no path is given.
const DefaultFile = "pagerank_results.csv"

// Header is the CSV header row.
var Header = []string{"Index", "PageRank", "Name"}

// ParseFormat accepts csv, json, yaml and yml (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv", "":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", errors.New(errors.ErrCodeInvalidArguments, "unknown format %q (csv, json, yaml)", s)
}

// FormatFromPath infers the format from a file extension, falling back to
// CSV.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return CSV
	}
	return f
}

// WriteCSV writes entries as CSV in the order given.
func WriteCSV(w io.Writer, entries []rank.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	row := make([]string, 3)
	for _, e := range entries {
		row[0] = strconv.Itoa(e.Index)
		row[1] = strconv.FormatFloat(e.Score, 'g', -1, 64)
		row[2] = e.ID
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON encodes doc as indented JSON.
func WriteJSON(w io.Writer, doc any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteYAML encodes doc as YAML.
func WriteYAML(w io.Writer, doc any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return enc.Close()
}

// Write encodes in format f. CSV uses entries; JSON and YAML encode doc, or
// entries when doc is nil.
func Write(w io.Writer, f Format, entries []rank.Entry, doc any) error {
	if doc == nil {
		doc = entries
	}
	switch f {
	case CSV:
		return WriteCSV(w, entries)
	case JSON:
		return WriteJSON(w, doc)
	case YAML:
		return WriteYAML(w, doc)
	}
	return errors.New(errors.ErrCodeUnsupported, "unsupported format %q", f)
}

// WriteFile writes to path via [Write]. The file is created or truncated.
func WriteFile(path string, f Format, entries []rank.Entry, doc any) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(out, f, entries, doc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

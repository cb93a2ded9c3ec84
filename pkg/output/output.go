// Package output renders feature results in the formats the CLI offers.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	cerrors "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/errors"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
)

// Formats supported by Encode.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatCSV  = "csv"
)

// Valid reports whether format names a supported encoder.
func Valid(format string) bool {
	switch format {
	case FormatJSON, FormatYAML, FormatCSV:
		return true
	}
	return false
}

// Encode writes v to w in the requested format. CSV is tabular and only
// accepts record lists or result envelopes carrying one.
func Encode(w io.Writer, format string, v interface{}) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return nil
	case FormatCSV:
		records, err := tabular(v)
		if err != nil {
			return err
		}
		return encodeCSV(w, records)
	default:
		return cerrors.E("output.Encode", cerrors.KindInvalidArgument,
			fmt.Sprintf("unknown output format %q", format), nil)
	}
}

// tabular extracts the record list out of v.
func tabular(v interface{}) ([]feature.Record, error) {
	switch t := v.(type) {
	case []feature.Record:
		return t, nil
	case *feature.RawResult:
		return t.Data, nil
	case *feature.PrimaryResult:
		return t.Data, nil
	case *feature.SecondaryResult:
		return t.Data, nil
	default:
		return nil, cerrors.E("output.Encode", cerrors.KindInvalidArgument,
			"csv output requires tabular data", nil)
	}
}

// encodeCSV writes records under the sorted union of their keys. Absent
// fields are empty cells.
func encodeCSV(w io.Writer, records []feature.Record) error {
	keySet := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cw := csv.NewWriter(w)
	if err := cw.Write(keys); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	row := make([]string, len(keys))
	for _, rec := range records {
		for i, k := range keys {
			if v, ok := rec[k]; ok && v != nil {
				row[i] = fmt.Sprint(v)
			} else {
				row[i] = ""
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

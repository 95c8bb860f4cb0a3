package verify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"schemadoctor/internal/db"
)

// Expectation is the column set a table must carry for the probe record's
// insert to succeed.
type Expectation struct {
	Table   string
	Columns []string
}

// Finding captures how an introspected table deviates from an expectation.
// A missing table or missing columns mean the probe would be rejected for
// schema reasons; extra columns are informational.
type Finding struct {
	Table        string
	TableMissing bool
	Missing      []string
	Extra        []string
}

// Clean reports whether the table satisfies the expectation.
func (f Finding) Clean() bool {
	return !f.TableMissing && len(f.Missing) == 0
}

// ExpectationFor derives the expected column set from a record's JSON shape.
func ExpectationFor(table string, record any) (Expectation, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Expectation{}, fmt.Errorf("encode record: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Expectation{}, fmt.Errorf("record must be a JSON object: %w", err)
	}
	cols := make([]string, 0, len(fields))
	for name := range fields {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return Expectation{Table: table, Columns: cols}, nil
}

// Check compares an introspected table against the expectation.
func Check(tbl db.Table, exists bool, exp Expectation) Finding {
	f := Finding{Table: exp.Table}
	if !exists {
		f.TableMissing = true
		f.Missing = append([]string{}, exp.Columns...)
		return f
	}

	have := make([]string, 0, len(tbl.Columns))
	for name := range tbl.Columns {
		have = append(have, name)
	}
	sort.Strings(have)

	f.Missing = difference(exp.Columns, have)
	f.Extra = difference(have, exp.Columns)
	return f
}

// Describe returns a human-readable summary of a finding.
func Describe(f Finding) string {
	if f.TableMissing {
		return fmt.Sprintf("table %s does not exist; expected columns: %s",
			f.Table, strings.Join(f.Missing, ", "))
	}
	if f.Clean() {
		return fmt.Sprintf("table %s carries every expected column", f.Table)
	}
	var lines []string
	if len(f.Missing) > 0 {
		lines = append(lines, fmt.Sprintf("table %s is missing columns: %s", f.Table, strings.Join(f.Missing, ", ")))
	}
	if len(f.Extra) > 0 {
		lines = append(lines, fmt.Sprintf("table %s has extra columns: %s", f.Table, strings.Join(f.Extra, ", ")))
	}
	return strings.Join(lines, "\n")
}

func difference(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, v := range b {
		set[v] = struct{}{}
	}
	var out []string
	for _, v := range a {
		if _, ok := set[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

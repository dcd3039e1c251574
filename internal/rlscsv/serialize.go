package rlscsv

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"

	"qs-rls-manager/internal/domain"
)

// Identity column names of the ARN dialect, in header order.
const (
	ColumnUserARN  = "UserARN"
	ColumnGroupARN = "GroupARN"
)

// Document is a serialized rule set.
type Document struct {
	// Header is the full CSV header, identity columns included.
	Header []string
	// Fields are the filter columns (Header without identity columns).
	Fields []string
	Text   string
}

// Serialize renders a dataset's permissions as an ARN-dialect RLS CSV.
//
// The filter columns are the fields named by field-specific rules, ordered as
// in fieldTypes (unknown fields follow, sorted), with date-like fields dropped.
// When no field-specific rule exists, every non-date field of the dataset is
// used. Rows are sorted by principal ARN. An empty cell grants every value,
// so wildcard values and wildcard principals emit empty cells.
//
// Output depends only on the set of rules, not their order.
func Serialize(perms []domain.Permission, fieldTypes domain.FieldTypes) (*Document, error) {
	for _, p := range perms {
		if domain.PrincipalKind(p.UserGroupArn) == "" {
			return nil, domain.ErrValidation("permission %s: %q is neither a user nor a group ARN", p.ID, p.UserGroupArn)
		}
	}

	fields := filterFields(perms, fieldTypes)
	header := append([]string{ColumnUserARN, ColumnGroupARN}, fields...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	principals, groups := groupBy(perms, func(p domain.Permission) string { return p.UserGroupArn })
	row := make([]string, len(header))
	for _, arn := range principals {
		rules := groups[arn]
		clear(row)
		if domain.PrincipalKind(arn) == domain.PrincipalUser {
			row[0] = arn
		} else {
			row[1] = arn
		}
		if _, wildcard := wildcardOf(rules, fields); !wildcard {
			for i, f := range fields {
				if v := mergedValues(rules, f); v != domain.Wildcard {
					row[i+2] = v
				}
			}
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row for %s: %w", arn, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return &Document{Header: header, Fields: fields, Text: buf.String()}, nil
}

// filterFields picks the CSV filter columns for a rule set.
func filterFields(perms []domain.Permission, fieldTypes domain.FieldTypes) []string {
	referenced := make(map[string]bool)
	for _, p := range perms {
		if p.Field != domain.Wildcard && p.Field != "" {
			referenced[p.Field] = true
		}
	}

	var fields []string
	if len(referenced) == 0 {
		for _, ft := range fieldTypes {
			if !domain.IsDateType(ft.Type) {
				fields = append(fields, ft.Name)
			}
		}
		return fields
	}

	for _, ft := range fieldTypes {
		if referenced[ft.Name] {
			delete(referenced, ft.Name)
			if !domain.IsDateType(ft.Type) {
				fields = append(fields, ft.Name)
			}
		}
	}
	extra := make([]string, 0, len(referenced))
	for f := range referenced {
		extra = append(extra, f)
	}
	slices.Sort(extra)
	return append(fields, extra...)
}

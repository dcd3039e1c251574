package rlscsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"qs-rls-manager/internal/domain"
)

// Dialect identifies which identity columns a CSV header starts with.
type Dialect int

// The three recognized header dialects.
const (
	DialectGroupName Dialect = 1 // GroupName,... or Group,...
	DialectUserName  Dialect = 2 // UserName,... or User,...
	DialectARN       Dialect = 3 // UserARN,GroupARN,...
)

func (d Dialect) String() string {
	switch d {
	case DialectGroupName:
		return "group-name"
	case DialectUserName:
		return "user-name"
	case DialectARN:
		return "arn"
	default:
		return "unknown"
	}
}

// Diagnostic is a non-fatal problem found while parsing.
type Diagnostic struct {
	Line     int
	Severity domain.Severity
	Message  string
}

// ParsedPermission is a permission read from CSV together with how its
// principal was resolved.
type ParsedPermission struct {
	domain.Permission
	PrincipalName string
	PrincipalKind string
	// Resolved is false when a name could not be matched to a known
	// principal; UserGroupArn is empty in that case.
	Resolved bool
}

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Dialect     Dialect
	Fields      []string
	Permissions []ParsedPermission
	Diagnostics []Diagnostic
}

// Resolved returns the permissions whose principal is known.
func (r *ParseResult) Resolved() []domain.Permission {
	out := make([]domain.Permission, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p.Resolved {
			out = append(out, p.Permission)
		}
	}
	return out
}

// Warnings returns the number of warning diagnostics.
func (r *ParseResult) Warnings() int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == domain.SeverityWarning {
			n++
		}
	}
	return n
}

// ParseOptions supplies the context Parse resolves names and types against.
type ParseOptions struct {
	DataSetArn string
	Users      []domain.Principal
	Groups     []domain.Principal
	FieldTypes domain.FieldTypes
}

type header struct {
	dialect  Dialect
	userCol  int // -1 when absent
	groupCol int // -1 when absent
	nameCol  int // -1 when absent
	fields   []string
	offset   int // index of the first field column
}

// Parse reads an RLS CSV in any of the three dialects. An unrecognized
// header is an error and no rows are returned. Row-level problems become
// warnings. Each data row yields one permission per field column, with an
// empty cell meaning "*". Principals whose every field is "*" collapse to
// the single wildcard permission.
func Parse(r io.Reader, opts ParseOptions) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.ErrValidation("csv is empty")
	}
	if err != nil {
		return nil, domain.ErrValidation("read csv header: %v", err)
	}
	h, err := detectHeader(first)
	if err != nil {
		return nil, err
	}

	res := &ParseResult{Dialect: h.dialect, Fields: h.fields}
	warn := func(line int, format string, args ...any) {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Line: line, Severity: domain.SeverityWarning, Message: fmt.Sprintf(format, args...),
		})
	}

	for _, f := range h.fields {
		if opts.FieldTypes.IsDateField(f) {
			warn(1, "field %q is date-typed; row-level rules on date fields are likely ineffective", f)
		}
	}

	users := indexByName(opts.Users)
	groups := indexByName(opts.Groups)

	var parsed []ParsedPermission
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			warn(perr.StartLine, "unreadable row: %v", perr.Err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(record) < len(first) {
			warn(line, "row has %d columns, header has %d; skipped", len(record), len(first))
			continue
		}
		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		principal, ok := resolvePrincipal(h, record, users, groups, func(format string, args ...any) {
			warn(line, format, args...)
		})
		if !ok {
			continue
		}

		for i, f := range h.fields {
			values := record[h.offset+i]
			if values == "" {
				values = domain.Wildcard
			}
			p := principal
			p.DataSetArn = opts.DataSetArn
			p.Field = f
			p.RLSValues = values
			p.Status = domain.PermissionPending
			parsed = append(parsed, p)
		}
		if len(h.fields) == 0 {
			p := principal
			p.DataSetArn = opts.DataSetArn
			p.Field = domain.Wildcard
			p.RLSValues = domain.Wildcard
			p.Status = domain.PermissionPending
			parsed = append(parsed, p)
		}
	}

	res.Permissions = consolidateParsed(parsed, h.fields)
	return res, nil
}

func detectHeader(cols []string) (header, error) {
	names := make([]string, len(cols))
	for i, c := range cols {
		c = strings.TrimPrefix(c, "\ufeff")
		names[i] = strings.ToLower(strings.TrimSpace(c))
	}
	h := header{userCol: -1, groupCol: -1, nameCol: -1}
	switch names[0] {
	case "userarn", "grouparn":
		h.dialect = DialectARN
		for i := 0; i < len(names) && i < 2; i++ {
			if names[i] == "userarn" && h.userCol < 0 {
				h.userCol = i
			} else if names[i] == "grouparn" && h.groupCol < 0 {
				h.groupCol = i
			} else {
				break
			}
			h.offset = i + 1
		}
	case "groupname", "group":
		h.dialect = DialectGroupName
		h.nameCol, h.offset = 0, 1
	case "username", "user":
		h.dialect = DialectUserName
		h.nameCol, h.offset = 0, 1
	default:
		return header{}, domain.ErrValidation(
			"unrecognized first column %q: expected UserARN, GroupARN, GroupName, Group, UserName or User", strings.TrimSpace(cols[0]))
	}
	for _, c := range cols[h.offset:] {
		h.fields = append(h.fields, strings.TrimSpace(c))
	}
	return h, nil
}

func resolvePrincipal(h header, record []string, users, groups map[string]domain.Principal, warn func(string, ...any)) (ParsedPermission, bool) {
	if h.dialect == DialectARN {
		var userARN, groupARN string
		if h.userCol >= 0 {
			userARN = record[h.userCol]
		}
		if h.groupCol >= 0 {
			groupARN = record[h.groupCol]
		}
		switch {
		case userARN == "" && groupARN == "":
			warn("row has neither a user nor a group ARN; skipped")
			return ParsedPermission{}, false
		case userARN != "" && groupARN != "":
			warn("row has both a user and a group ARN; skipped")
			return ParsedPermission{}, false
		}
		arn, kind := userARN, domain.PrincipalUser
		if groupARN != "" {
			arn, kind = groupARN, domain.PrincipalGroup
		}
		if got := domain.PrincipalKind(arn); got != kind {
			warn("%q in the %s column is not a %s ARN", arn, strings.ToLower(kind), strings.ToLower(kind))
		}
		return ParsedPermission{
			Permission:    domain.Permission{UserGroupArn: arn},
			PrincipalName: domain.PrincipalDisplayName(arn),
			PrincipalKind: kind,
			Resolved:      true,
		}, true
	}

	name := record[h.nameCol]
	if name == "" {
		warn("row has an empty principal name; skipped")
		return ParsedPermission{}, false
	}
	kind, known := domain.PrincipalUser, users
	if h.dialect == DialectGroupName {
		kind, known = domain.PrincipalGroup, groups
	}
	p := ParsedPermission{PrincipalName: name, PrincipalKind: kind}
	if match, ok := known[strings.ToLower(name)]; ok {
		p.UserGroupArn = match.Arn
		p.Resolved = true
	} else {
		warn("%s %q not found", strings.ToLower(kind), name)
	}
	return p, true
}

func indexByName(ps []domain.Principal) map[string]domain.Principal {
	m := make(map[string]domain.Principal, len(ps))
	for _, p := range ps {
		m[strings.ToLower(p.Name)] = p
	}
	return m
}

// consolidateParsed applies Consolidate per principal. Unresolved principals
// are keyed by name since they have no ARN.
func consolidateParsed(perms []ParsedPermission, fields []string) []ParsedPermission {
	keys, groups := groupBy(perms, func(p ParsedPermission) string {
		if p.Resolved {
			return p.UserGroupArn
		}
		return "\x00" + p.PrincipalKind + ":" + strings.ToLower(p.PrincipalName)
	})
	out := make([]ParsedPermission, 0, len(perms))
	for _, k := range keys {
		group := groups[k]
		rules := make([]domain.Permission, len(group))
		for i, p := range group {
			rules[i] = p.Permission
		}
		if w, ok := wildcardOf(rules, fields); ok {
			p := group[0]
			p.Permission = w
			out = append(out, p)
			continue
		}
		out = append(out, group...)
	}
	return out
}

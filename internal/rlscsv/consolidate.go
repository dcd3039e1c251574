// Package rlscsv converts between permission rows and the CSV dialects the
// BI row-level security engine reads.
package rlscsv

import (
	"slices"
	"strings"

	"qs-rls-manager/internal/domain"
)

// Consolidate collapses each principal's rules into the single wildcard rule
// (field "*", values "*") when the principal already has one, or when every
// field in fields is granted with values "*". Other principals keep their rules.
// Rules are returned grouped by principal ARN in ascending order, preserving
// input order within a principal.
func Consolidate(perms []domain.Permission, fields []string) []domain.Permission {
	keys, groups := groupBy(perms, func(p domain.Permission) string { return p.UserGroupArn })
	out := make([]domain.Permission, 0, len(perms))
	for _, k := range keys {
		out = append(out, consolidateOne(groups[k], fields)...)
	}
	return out
}

func consolidateOne(rules []domain.Permission, fields []string) []domain.Permission {
	if w, ok := wildcardOf(rules, fields); ok {
		return []domain.Permission{w}
	}
	return rules
}

// wildcardOf returns the consolidated wildcard rule for one principal's rules,
// if they amount to unrestricted access.
func wildcardOf(rules []domain.Permission, fields []string) (domain.Permission, bool) {
	if len(rules) == 0 {
		return domain.Permission{}, false
	}
	for _, r := range rules {
		if r.IsWildcard() {
			return r, true
		}
	}
	for _, f := range fields {
		if mergedValues(rules, f) != domain.Wildcard {
			return domain.Permission{}, false
		}
	}
	w := rules[0]
	w.ID = ""
	w.Field = domain.Wildcard
	w.RLSValues = domain.Wildcard
	return w, true
}

// mergedValues returns the allowed values of one field across a principal's
// rules: "*" if any rule grants all values, "" if no rule mentions the field,
// otherwise the distinct rule values joined in sorted order.
func mergedValues(rules []domain.Permission, field string) string {
	var vals []string
	for _, r := range rules {
		if r.Field != field {
			continue
		}
		v := strings.TrimSpace(r.RLSValues)
		if v == domain.Wildcard {
			return domain.Wildcard
		}
		if v != "" && !slices.Contains(vals, v) {
			vals = append(vals, v)
		}
	}
	if len(vals) > 1 {
		slices.Sort(vals)
	}
	return strings.Join(vals, ",")
}

// groupBy buckets items by key and returns the keys in ascending order.
func groupBy[T any](items []T, key func(T) string) ([]string, map[string][]T) {
	groups := make(map[string][]T)
	for _, it := range items {
		k := key(it)
		groups[k] = append(groups[k], it)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, groups
}

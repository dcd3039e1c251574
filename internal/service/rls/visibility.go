package rls

import (
	"context"
	"fmt"
	"slices"

	"qs-rls-manager/internal/domain"
)

// VisibilityChange is what SyncVisibility did.
type VisibilityChange struct {
	Granted []domain.ResourcePermission
	Revoked []domain.ResourcePermission
}

// SyncVisibility makes the principals with access to a rules dataset match
// the configured grants exactly. adminPrincipal, when set, is always kept as
// OWNER so the tool never locks itself out.
func SyncVisibility(ctx context.Context, bi domain.BIService, rulesDataSetID string, grants []domain.RLSDataSetVisibility, adminPrincipal string) (*VisibilityChange, error) {
	desired := make(map[string][]string, len(grants)+1)
	for _, g := range grants {
		desired[g.PrincipalArn] = domain.ActionsForLevel(g.Level)
	}
	if adminPrincipal != "" {
		desired[adminPrincipal] = domain.ActionsForLevel(domain.VisibilityOwner)
	}

	current, err := bi.DescribeDataSetPermissions(ctx, rulesDataSetID)
	if err != nil {
		return nil, fmt.Errorf("describe permissions of %s: %w", rulesDataSetID, err)
	}
	have := make(map[string][]string, len(current))
	for _, p := range current {
		have[p.Principal] = append(have[p.Principal], p.Actions...)
	}

	change := diffPermissions(have, desired)
	if len(change.Granted) == 0 && len(change.Revoked) == 0 {
		return change, nil
	}
	if err := bi.UpdateDataSetPermissions(ctx, rulesDataSetID, change.Granted, change.Revoked); err != nil {
		return nil, fmt.Errorf("update permissions of %s: %w", rulesDataSetID, err)
	}
	return change, nil
}

// diffPermissions grants each desired principal the actions it lacks and
// revokes every action not desired, including all actions of principals
// that are no longer configured. Output is sorted by principal.
func diffPermissions(have, want map[string][]string) *VisibilityChange {
	change := &VisibilityChange{}
	for _, principal := range sortedKeys(want) {
		missing := subtract(want[principal], have[principal])
		if len(missing) > 0 {
			change.Granted = append(change.Granted, domain.ResourcePermission{Principal: principal, Actions: missing})
		}
	}
	for _, principal := range sortedKeys(have) {
		extra := subtract(have[principal], want[principal])
		if len(extra) > 0 {
			change.Revoked = append(change.Revoked, domain.ResourcePermission{Principal: principal, Actions: extra})
		}
	}
	return change
}

// subtract returns the sorted distinct elements of a not in b.
func subtract(a, b []string) []string {
	var out []string
	for _, x := range a {
		if !slices.Contains(b, x) && !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

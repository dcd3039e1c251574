package domain

import (
	"strings"
)

// Principal kinds derived from a QuickSight principal ARN.
const (
	PrincipalUser  = "USER"
	PrincipalGroup = "GROUP"
)

// ARN is a parsed Amazon Resource Name.
type ARN struct {
	Partition string
	Service   string
	Region    string
	AccountID string
	Resource  string // e.g. "dataset/abc" or "user/default/alice"
}

// ParseARN splits an ARN into its six colon-separated parts.
func ParseARN(s string) (ARN, error) {
	parts := strings.SplitN(s, ":", 6)
	if len(parts) != 6 || parts[0] != "arn" {
		return ARN{}, ErrValidation("malformed ARN %q", s)
	}
	return ARN{
		Partition: parts[1],
		Service:   parts[2],
		Region:    parts[3],
		AccountID: parts[4],
		Resource:  parts[5],
	}, nil
}

// RegionFromARN returns the region component of an ARN.
func RegionFromARN(s string) (string, error) {
	a, err := ParseARN(s)
	if err != nil {
		return "", err
	}
	if a.Region == "" {
		return "", ErrValidation("ARN %q has no region", s)
	}
	return a.Region, nil
}

// DataSetIDFromARN extracts the dataset id from a QuickSight dataset ARN
// ("arn:aws:quicksight:<region>:<account>:dataset/<id>").
func DataSetIDFromARN(s string) (string, error) {
	a, err := ParseARN(s)
	if err != nil {
		return "", err
	}
	id, ok := strings.CutPrefix(a.Resource, "dataset/")
	if !ok || id == "" {
		return "", ErrValidation("%q is not a dataset ARN", s)
	}
	return id, nil
}

// DataSetARN builds a dataset ARN for the given region, account and id.
func DataSetARN(region, accountID, dataSetID string) string {
	return "arn:aws:quicksight:" + region + ":" + accountID + ":dataset/" + dataSetID
}

// PrincipalKind classifies a principal ARN as USER or GROUP.
// Returns "" when the ARN is neither.
func PrincipalKind(arn string) string {
	switch {
	case strings.Contains(arn, ":user/"):
		return PrincipalUser
	case strings.Contains(arn, ":group/"):
		return PrincipalGroup
	default:
		return ""
	}
}

// PrincipalDisplayName strips the leading resource-type and namespace segments
// of a principal ARN: ".../user/default/alice" → "alice".
func PrincipalDisplayName(arn string) string {
	segments := strings.Split(arn, "/")
	if len(segments) <= 2 {
		return arn
	}
	return strings.Join(segments[2:], "/")
}

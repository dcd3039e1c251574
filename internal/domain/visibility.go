package domain

import (
	"slices"
	"time"
)

// Visibility levels on a rules dataset.
const (
	VisibilityOwner  = "OWNER"
	VisibilityViewer = "VIEWER"
)

var ownerActions = []string{
	"quicksight:CancelIngestion",
	"quicksight:CreateIngestion",
	"quicksight:DeleteDataSet",
	"quicksight:DescribeDataSet",
	"quicksight:DescribeDataSetPermissions",
	"quicksight:DescribeIngestion",
	"quicksight:ListIngestions",
	"quicksight:PassDataSet",
	"quicksight:UpdateDataSet",
	"quicksight:UpdateDataSetPermissions",
}

var viewerActions = []string{
	"quicksight:DescribeDataSet",
	"quicksight:DescribeDataSetPermissions",
	"quicksight:DescribeIngestion",
	"quicksight:ListIngestions",
	"quicksight:PassDataSet",
}

// RLSDataSetVisibility grants a principal visibility of the rules dataset generated
// for DataSetArn. It is independent of the row-filter permissions.
type RLSDataSetVisibility struct {
	ID           string
	DataSetArn   string
	PrincipalArn string
	Level        string
	CreatedAt    time.Time
}

// Validate checks that the grant is well-formed.
func (v *RLSDataSetVisibility) Validate() error {
	if v.PrincipalArn == "" {
		return ErrValidation("principalArn is required")
	}
	if v.Level != VisibilityOwner && v.Level != VisibilityViewer {
		return ErrValidation("level must be %s or %s", VisibilityOwner, VisibilityViewer)
	}
	return nil
}

// ActionsForLevel returns the sorted BI action set for a visibility level.
func ActionsForLevel(level string) []string {
	if level == VisibilityOwner {
		return slices.Clone(ownerActions)
	}
	return slices.Clone(viewerActions)
}

package domain

import "maps"

// DefinitionLayout tells where a dataset definition keeps its RLS binding.
type DefinitionLayout int

const (
	// LayoutLegacy keeps a single top-level RLS binding.
	LayoutLegacy DefinitionLayout = iota
	// LayoutDataPrep (a data-prep configuration is present) keeps one binding
	// inside each semantic table.
	LayoutDataPrep
)

func (l DefinitionLayout) String() string {
	if l == LayoutDataPrep {
		return "data-prep"
	}
	return "legacy"
}

// RLSBinding points a dataset at the rules dataset that filters it.
type RLSBinding struct {
	Arn              string
	Namespace        string
	PermissionPolicy string
	FormatVersion    string
	Status           string
}

// NewRLSBinding returns the binding this tool writes: grant-access, version 2, enabled.
func NewRLSBinding(rulesDataSetArn string) RLSBinding {
	return RLSBinding{
		Arn:              rulesDataSetArn,
		PermissionPolicy: "GRANT_ACCESS",
		FormatVersion:    "VERSION_2",
		Status:           RLSEnabled,
	}
}

// DataSetDefinition is the full current definition of a BI dataset, as needed
// for the service's full-replace update call. Body is the service-owned
// payload (physical/logical tables, folders, usage and column-level rules,
// tag configuration, ...) and is carried into the update unchanged. Only the
// RLS binding fields are ever patched.
type DataSetDefinition struct {
	DataSetID string
	Arn       string
	Name      string
	Layout    DefinitionLayout

	// RowLevelPermission is the binding of a LayoutLegacy definition.
	RowLevelPermission *RLSBinding
	// SemanticTables maps semantic table id to its binding (nil when unbound)
	// for a LayoutDataPrep definition.
	SemanticTables map[string]*RLSBinding

	Body any
}

// BoundArn returns the rules-dataset ARN the definition is bound to, or "".
// A data-prep definition counts as bound only when every semantic table
// points at the same ARN.
func (d DataSetDefinition) BoundArn() string {
	if d.Layout == LayoutLegacy {
		if d.RowLevelPermission == nil {
			return ""
		}
		return d.RowLevelPermission.Arn
	}
	arn := ""
	for _, b := range d.SemanticTables {
		if b == nil || b.Arn == "" {
			return ""
		}
		if arn != "" && b.Arn != arn {
			return ""
		}
		arn = b.Arn
	}
	return arn
}

// WithRLS returns a copy of d bound to binding. The receiver is not modified.
func (d DataSetDefinition) WithRLS(binding RLSBinding) (DataSetDefinition, error) {
	out := d.clone()
	switch d.Layout {
	case LayoutLegacy:
		b := binding
		out.RowLevelPermission = &b
	case LayoutDataPrep:
		if len(d.SemanticTables) == 0 {
			return DataSetDefinition{}, ErrValidation("dataset %s has a data-prep configuration but no semantic tables to bind", d.DataSetID)
		}
		for id := range out.SemanticTables {
			b := binding
			out.SemanticTables[id] = &b
		}
	}
	return out, nil
}

// WithoutRLS returns a copy of d with every RLS binding removed.
func (d DataSetDefinition) WithoutRLS() DataSetDefinition {
	out := d.clone()
	out.RowLevelPermission = nil
	for id := range out.SemanticTables {
		out.SemanticTables[id] = nil
	}
	return out
}

func (d DataSetDefinition) clone() DataSetDefinition {
	out := d
	if d.RowLevelPermission != nil {
		b := *d.RowLevelPermission
		out.RowLevelPermission = &b
	}
	if d.SemanticTables != nil {
		out.SemanticTables = maps.Clone(d.SemanticTables)
	}
	return out
}

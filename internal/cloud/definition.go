package cloud

import (
	"fmt"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/quicksight"
	qstypes "github.com/aws/aws-sdk-go-v2/service/quicksight/types"

	"qs-rls-manager/internal/domain"
)

// Field names of the data-prep representation. They are addressed by name so
// the legacy path keeps working against SDK builds that predate them.
const (
	fieldDataPrep      = "DataPrepConfiguration"
	fieldSemanticModel = "SemanticModelConfiguration"
	fieldTableMap      = "TableMap"
	fieldRLSConfig     = "RowLevelPermissionConfiguration"
	fieldRLSDataSet    = "RowLevelPermissionDataSet"
	fieldAwsAccountID  = "AwsAccountId"
)

var rlsDataSetPtrType = reflect.TypeOf((*qstypes.RowLevelPermissionDataSet)(nil))

// definitionFromDataSet wraps a described dataset. The *types.DataSet is kept
// as the definition body so every field survives into the update.
func definitionFromDataSet(ds *qstypes.DataSet) (*domain.DataSetDefinition, error) {
	def := &domain.DataSetDefinition{
		DataSetID: aws.ToString(ds.DataSetId),
		Arn:       aws.ToString(ds.Arn),
		Name:      aws.ToString(ds.Name),
		Body:      ds,
	}
	if !hasDataPrep(reflect.ValueOf(ds).Elem()) {
		def.Layout = domain.LayoutLegacy
		def.RowLevelPermission = bindingFromSDK(ds.RowLevelPermissionDataSet)
		return def, nil
	}

	def.Layout = domain.LayoutDataPrep
	tables, err := semanticTableMap(reflect.ValueOf(ds).Elem())
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", def.DataSetID, err)
	}
	def.SemanticTables = make(map[string]*domain.RLSBinding, tables.Len())
	iter := tables.MapRange()
	for iter.Next() {
		def.SemanticTables[iter.Key().String()] = bindingFromSDK(tableBinding(iter.Value()))
	}
	return def, nil
}

// buildUpdateInput dispatches on the definition layout.
func buildUpdateInput(accountID string, def domain.DataSetDefinition) (*quicksight.UpdateDataSetInput, error) {
	ds, ok := def.Body.(*qstypes.DataSet)
	if !ok || ds == nil {
		return nil, domain.ErrValidation("dataset %s: definition was not described by this service", def.DataSetID)
	}
	switch def.Layout {
	case domain.LayoutDataPrep:
		return buildDataPrepUpdate(accountID, ds, def)
	default:
		return buildLegacyUpdate(accountID, ds, def), nil
	}
}

// buildLegacyUpdate writes the binding into the top-level field.
func buildLegacyUpdate(accountID string, ds *qstypes.DataSet, def domain.DataSetDefinition) *quicksight.UpdateDataSetInput {
	in := carryForward(accountID, ds)
	in.RowLevelPermissionDataSet = bindingToSDK(def.RowLevelPermission)
	return in
}

// buildDataPrepUpdate writes one binding into every semantic table. The
// semantic model is copied before patching so the described body is left
// untouched.
func buildDataPrepUpdate(accountID string, ds *qstypes.DataSet, def domain.DataSetDefinition) (*quicksight.UpdateDataSetInput, error) {
	in := carryForward(accountID, ds)
	in.RowLevelPermissionDataSet = nil

	dst := reflect.ValueOf(in).Elem()
	model := dst.FieldByName(fieldSemanticModel)
	if !model.IsValid() || model.Kind() != reflect.Pointer || model.IsNil() {
		return nil, domain.ErrValidation("dataset %s: data-prep definition has no semantic model", def.DataSetID)
	}
	if model.Elem().Kind() != reflect.Struct {
		return nil, domain.ErrValidation("dataset %s: semantic model is not a struct", def.DataSetID)
	}
	modelCopy := reflect.New(model.Type().Elem())
	modelCopy.Elem().Set(model.Elem())

	tables := modelCopy.Elem().FieldByName(fieldTableMap)
	if !tables.IsValid() || tables.Kind() != reflect.Map {
		return nil, domain.ErrValidation("dataset %s: semantic model has no table map", def.DataSetID)
	}
	patched := reflect.MakeMapWithSize(tables.Type(), tables.Len())
	iter := tables.MapRange()
	for iter.Next() {
		id := iter.Key().String()
		table, err := withTableBinding(iter.Value(), bindingToSDK(def.SemanticTables[id]))
		if err != nil {
			return nil, fmt.Errorf("dataset %s table %s: %w", def.DataSetID, id, err)
		}
		patched.SetMapIndex(iter.Key(), table)
	}
	tables.Set(patched)
	model.Set(modelCopy)
	return in, nil
}

// carryForward copies every field of the described dataset that the update
// call also accepts (same name and type). Output-only fields such as
// timestamps and consumed capacity have no counterpart and are skipped.
func carryForward(accountID string, ds *qstypes.DataSet) *quicksight.UpdateDataSetInput {
	in := &quicksight.UpdateDataSetInput{}
	src := reflect.ValueOf(ds).Elem()
	dst := reflect.ValueOf(in).Elem()
	for i := 0; i < dst.NumField(); i++ {
		f := dst.Type().Field(i)
		if !f.IsExported() || f.Name == fieldAwsAccountID {
			continue
		}
		sv := src.FieldByName(f.Name)
		if !sv.IsValid() || sv.Type() != f.Type {
			continue
		}
		dst.Field(i).Set(sv)
	}
	in.AwsAccountId = aws.String(accountID)
	in.DataSetId = ds.DataSetId
	return in
}

func hasDataPrep(ds reflect.Value) bool {
	f := ds.FieldByName(fieldDataPrep)
	if !f.IsValid() {
		return false
	}
	switch f.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return !f.IsNil()
	default:
		return !f.IsZero()
	}
}

func semanticTableMap(ds reflect.Value) (reflect.Value, error) {
	model := ds.FieldByName(fieldSemanticModel)
	if !model.IsValid() || model.Kind() != reflect.Pointer || model.IsNil() {
		return reflect.Value{}, fmt.Errorf("data-prep definition has no semantic model")
	}
	if model.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("semantic model is not a struct")
	}
	tables := model.Elem().FieldByName(fieldTableMap)
	if !tables.IsValid() || tables.Kind() != reflect.Map {
		return reflect.Value{}, fmt.Errorf("semantic model has no table map")
	}
	return tables, nil
}

// tableBinding reads TableMap[id].RowLevelPermissionConfiguration.RowLevelPermissionDataSet.
func tableBinding(table reflect.Value) *qstypes.RowLevelPermissionDataSet {
	if table.Kind() == reflect.Pointer {
		if table.IsNil() {
			return nil
		}
		table = table.Elem()
	}
	if table.Kind() != reflect.Struct {
		return nil
	}
	cfg := table.FieldByName(fieldRLSConfig)
	if !cfg.IsValid() || cfg.Kind() != reflect.Pointer || cfg.IsNil() {
		return nil
	}
	b := cfg.Elem().FieldByName(fieldRLSDataSet)
	if !b.IsValid() || b.Type() != rlsDataSetPtrType || b.IsNil() {
		return nil
	}
	return b.Interface().(*qstypes.RowLevelPermissionDataSet)
}

// withTableBinding returns a copy of a semantic table with its binding set
// (or cleared when binding is nil). Other RLS configuration is carried over.
func withTableBinding(table reflect.Value, binding *qstypes.RowLevelPermissionDataSet) (reflect.Value, error) {
	if table.Kind() == reflect.Pointer {
		if table.IsNil() {
			return table, nil
		}
		patched, err := withTableBinding(table.Elem(), binding)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(table.Type().Elem())
		ptr.Elem().Set(patched)
		return ptr, nil
	}
	if table.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("semantic table is a %s, not a struct", table.Kind())
	}
	out := reflect.New(table.Type()).Elem()
	out.Set(table)

	cfg := out.FieldByName(fieldRLSConfig)
	if !cfg.IsValid() || cfg.Kind() != reflect.Pointer {
		return reflect.Value{}, fmt.Errorf("semantic table has no %s", fieldRLSConfig)
	}
	if cfg.IsNil() && binding == nil {
		return out, nil
	}
	cfgCopy := reflect.New(cfg.Type().Elem())
	if !cfg.IsNil() {
		cfgCopy.Elem().Set(cfg.Elem())
	}
	if cfgCopy.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("%s is not a struct", fieldRLSConfig)
	}
	b := cfgCopy.Elem().FieldByName(fieldRLSDataSet)
	if !b.IsValid() || b.Type() != rlsDataSetPtrType {
		return reflect.Value{}, fmt.Errorf("%s has no %s", fieldRLSConfig, fieldRLSDataSet)
	}
	b.Set(reflect.ValueOf(binding))
	cfg.Set(cfgCopy)
	return out, nil
}

func bindingFromSDK(b *qstypes.RowLevelPermissionDataSet) *domain.RLSBinding {
	if b == nil {
		return nil
	}
	return &domain.RLSBinding{
		Arn:              aws.ToString(b.Arn),
		Namespace:        aws.ToString(b.Namespace),
		PermissionPolicy: string(b.PermissionPolicy),
		FormatVersion:    string(b.FormatVersion),
		Status:           string(b.Status),
	}
}

func bindingToSDK(b *domain.RLSBinding) *qstypes.RowLevelPermissionDataSet {
	if b == nil {
		return nil
	}
	out := &qstypes.RowLevelPermissionDataSet{
		Arn:              aws.String(b.Arn),
		PermissionPolicy: qstypes.RowLevelPermissionPolicy(b.PermissionPolicy),
		FormatVersion:    qstypes.RowLevelPermissionFormatVersion(b.FormatVersion),
		Status:           qstypes.Status(b.Status),
	}
	if b.Namespace != "" {
		out.Namespace = aws.String(b.Namespace)
	}
	return out
}

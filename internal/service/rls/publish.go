package rls

import (
	"context"
	"fmt"
	"net/http"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
	"qs-rls-manager/internal/rlscsv"
)

// Publish steps, in order.
const (
	StepValidateResources = "validate-resources"
	StepUploadCSV         = "upload-csv"
	StepCatalogTable      = "catalog-table"
	StepRulesDataSet      = "rules-dataset"
	StepRulesRecord       = "rules-record"
	StepBindRLS           = "bind-rls"
	StepUpdateDataset     = "update-dataset"
)

// publishRun carries what a publish attempt has produced so far, for the
// history row written when it ends.
type publishRun struct {
	version   int
	doc       *rlscsv.Document
	permCount int
	upload    *UploadResult
	rulesArn  string
}

// Publish serialises the dataset's permissions and propagates them to the
// BI service. Each step runs only after the previous one succeeded; a failed
// step ends the run and leaves earlier external changes in place. Every
// attempt is recorded in the publish history.
func (s *Service) Publish(ctx context.Context, dataSetArn string, observer domain.PipelineSink) *domain.Outcome {
	start := s.now()
	rec := NewRecorder(s.logger.With("pipeline", metrics.PipelinePublish, "dataset", dataSetArn), observer)
	run := &publishRun{}

	out := s.publish(ctx, dataSetArn, rec, run)
	if run.version > 0 {
		s.recordAttempt(ctx, dataSetArn, run, out, rec)
	}
	return s.finish(metrics.PipelinePublish, start, out)
}

func (s *Service) publish(ctx context.Context, dataSetArn string, rec *Recorder, run *publishRun) *domain.Outcome {
	// Phase 0: resources.
	rec.Section("Validate resources")
	rec.ReportStep(StepValidateResources, domain.StepLoading)
	ds, err := s.datasets.Get(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepValidateResources, err, 0)
	}
	if ds.IsRLS {
		return rec.Fail(StepValidateResources, domain.ErrValidation("dataset %s is a rules dataset and cannot be published", dataSetArn), 0)
	}
	env, err := s.resolveEnvironment(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepValidateResources, err, 0)
	}
	dataSource, err := ValidateResources(ctx, env.clients, env.region)
	if err != nil {
		return rec.Fail(StepValidateResources, err, 0)
	}
	rec.Infof("Bucket %s, database %s and data source %s are available",
		env.region.BucketName, env.region.GlueDatabaseName, env.region.DataSourceName)
	rec.ReportStep(StepValidateResources, domain.StepSuccess)

	latest, err := s.history.LatestVersion(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepValidateResources, fmt.Errorf("read publish history: %w", err), 0)
	}
	run.version = latest + 1

	// Phase 1: CSV to storage.
	rec.Section(fmt.Sprintf("Publish CSV (version %d)", run.version))
	rec.ReportStep(StepUploadCSV, domain.StepLoading)
	perms, err := s.permissions.ListForDataset(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepUploadCSV, err, 0)
	}
	run.permCount = len(perms)
	if len(perms) == 0 {
		rec.Warnf("Dataset has no permissions; the published rules grant no rows to anyone")
	}
	doc, err := rlscsv.Serialize(perms, ds.FieldTypes)
	if err != nil {
		return rec.Fail(StepUploadCSV, err, 0)
	}
	run.doc = doc
	columns, err := AuthoritativeColumns(doc.Header)
	if err != nil {
		return rec.Fail(StepUploadCSV, err, 0)
	}
	if len(doc.Fields) == 0 {
		return rec.Fail(StepUploadCSV, domain.ErrValidation("no filterable columns remain for dataset %s after excluding date fields", ds.DataSetID), 0)
	}
	rec.Infof("Serialized %d permissions into columns %v", len(perms), columns)

	upload, err := UploadCSV(ctx, env.clients.Storage, env.region.BucketName, ds.DataSetID, []byte(doc.Text))
	if err != nil {
		return rec.Fail(StepUploadCSV, err, 0)
	}
	run.upload = upload
	rec.Infof("Uploaded s3://%s/%s (version %s)", env.region.BucketName, upload.Key, upload.VersionID)
	rec.ReportStep(StepUploadCSV, domain.StepSuccess)

	// Phase 2: catalog table.
	rec.ReportStep(StepCatalogTable, domain.StepLoading)
	table := rulesTable(env.region.BucketName, ds.DataSetID, columns)
	if err := EnsureTable(ctx, env.clients.Catalog, env.region.GlueDatabaseName, table, rec); err != nil {
		return rec.Fail(StepCatalogTable, err, 0)
	}
	rec.ReportStep(StepCatalogTable, domain.StepSuccess)

	// Phase 3: rules dataset, then visibility.
	rec.Section("Rules dataset")
	rec.ReportStep(StepRulesDataSet, domain.StepLoading)
	req := UpsertRequest{
		TargetDataSetID: ds.DataSetID,
		TargetName:      ds.Name,
		ToolManaged:     ds.RLSToolManaged,
		DataSourceArn:   dataSource.Arn,
		Database:        env.region.GlueDatabaseName,
		Table:           table.Name,
		Columns:         columns,
	}
	if ds.RLSDataSetID != nil {
		req.RulesDataSetArn = *ds.RLSDataSetID
	}
	mut, err := UpsertRulesDataSet(ctx, env.clients.BI, req, rec)
	if err != nil {
		return rec.Fail(StepRulesDataSet, err, 0)
	}
	if err := s.monitor.awaitMutation(ctx, env.clients.BI, mut, rec); err != nil {
		return rec.Fail(StepRulesDataSet, err, 0)
	}
	run.rulesArn = mut.Arn
	rec.ReportStep(StepRulesDataSet, domain.StepSuccess)
	s.applyVisibility(ctx, env, dataSetArn, mut, rec)

	// Phase 4: the rules dataset's own record.
	rec.ReportStep(StepRulesRecord, domain.StepLoading)
	if err := s.recordRulesDataSet(ctx, ds, mut, env.region.Region, columns); err != nil {
		return rec.Fail(StepRulesRecord, err, 0)
	}
	if err := s.forgetReplacedRulesDataSet(ctx, req.RulesDataSetArn, mut.Arn, rec); err != nil {
		return rec.Fail(StepRulesRecord, err, 0)
	}
	rec.ReportStep(StepRulesRecord, domain.StepSuccess)

	// Phase 5: bind.
	rec.Section("Bind RLS")
	rec.ReportStep(StepBindRLS, domain.StepLoading)
	bind, err := BindRLS(ctx, env.clients.BI, ds.DataSetID, mut.Arn, rec)
	if err != nil {
		return rec.Fail(StepBindRLS, err, 0)
	}
	if !bind.AlreadyBound {
		if err := s.monitor.awaitMutation(ctx, env.clients.BI, bind.Mutation, rec); err != nil {
			return rec.Fail(StepBindRLS, err, 0)
		}
	}
	rec.ReportStep(StepBindRLS, domain.StepSuccess)

	// Phase 6: commit to the dataset record.
	rec.ReportStep(StepUpdateDataset, domain.StepLoading)
	now := s.now().UTC()
	enabled, managed := domain.RLSEnabled, true
	_, err = s.datasets.Update(ctx, dataSetArn, domain.DatasetUpdate{
		RLSEnabled:           &enabled,
		RLSToolManaged:       &managed,
		RLSDataSetID:         &mut.Arn,
		CurrentVersion:       &run.version,
		LastPublishedVersion: &run.version,
		LastPublishedAt:      &now,
	})
	if err != nil {
		return rec.Fail(StepUpdateDataset, fmt.Errorf(
			"dataset %s is bound to %s in the BI service but its record was not updated: %w",
			ds.DataSetID, mut.Arn, err), http.StatusInternalServerError)
	}
	rec.ReportStep(StepUpdateDataset, domain.StepSuccess)

	return rec.Succeed(fmt.Sprintf("Published version %d of %s with %d permissions", run.version, ds.DataSetID, len(perms)))
}

// applyVisibility syncs the configured grants onto the rules dataset.
// Failures are logged and do not stop the publish.
func (s *Service) applyVisibility(ctx context.Context, env *environment, dataSetArn string, mut *domain.DataSetMutation, rec *Recorder) {
	grants, err := s.visibility.ListForDataset(ctx, dataSetArn)
	if err != nil {
		rec.Warnf("Could not load visibility grants: %v", err)
		return
	}
	if len(grants) == 0 && s.adminPrincipal == "" {
		rec.Infof("No visibility grants configured; rules dataset permissions left as they are")
		return
	}
	rulesID := mut.DataSetID
	if rulesID == "" {
		rulesID, _ = domain.DataSetIDFromARN(mut.Arn)
	}
	change, err := SyncVisibility(ctx, env.clients.BI, rulesID, grants, s.adminPrincipal)
	if err != nil {
		rec.Warnf("Visibility of rules dataset not applied: %v", err)
		return
	}
	rec.Infof("Visibility applied: %d principals granted, %d revoked", len(change.Granted), len(change.Revoked))
}

// recordRulesDataSet creates the rules dataset's record the first time it is
// seen. Otherwise it marks the record tool-created and refreshes its columns.
func (s *Service) recordRulesDataSet(ctx context.Context, target *domain.Dataset, mut *domain.DataSetMutation, region string, columns []string) error {
	fields := make(domain.FieldTypes, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, domain.FieldType{Name: c, Type: "STRING"})
	}

	_, err := s.datasets.Get(ctx, mut.Arn)
	if err == nil {
		toolCreated := true
		_, err = s.datasets.Update(ctx, mut.Arn, domain.DatasetUpdate{ToolCreated: &toolCreated, FieldTypes: fields})
		return err
	}
	if !domain.IsNotFound(err) {
		return err
	}

	id := mut.DataSetID
	if id == "" {
		id, _ = domain.DataSetIDFromARN(mut.Arn)
	}
	glueS3ID := target.DataSetID
	_, err = s.datasets.Create(ctx, &domain.Dataset{
		DataSetArn:    mut.Arn,
		DataSetID:     id,
		Name:          RulesDataSetName(target.Name, target.DataSetID),
		Region:        region,
		RLSEnabled:    domain.RLSDisabled,
		IsRLS:         true,
		ToolCreated:   true,
		APIManageable: true,
		FieldTypes:    fields,
		GlueS3ID:      &glueS3ID,
	})
	return err
}

// forgetReplacedRulesDataSet removes the record of a rules dataset that was
// replaced by a new one. Both records point at the same table and objects.
func (s *Service) forgetReplacedRulesDataSet(ctx context.Context, oldArn, newArn string, rec *Recorder) error {
	if oldArn == "" || oldArn == newArn {
		return nil
	}
	if err := s.datasets.Delete(ctx, oldArn); err != nil && !domain.IsNotFound(err) {
		return fmt.Errorf("remove record of replaced rules dataset %s: %w", oldArn, err)
	}
	rec.Infof("Removed record of replaced rules dataset %s", oldArn)
	return nil
}

func (s *Service) recordAttempt(ctx context.Context, dataSetArn string, run *publishRun, out *domain.Outcome, rec *Recorder) {
	h := &domain.PublishHistory{
		DataSetArn:      dataSetArn,
		Version:         run.version,
		PublishedAt:     s.now().UTC(),
		RulesDataSetArn: run.rulesArn,
		PermissionCount: run.permCount,
		Status:          domain.PublishSuccess,
		Message:         out.Message,
	}
	if !out.OK() {
		h.Status = domain.PublishFailed
	}
	if run.doc != nil {
		h.CSVSnapshot = run.doc.Text
	}
	if run.upload != nil {
		h.S3Key = run.upload.Key
		h.S3VersionID = run.upload.VersionID
	}
	if _, err := s.history.Insert(ctx, h); err != nil {
		rec.Warnf("Could not record publish history for version %d: %v", run.version, err)
		out.Log = rec.Entries()
	}
}

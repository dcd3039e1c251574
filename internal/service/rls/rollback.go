package rls

import (
	"context"
	"fmt"
	"strings"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
	"qs-rls-manager/internal/rlscsv"
)

// Rollback steps, in order.
const (
	StepLoadVersion    = "load-version"
	StepRestoreObject  = "restore-object"
	StepRestorePerms   = "restore-permissions"
	StepRefreshRules   = "refresh-rules-dataset"
	StepRecordRollback = "record-version"
)

const rollbackMessagePref = "Rollback to version"

// RollbackOptions controls what a rollback restores besides the published rules.
type RollbackOptions struct {
	// RestorePermissions replaces the dataset's permission rows with the
	// rules of the restored version.
	RestorePermissions bool
}

// Rollback republishes an earlier successful version of a dataset's rules.
// The stored CSV version is copied back as the latest object, the catalog
// table and rules dataset are refreshed from it, and the result is recorded
// as a new version.
func (s *Service) Rollback(ctx context.Context, dataSetArn string, version int, opts RollbackOptions, observer domain.PipelineSink) *domain.Outcome {
	start := s.now()
	rec := NewRecorder(s.logger.With("pipeline", metrics.PipelineRollback, "dataset", dataSetArn, "version", version), observer)
	run := &publishRun{}

	out := s.rollback(ctx, dataSetArn, version, opts, rec, run)
	if run.version > 0 {
		s.recordAttempt(ctx, dataSetArn, run, out, rec)
	}
	return s.finish(metrics.PipelineRollback, start, out)
}

func (s *Service) rollback(ctx context.Context, dataSetArn string, version int, opts RollbackOptions, rec *Recorder, run *publishRun) *domain.Outcome {
	rec.Section(fmt.Sprintf("%s %d", rollbackMessagePref, version))
	rec.ReportStep(StepLoadVersion, domain.StepLoading)
	ds, err := s.datasets.Get(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepLoadVersion, err, 0)
	}
	if ds.IsRLS {
		return rec.Fail(StepLoadVersion, domain.ErrValidation("dataset %s is a rules dataset and cannot be rolled back", dataSetArn), 0)
	}
	target, err := s.history.GetVersion(ctx, dataSetArn, version)
	if err != nil {
		return rec.Fail(StepLoadVersion, err, 0)
	}
	if target.Status != domain.PublishSuccess {
		return rec.Fail(StepLoadVersion, domain.ErrValidation("version %d did not publish successfully and cannot be restored", version), 0)
	}
	if target.S3VersionID == "" || target.S3Key == "" {
		return rec.Fail(StepLoadVersion, domain.ErrValidation("version %d has no stored object version", version), 0)
	}
	env, err := s.resolveEnvironment(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepLoadVersion, err, 0)
	}
	dataSource, err := ValidateResources(ctx, env.clients, env.region)
	if err != nil {
		return rec.Fail(StepLoadVersion, err, 0)
	}

	snapshot := target.CSVSnapshot
	if snapshot == "" {
		body, err := env.clients.Storage.GetObject(ctx, env.region.BucketName, target.S3Key, target.S3VersionID)
		if err != nil {
			return rec.Fail(StepLoadVersion, fmt.Errorf("read version %s of s3://%s/%s: %w",
				target.S3VersionID, env.region.BucketName, target.S3Key, err), 0)
		}
		snapshot = string(body)
	}
	parsed, err := rlscsv.Parse(strings.NewReader(snapshot), rlscsv.ParseOptions{
		DataSetArn: dataSetArn,
		FieldTypes: ds.FieldTypes,
	})
	if err != nil {
		return rec.Fail(StepLoadVersion, fmt.Errorf("version %d snapshot: %w", version, err), 0)
	}
	columns, err := AuthoritativeColumns(append([]string{rlscsv.ColumnUserARN, rlscsv.ColumnGroupARN}, parsed.Fields...))
	if err != nil {
		return rec.Fail(StepLoadVersion, err, 0)
	}
	restored := parsed.Resolved()

	latest, err := s.history.LatestVersion(ctx, dataSetArn)
	if err != nil {
		return rec.Fail(StepLoadVersion, fmt.Errorf("read publish history: %w", err), 0)
	}
	run.version = latest + 1
	run.permCount = len(restored)
	run.doc = &rlscsv.Document{Header: columns, Fields: parsed.Fields, Text: snapshot}
	rec.Infof("Restoring version %d (%d principals, columns %v) as version %d", version, len(restored), columns, run.version)
	rec.ReportStep(StepLoadVersion, domain.StepSuccess)

	rec.ReportStep(StepRestoreObject, domain.StepLoading)
	key := ObjectKey(ds.DataSetID)
	newVersion, err := env.clients.Storage.CopyObjectVersion(ctx, env.region.BucketName, target.S3Key, target.S3VersionID, key)
	if err != nil {
		return rec.Fail(StepRestoreObject, fmt.Errorf("copy version %s of %s: %w", target.S3VersionID, target.S3Key, err), 0)
	}
	run.upload = &UploadResult{Key: key, VersionID: newVersion}
	rec.Infof("Copied version %s of %s to s3://%s/%s (version %s)", target.S3VersionID, target.S3Key, env.region.BucketName, key, newVersion)
	rec.ReportStep(StepRestoreObject, domain.StepSuccess)

	if opts.RestorePermissions {
		rec.ReportStep(StepRestorePerms, domain.StepLoading)
		if err := s.permissions.ReplaceForDataset(ctx, dataSetArn, restored); err != nil {
			return rec.Fail(StepRestorePerms, err, 0)
		}
		rec.Infof("Replaced permissions with the %d rules of version %d", len(restored), version)
		rec.ReportStep(StepRestorePerms, domain.StepSuccess)
	}

	rec.Section("Refresh rules dataset")
	rec.ReportStep(StepRefreshRules, domain.StepLoading)
	table := rulesTable(env.region.BucketName, ds.DataSetID, columns)
	if err := EnsureTable(ctx, env.clients.Catalog, env.region.GlueDatabaseName, table, rec); err != nil {
		return rec.Fail(StepRefreshRules, err, 0)
	}
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
		return rec.Fail(StepRefreshRules, err, 0)
	}
	if err := s.monitor.awaitMutation(ctx, env.clients.BI, mut, rec); err != nil {
		return rec.Fail(StepRefreshRules, err, 0)
	}
	run.rulesArn = mut.Arn
	s.applyVisibility(ctx, env, dataSetArn, mut, rec)
	if err := s.recordRulesDataSet(ctx, ds, mut, env.region.Region, columns); err != nil {
		return rec.Fail(StepRefreshRules, err, 0)
	}
	if err := s.forgetReplacedRulesDataSet(ctx, req.RulesDataSetArn, mut.Arn, rec); err != nil {
		return rec.Fail(StepRefreshRules, err, 0)
	}
	bind, err := BindRLS(ctx, env.clients.BI, ds.DataSetID, mut.Arn, rec)
	if err != nil {
		return rec.Fail(StepRefreshRules, err, 0)
	}
	if !bind.AlreadyBound {
		if err := s.monitor.awaitMutation(ctx, env.clients.BI, bind.Mutation, rec); err != nil {
			return rec.Fail(StepRefreshRules, err, 0)
		}
	}
	rec.ReportStep(StepRefreshRules, domain.StepSuccess)

	rec.ReportStep(StepRecordRollback, domain.StepLoading)
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
		return rec.Fail(StepRecordRollback, fmt.Errorf(
			"dataset %s is bound to %s in the BI service but its record was not updated: %w",
			ds.DataSetID, mut.Arn, err), 0)
	}
	rec.ReportStep(StepRecordRollback, domain.StepSuccess)

	return rec.Succeed(fmt.Sprintf("%s %d of %s published as version %d", rollbackMessagePref, version, ds.DataSetID, run.version))
}

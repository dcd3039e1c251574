package rls

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
)

// Delete steps, in order.
const (
	StepDeleteValidate    = "validate"
	StepFindTargets       = "find-targets"
	StepUnbindTargets     = "unbind-targets"
	StepDeleteRulesDSet   = "delete-rules-dataset"
	StepDeleteRulesRecord = "delete-rules-record"
	StepResetTargets      = "reset-targets"
	StepDeleteTable       = "delete-table"
	StepDeleteObjects     = "delete-objects"
)

// permissionDeleteLimit bounds concurrent permission row deletes per dataset.
const permissionDeleteLimit = 8

// DeleteOptions controls what a rules-dataset deletion keeps.
type DeleteOptions struct {
	KeepPermissions bool
	KeepObjects     bool
}

// DeleteRulesDataSet detaches a rules dataset from every dataset using it
// and removes it from the BI service, the store, the catalog and object
// storage. Steps run in order and the first failure ends the run; completed
// steps are not undone.
func (s *Service) DeleteRulesDataSet(ctx context.Context, rulesArn string, opts DeleteOptions, observer domain.PipelineSink) *domain.Outcome {
	start := s.now()
	rec := NewRecorder(s.logger.With("pipeline", metrics.PipelineDelete, "rules_dataset", rulesArn), observer)
	return s.finish(metrics.PipelineDelete, start, s.deleteRulesDataSet(ctx, rulesArn, opts, rec))
}

func (s *Service) deleteRulesDataSet(ctx context.Context, rulesArn string, opts DeleteOptions, rec *Recorder) *domain.Outcome {
	fail := func(step string, err error) *domain.Outcome {
		return rec.Fail(step, err, http.StatusInternalServerError)
	}

	// Step 0: identifiers.
	rec.Section("Validate")
	rec.ReportStep(StepDeleteValidate, domain.StepLoading)
	if rulesArn == "" {
		return rec.Fail(StepDeleteValidate, domain.ErrValidation("rules dataset ARN is required"), http.StatusBadRequest)
	}
	rulesID, err := domain.DataSetIDFromARN(rulesArn)
	if err != nil {
		return rec.Fail(StepDeleteValidate, err, http.StatusBadRequest)
	}
	env, err := s.resolveEnvironment(ctx, rulesArn)
	if err != nil {
		return rec.Fail(StepDeleteValidate, err, http.StatusBadRequest)
	}
	rec.ReportStep(StepDeleteValidate, domain.StepSuccess)

	// Step 1: reverse lookup.
	rec.ReportStep(StepFindTargets, domain.StepLoading)
	targets, err := s.datasetsUsing(ctx, rulesArn)
	if err != nil {
		return fail(StepFindTargets, err)
	}
	rec.Infof("%d datasets use %s", len(targets), rulesArn)
	rec.ReportStep(StepFindTargets, domain.StepSuccess)

	// Step 2: unbind each target.
	rec.Section("Detach")
	rec.ReportStep(StepUnbindTargets, domain.StepLoading)
	for _, t := range targets {
		mut, err := RemoveRLS(ctx, env.clients.BI, t.DataSetID, rec)
		if err != nil {
			return fail(StepUnbindTargets, err)
		}
		if err := s.monitor.awaitMutation(ctx, env.clients.BI, mut, rec); err != nil {
			return fail(StepUnbindTargets, err)
		}
	}
	rec.ReportStep(StepUnbindTargets, domain.StepSuccess)

	// Step 3: the rules dataset itself.
	rec.ReportStep(StepDeleteRulesDSet, domain.StepLoading)
	switch err := env.clients.BI.DeleteDataSet(ctx, rulesID); {
	case err == nil:
		rec.Infof("Deleted rules dataset %s", rulesID)
	case domain.IsNotFound(err):
		rec.Warnf("Rules dataset %s was already gone", rulesID)
	default:
		return fail(StepDeleteRulesDSet, fmt.Errorf("delete rules dataset %s: %w", rulesID, err))
	}
	rec.ReportStep(StepDeleteRulesDSet, domain.StepSuccess)

	// Step 4: its record, keeping glueS3Id for the cleanup below.
	rec.Section("Clean up")
	rec.ReportStep(StepDeleteRulesRecord, domain.StepLoading)
	record, err := s.datasets.Get(ctx, rulesArn)
	if err != nil {
		return fail(StepDeleteRulesRecord, fmt.Errorf("look up record of %s: %w", rulesArn, err))
	}
	if record.GlueS3ID == nil || *record.GlueS3ID == "" {
		return fail(StepDeleteRulesRecord, fmt.Errorf("record of %s has no source dataset id; storage and catalog cannot be located", rulesArn))
	}
	sourceID := *record.GlueS3ID
	if err := s.datasets.Delete(ctx, rulesArn); err != nil {
		return fail(StepDeleteRulesRecord, err)
	}
	rec.ReportStep(StepDeleteRulesRecord, domain.StepSuccess)

	// Step 5: reset targets and drop their permissions.
	rec.ReportStep(StepResetTargets, domain.StepLoading)
	for _, t := range targets {
		if err := s.resetTarget(ctx, t.DataSetArn, opts.KeepPermissions, rec); err != nil {
			return fail(StepResetTargets, err)
		}
	}
	rec.ReportStep(StepResetTargets, domain.StepSuccess)

	// Steps 6 and 7 are skipped when another bound rules dataset reads the same source.
	inUse, err := s.sourceInUse(ctx, sourceID, rulesArn)
	if err != nil {
		return fail(StepDeleteTable, err)
	}
	if inUse != "" {
		for _, step := range []string{StepDeleteTable, StepDeleteObjects} {
			rec.ReportStep(step, domain.StepLoading)
			rec.Warnf("Rules dataset %s still reads %s; %s skipped", inUse, TableName(sourceID), step)
			rec.ReportStep(step, domain.StepSuccess)
		}
		return rec.Succeed(fmt.Sprintf("Deleted rules dataset %s and detached it from %d datasets; storage kept for %s", rulesID, len(targets), inUse))
	}

	// Step 6: catalog table.
	rec.ReportStep(StepDeleteTable, domain.StepLoading)
	table := TableName(sourceID)
	switch err := env.clients.Catalog.DeleteTable(ctx, env.region.GlueDatabaseName, table); {
	case err == nil:
		rec.Infof("Deleted table %s.%s", env.region.GlueDatabaseName, table)
	case domain.IsNotFound(err):
		rec.Warnf("Table %s.%s was already gone", env.region.GlueDatabaseName, table)
	default:
		return fail(StepDeleteTable, fmt.Errorf("delete table %s.%s: %w", env.region.GlueDatabaseName, table, err))
	}
	rec.ReportStep(StepDeleteTable, domain.StepSuccess)

	// Step 7: objects.
	rec.ReportStep(StepDeleteObjects, domain.StepLoading)
	if opts.KeepObjects {
		rec.Infof("Keeping objects under s3://%s/%s", env.region.BucketName, ObjectPrefix(sourceID))
	} else {
		prefix := ObjectPrefix(sourceID)
		keys, err := env.clients.Storage.ListObjects(ctx, env.region.BucketName, prefix)
		if err != nil {
			return fail(StepDeleteObjects, fmt.Errorf("list s3://%s/%s: %w", env.region.BucketName, prefix, err))
		}
		if len(keys) > 0 {
			if err := env.clients.Storage.DeleteObjects(ctx, env.region.BucketName, keys); err != nil {
				return fail(StepDeleteObjects, fmt.Errorf("delete objects under s3://%s/%s: %w", env.region.BucketName, prefix, err))
			}
		}
		rec.Infof("Deleted %d objects under s3://%s/%s", len(keys), env.region.BucketName, prefix)
	}
	rec.ReportStep(StepDeleteObjects, domain.StepSuccess)

	return rec.Succeed(fmt.Sprintf("Deleted rules dataset %s and detached it from %d datasets", rulesID, len(targets)))
}

// datasetsUsing returns every dataset whose binding points at rulesArn.
func (s *Service) datasetsUsing(ctx context.Context, rulesArn string) ([]domain.Dataset, error) {
	filter := domain.DatasetFilter{RLSDataSetID: &rulesArn}
	page := domain.PageRequest{MaxResults: domain.MaxPageSize}
	var out []domain.Dataset
	for {
		items, total, err := s.datasets.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		next := domain.NextPageToken(page.Offset(), page.Limit(), total)
		if next == "" || len(items) == 0 {
			return out, nil
		}
		page.PageToken = next
	}
}

// sourceInUse returns the ARN of a rules dataset other than rulesArn that was
// generated from sourceID and is still bound to a dataset, or "".
func (s *Service) sourceInUse(ctx context.Context, sourceID, rulesArn string) (string, error) {
	isRLS := true
	filter := domain.DatasetFilter{IsRLS: &isRLS, GlueS3ID: &sourceID}
	siblings, _, err := s.datasets.List(ctx, filter, domain.PageRequest{MaxResults: domain.MaxPageSize})
	if err != nil {
		return "", fmt.Errorf("look up rules datasets generated from %s: %w", sourceID, err)
	}
	for _, sib := range siblings {
		if sib.DataSetArn == rulesArn {
			continue
		}
		users, err := s.datasetsUsing(ctx, sib.DataSetArn)
		if err != nil {
			return "", err
		}
		if len(users) > 0 {
			return sib.DataSetArn, nil
		}
	}
	return "", nil
}

func (s *Service) resetTarget(ctx context.Context, dataSetArn string, keepPermissions bool, rec *Recorder) error {
	disabled, no := domain.RLSDisabled, false
	_, err := s.datasets.Update(ctx, dataSetArn, domain.DatasetUpdate{
		RLSEnabled:        &disabled,
		RLSToolManaged:    &no,
		ToolCreated:       &no,
		ClearRLSDataSetID: true,
	})
	if err != nil {
		return fmt.Errorf("reset %s: %w", dataSetArn, err)
	}
	if keepPermissions {
		rec.Infof("Reset %s, permissions kept", dataSetArn)
		return nil
	}

	perms, err := s.permissions.ListForDataset(ctx, dataSetArn)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(permissionDeleteLimit)
	for _, p := range perms {
		id := p.ID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.permissions.Delete(gctx, id); err != nil && !domain.IsNotFound(err) {
				return fmt.Errorf("delete permission %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rec.Infof("Reset %s and deleted %d permissions", dataSetArn, len(perms))
	return nil
}

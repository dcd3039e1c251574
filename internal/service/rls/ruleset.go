package rls

import (
	"context"
	"fmt"

	"qs-rls-manager/internal/domain"
)

// UpsertRequest describes the rules dataset to create or refresh for a target.
type UpsertRequest struct {
	TargetDataSetID string
	TargetName      string
	// ToolManaged and RulesDataSetArn come from the target's record. An
	// existing rules dataset is only reused when both are set.
	ToolManaged     bool
	RulesDataSetArn string
	DataSourceArn   string
	Database        string
	Table           string
	Columns         []string
}

// UpsertRulesDataSet updates the target's tool-managed rules dataset in place,
// or creates a new one when there is none or the recorded one no longer exists.
func UpsertRulesDataSet(ctx context.Context, bi domain.BIService, req UpsertRequest, sink domain.PipelineSink) (*domain.DataSetMutation, error) {
	spec := domain.RulesDataSetSpec{
		Name:          RulesDataSetName(req.TargetName, req.TargetDataSetID),
		DataSourceArn: req.DataSourceArn,
		Database:      req.Database,
		Table:         req.Table,
		Columns:       req.Columns,
	}

	if req.ToolManaged && req.RulesDataSetArn != "" {
		id, err := domain.DataSetIDFromARN(req.RulesDataSetArn)
		if err != nil {
			return nil, err
		}
		_, err = bi.DescribeDataSet(ctx, id)
		switch {
		case err == nil:
			spec.DataSetID = id
			m, err := bi.UpdateDataSet(ctx, spec)
			if err != nil {
				return nil, fmt.Errorf("update rules dataset %s: %w", id, err)
			}
			if m.Arn == "" {
				m.Arn = req.RulesDataSetArn
			}
			sink.Log(domain.SeverityInfo, fmt.Sprintf("Updated rules dataset %s", m.Arn))
			return m, nil
		case domain.IsNotFound(err):
			sink.Log(domain.SeverityWarning, fmt.Sprintf("Rules dataset %s no longer exists, creating a new one", req.RulesDataSetArn))
		default:
			return nil, fmt.Errorf("describe rules dataset %s: %w", id, err)
		}
	}

	spec.DataSetID = newRulesDataSetID()
	m, err := bi.CreateDataSet(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("create rules dataset %s: %w", spec.DataSetID, err)
	}
	sink.Log(domain.SeverityInfo, fmt.Sprintf("Created rules dataset %s", m.Arn))
	return m, nil
}

// BindResult is the outcome of BindRLS. Mutation is nil when AlreadyBound.
type BindResult struct {
	AlreadyBound bool
	Mutation     *domain.DataSetMutation
}

// BindRLS points the target dataset's RLS binding at rulesArn. When the
// binding is already in place and the rules dataset still exists nothing is
// written.
func BindRLS(ctx context.Context, bi domain.BIService, targetID, rulesArn string, sink domain.PipelineSink) (*BindResult, error) {
	def, err := bi.DescribeDataSet(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("describe target dataset %s: %w", targetID, err)
	}

	if def.BoundArn() == rulesArn {
		rulesID, err := domain.DataSetIDFromARN(rulesArn)
		if err != nil {
			return nil, err
		}
		_, err = bi.DescribeDataSet(ctx, rulesID)
		switch {
		case err == nil:
			sink.Log(domain.SeverityInfo, fmt.Sprintf("Dataset %s is already bound to %s", targetID, rulesArn))
			return &BindResult{AlreadyBound: true}, nil
		case domain.IsNotFound(err):
			sink.Log(domain.SeverityWarning, fmt.Sprintf("Dataset %s is bound to missing rules dataset %s, rewriting binding", targetID, rulesArn))
		default:
			return nil, fmt.Errorf("describe rules dataset %s: %w", rulesID, err)
		}
	}

	bound, err := def.WithRLS(domain.NewRLSBinding(rulesArn))
	if err != nil {
		return nil, err
	}
	m, err := bi.UpdateDataSetDefinition(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("bind %s to dataset %s: %w", rulesArn, targetID, err)
	}
	sink.Log(domain.SeverityInfo, fmt.Sprintf("Bound %s to dataset %s (%s layout)", rulesArn, targetID, def.Layout))
	return &BindResult{Mutation: m}, nil
}

// RemoveRLS rewrites the target's definition without any RLS binding.
func RemoveRLS(ctx context.Context, bi domain.BIService, targetID string, sink domain.PipelineSink) (*domain.DataSetMutation, error) {
	def, err := bi.DescribeDataSet(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("describe target dataset %s: %w", targetID, err)
	}
	m, err := bi.UpdateDataSetDefinition(ctx, def.WithoutRLS())
	if err != nil {
		return nil, fmt.Errorf("remove RLS from dataset %s: %w", targetID, err)
	}
	sink.Log(domain.SeverityInfo, fmt.Sprintf("Removed RLS binding from dataset %s", targetID))
	return m, nil
}

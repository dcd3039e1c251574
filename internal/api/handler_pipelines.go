package api

import (
	"net/http"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/metrics"
	"qs-rls-manager/internal/service/rls"
)

// Pipelines respond with their outcome and the outcome's own status code.

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := h.rls.Publish(r.Context(), arn, nil)
	h.logOutcome(r, metrics.PipelinePublish, arn, out.Status, out.Message)
	writeJSON(w, out.Status, OutcomeToAPI(out))
}

func (h *Handler) rollback(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req RollbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Version <= 0 {
		h.writeError(w, r, domain.ErrValidation("version must be a positive integer"))
		return
	}
	out := h.rls.Rollback(r.Context(), arn, req.Version, rls.RollbackOptions{RestorePermissions: req.RestorePermissions}, nil)
	h.logOutcome(r, metrics.PipelineRollback, arn, out.Status, out.Message)
	writeJSON(w, out.Status, OutcomeToAPI(out))
}

func (h *Handler) deleteRulesDataSet(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var opts rls.DeleteOptions
	if opts.KeepPermissions, err = boolQuery(r, "keepPermissions"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if opts.KeepObjects, err = boolQuery(r, "keepObjects"); err != nil {
		h.writeError(w, r, err)
		return
	}
	out := h.rls.DeleteRulesDataSet(r.Context(), arn, opts, nil)
	h.logOutcome(r, metrics.PipelineDelete, arn, out.Status, out.Message)
	writeJSON(w, out.Status, OutcomeToAPI(out))
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.rls.History(r.Context(), arn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]HistoryEntry, len(entries))
	for i, e := range entries {
		out[i] = HistoryToAPI(e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getVisibility(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	grants, err := h.rls.Visibility(r.Context(), arn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VisibilityRequest{Grants: VisibilityToAPI(grants)})
}

func (h *Handler) putVisibility(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req VisibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	grants := make([]domain.RLSDataSetVisibility, len(req.Grants))
	for i, g := range req.Grants {
		grants[i] = domain.RLSDataSetVisibility{DataSetArn: arn, PrincipalArn: g.PrincipalArn, Level: g.Level}
	}
	saved, err := h.rls.SetVisibility(r.Context(), arn, grants)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, VisibilityRequest{Grants: VisibilityToAPI(saved)})
}

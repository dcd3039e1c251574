package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qs-rls-manager/internal/domain"
)

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	perms, err := h.permissions.List(r.Context(), arn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]Permission, len(perms))
	for i, p := range perms {
		out[i] = PermissionToAPI(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) createPermission(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req CreatePermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.permissions.Create(r.Context(), domain.CreatePermissionRequest{
		DataSetArn:   arn,
		UserGroupArn: req.UserGroupArn,
		Field:        req.Field,
		RLSValues:    req.RLSValues,
		Status:       req.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PermissionToAPI(*p))
}

func (h *Handler) getPermission(w http.ResponseWriter, r *http.Request) {
	p, err := h.permissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PermissionToAPI(*p))
}

func (h *Handler) updatePermission(w http.ResponseWriter, r *http.Request) {
	var req UpdatePermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.permissions.Update(r.Context(), chi.URLParam(r, "id"), domain.UpdatePermissionRequest{
		Field:     req.Field,
		RLSValues: req.RLSValues,
		Status:    req.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PermissionToAPI(*p))
}

func (h *Handler) deletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.permissions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	doc, err := h.permissions.ExportCSV(r.Context(), arn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc.Text))
}

// importCSV takes the raw CSV as the request body. Without apply=true the
// parse is only reported.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	apply, err := boolQuery(r, "apply")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.permissions.ImportCSV(r.Context(), arn, r.Body, apply)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImportToAPI(res))
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qs-rls-manager/internal/domain"
	"qs-rls-manager/internal/service/dataset"
)

func (h *Handler) listRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.datasets.ListRegions(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]Region, len(regions))
	for i, reg := range regions {
		out[i] = RegionToAPI(reg)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) putRegion(w http.ResponseWriter, r *http.Request) {
	var req PutRegionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	reg, err := h.datasets.PutRegion(r.Context(), &domain.ManagedRegion{
		Region:           chi.URLParam(r, "region"),
		BucketName:       req.BucketName,
		GlueDatabaseName: req.GlueDatabaseName,
		DataSourceName:   req.DataSourceName,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RegionToAPI(*reg))
}

func (h *Handler) listDatasets(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var filter domain.DatasetFilter
	if v := r.URL.Query().Get("region"); v != "" {
		filter.Region = &v
	}
	if r.URL.Query().Has("isRls") {
		isRLS, err := boolQuery(r, "isRls")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		filter.IsRLS = &isRLS
	}

	items, total, err := h.datasets.List(r.Context(), filter, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := DatasetList{Data: make([]Dataset, len(items)), Total: total}
	for i, d := range items {
		out.Data[i] = DatasetToAPI(d)
	}
	out.NextPageToken = domain.NextPageToken(page.Offset(), page.Limit(), total)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getDataset(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ds, err := h.datasets.Get(r.Context(), arn)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DatasetToAPI(*ds))
}

func (h *Handler) registerDataset(w http.ResponseWriter, r *http.Request) {
	arn, err := arnParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req RegisterDatasetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ds, err := h.datasets.Register(r.Context(), dataset.RegisterRequest{
		DataSetArn: arn,
		Name:       req.Name,
		FieldTypes: req.FieldTypes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, DatasetToAPI(*ds))
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/hospital-booking/internal/catalog"
)

type catalogHandlers struct {
	catalog *catalog.Catalog
}

func (h *catalogHandlers) listHospitals(w http.ResponseWriter, r *http.Request) {
	writeList(w, h.catalog.Hospitals())
}

func (h *catalogHandlers) getHospital(w http.ResponseWriter, r *http.Request) {
	hospital, err := h.catalog.Hospital(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hospital not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "Server error", "")
		return
	}
	writeData(w, http.StatusOK, hospital)
}

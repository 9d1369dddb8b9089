package handlers

import (
	"net/http"
	"strconv"

	"github.com/xelth-com/protocolos/internal/models"
)

// listPdvs searches the point-of-sale catalog. Non-admins only see their unit.
func (r *Router) listPdvs(w http.ResponseWriter, req *http.Request) {
	if r.pdvs == nil {
		respondJSON(w, http.StatusOK, []models.Pdv{})
		return
	}
	q := req.URL.Query()
	unit := q.Get("unit")
	if p := principal(req); p.Role != models.RoleAdmin && p.Unit != "" {
		unit = p.Unit
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	pdvs, err := r.pdvs.List(req.Context(), unit, q.Get("q"), limit)
	if err != nil {
		r.respondStoreError(w, err, "PDVs")
		return
	}
	respondJSON(w, http.StatusOK, pdvs)
}

func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	if r.products == nil {
		respondJSON(w, http.StatusOK, []models.Product{})
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	products, err := r.products.Search(req.Context(), req.URL.Query().Get("q"), limit)
	if err != nil {
		r.respondStoreError(w, err, "Products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

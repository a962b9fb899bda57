package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quiquecx/backoffice/internal/workflow"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writePlacementError maps workflow failures onto HTTP statuses: missing
// referents are 404, business rejections 400, storage faults 500. The
// offending id travels in the body so the caller can act on it.
func writePlacementError(w http.ResponseWriter, err error) {
	var (
		pnf *workflow.ProductNotFoundError
		mnf *workflow.MaterialNotFoundError
		ins *workflow.InsufficientStockError
		inm *workflow.InsufficientMaterialError
		inq *workflow.InvalidQuantityError
		pe  *workflow.PersistenceError
	)
	switch {
	case errors.As(err, &pnf):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": pnf.Error(), "product_id": pnf.ProductID})
	case errors.As(err, &mnf):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": mnf.Error(), "material_id": mnf.MaterialID})
	case errors.As(err, &ins):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": ins.Error(), "product_id": ins.ProductID})
	case errors.As(err, &inm):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": inm.Error(), "material_id": inm.MaterialID})
	case errors.As(err, &inq):
		writeError(w, http.StatusBadRequest, inq.Error())
	case errors.Is(err, workflow.ErrEmptyOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &pe):
		writeError(w, http.StatusInternalServerError, pe.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

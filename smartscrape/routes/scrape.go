package routes

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"smartscrape/smartscrape/controllers"
	"smartscrape/smartscrape/utils/types"
)

// generic wrapper to reduce boilerplate; errors come back as the same
// JSON envelope the websocket channel uses.
func handleJSON(handler func(r *http.Request) (any, int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, status, err := handler(r)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(types.QueryResponse{Success: false, Error: err.Error()})
			return
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(res)
	}
}

// ScrapeRoutes registers the query pipeline routes.
func ScrapeRoutes(ctrl *controllers.QueryController) chi.Router {
	r := chi.NewRouter()

	// POST /query
	r.Post("/query", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}

		res, err := ctrl.ScrapeQuery(r.Context(), req.Query)
		if err != nil {
			return nil, controllers.StatusFor(err), err
		}
		return types.QueryResponse{Success: true, Data: res}, http.StatusOK, nil
	}))

	// GET /status
	r.Get("/status", handleJSON(func(r *http.Request) (any, int, error) {
		return types.StatusResponse{Success: true, Status: ctrl.Status(r.Context())}, http.StatusOK, nil
	}))

	// POST /cache/clear
	r.Post("/cache/clear", handleJSON(func(r *http.Request) (any, int, error) {
		return types.ClearCacheResponse{Success: true, Message: ctrl.ClearCache()}, http.StatusOK, nil
	}))

	return r
}

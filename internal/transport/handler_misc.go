package transport

import (
	"net/http"

	"github.com/pitabwire/flowdeck/internal/catalog"
	"github.com/pitabwire/flowdeck/internal/openapi"
)

type communityCheckResponse struct {
	Name      string `json:"name"`
	Community bool   `json:"community"`
}

func handleCheckCommunityPackage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		WriteBadRequest(w, "name is required")
		return
	}
	WriteJSON(w, http.StatusOK, communityCheckResponse{
		Name:      name,
		Community: catalog.IsCommunityPackageName(name),
	})
}

func handleAPIDescription(index *openapi.Index) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !index.Loaded() {
			WriteNotFound(w, "API description not loaded")
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(index.Document())
	}
}

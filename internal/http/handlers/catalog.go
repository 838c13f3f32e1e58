package handlers

import (
	"net/http"

	"mediarelay/internal/domain"
)

type productResponse struct {
	Success bool            `json:"success"`
	Data    *domain.Product `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func (a *App) RandomProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.Catalog.TriggerCatalogFetch(r.Context())
	if err != nil {
		a.log().Error().Err(err).Msg("catalog fetch failed")
		a.json(w, domain.HTTPStatus(err), productResponse{Success: false, Error: err.Error()})
		return
	}
	a.json(w, http.StatusOK, productResponse{Success: true, Data: product})
}

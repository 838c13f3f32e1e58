package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"mediarelay/internal/domain"
)

const maxProductBody = 1 << 20

type generateResponse struct {
	Success     *bool           `json:"success,omitempty"`
	Status      domain.JobState `json:"status,omitempty"`
	JobID       string          `json:"jobId,omitempty"`
	ProductName string          `json:"productName,omitempty"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	ResultsURL  string          `json:"resultsUrl,omitempty"`
	StatusURL   string          `json:"statusUrl,omitempty"`
}

func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxProductBody))
	if err != nil {
		a.failed(w, http.StatusBadRequest, "invalid payload")
		return
	}
	product, err := decodeProduct(raw)
	if err != nil {
		a.failed(w, http.StatusBadRequest, "invalid payload")
		return
	}

	handle, err := a.Generator.StartGeneration(r.Context(), product)
	if err != nil {
		a.log().Error().Err(err).Str("product", product.Name()).Msg("generation dispatch failed")
		a.failed(w, domain.HTTPStatus(err), err.Error())
		return
	}

	resp := generateResponse{
		Success:     handle.Success,
		Status:      handle.Status,
		JobID:       handle.JobID,
		ProductName: handle.ProductName,
		Message:     handle.Message,
		Data:        handle.Data,
	}
	if handle.JobID != "" && a.PublicBaseURL != "" {
		id := url.PathEscape(handle.JobID)
		resp.ResultsURL = fmt.Sprintf("%s/results/%s", a.PublicBaseURL, id)
		resp.StatusURL = fmt.Sprintf("%s/jobs/%s", a.PublicBaseURL, id)
	}
	a.json(w, http.StatusOK, resp)
}

// decodeProduct accepts {"product": ...} as well as a bare product. The
// product bytes are forwarded as sent.
func decodeProduct(raw []byte) (domain.Product, error) {
	product, err := domain.ProductFromJSON(raw)
	if err != nil {
		return domain.Product{}, err
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return product, nil
	}
	if wrapped, ok := envelope["product"]; ok {
		return domain.ProductFromJSON(wrapped)
	}
	return product, nil
}

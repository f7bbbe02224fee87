package handler

import (
	"net/http"

	"github.com/mcoot/imposter/internal/api/response"
	"github.com/mcoot/imposter/internal/services/catalog"
)

// CatalogHandler serves the built-in topic categories
type CatalogHandler struct {
	catalog *catalog.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List handles GET /api/v1/categories
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Categories{Categories: h.catalog.Categories()})
}

package handler

import (
	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/gin-gonic/gin"
)

// ProductHandler 物料处理器
type ProductHandler struct {
	svc *service.ProductService
}

func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List 物料列表
// GET /api/v1/products?search=xxx
func (h *ProductHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"search": c.Query("search"),
	}
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, product)
}

// Create POST /api/v1/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.svc.Create(c.Request.Context(), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, product)
}

// Update PUT /api/v1/products/:id
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.ProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, product)
}

// Delete DELETE /api/v1/products/:id
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), operator(c)); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}

package handler

import (
	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/gin-gonic/gin"
)

// VendorHandler 供应商处理器
type VendorHandler struct {
	svc *service.VendorService
}

func NewVendorHandler(svc *service.VendorService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

// List 供应商列表
// GET /api/v1/vendors?search=xxx
func (h *VendorHandler) List(c *gin.Context) {
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

// Get GET /api/v1/vendors/:id
func (h *VendorHandler) Get(c *gin.Context) {
	vendor, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, vendor)
}

// Create POST /api/v1/vendors
func (h *VendorHandler) Create(c *gin.Context) {
	var req service.VendorRequest
	if !bindJSON(c, &req) {
		return
	}
	vendor, err := h.svc.Create(c.Request.Context(), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, vendor)
}

// Update PUT /api/v1/vendors/:id
func (h *VendorHandler) Update(c *gin.Context) {
	var req service.VendorRequest
	if !bindJSON(c, &req) {
		return
	}
	vendor, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, vendor)
}

// Delete DELETE /api/v1/vendors/:id
func (h *VendorHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), operator(c)); err != nil {
		respondError(c, err)
		return
	}
	Success(c, nil)
}

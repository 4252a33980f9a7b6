package handler

import (
	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Get 采购看板
// GET /api/v1/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	dashboard, err := h.svc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, dashboard)
}

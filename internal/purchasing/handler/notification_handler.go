package handler

import (
	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/gin-gonic/gin"
)

// NotificationHandler 超期未收货提醒
type NotificationHandler struct {
	svc *service.NotificationService
}

func NewNotificationHandler(svc *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List 提醒列表，附带未读数
// GET /api/v1/notifications?unread_only=true&po_id=xxx
func (h *NotificationHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"is_read": c.Query("is_read"),
		"po_id":   c.Query("po_id"),
	}
	if c.Query("unread_only") == "true" {
		filters["is_read"] = "false"
	}

	ctx := c.Request.Context()
	items, total, err := h.svc.List(ctx, page, pageSize, filters)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.svc.UnreadCount(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, gin.H{
		"items": items,
		"pagination": &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
		"unread_count": unread,
	})
}

// CheckPendingPOs 手动触发超期扫描
// POST /api/v1/notifications/check-pending-pos
func (h *NotificationHandler) CheckPendingPOs(c *gin.Context) {
	created, err := h.svc.CheckPendingOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, gin.H{"created": created})
}

// MarkRead PATCH /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	n, err := h.svc.MarkAsRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, n)
}

type resolveRequest struct {
	POID string `json:"po_id" binding:"required"`
}

// Resolve 确认收货并关闭提醒
// POST /api/v1/notifications/:id/resolve
func (h *NotificationHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.svc.ConfirmAndResolve(c.Request.Context(), req.POID, c.Param("id"), operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, po)
}

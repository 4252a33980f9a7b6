package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/bitfantasy/procure/internal/purchasing/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 采购处理器集合
type Handlers struct {
	Auth         *AuthHandler
	Vendor       *VendorHandler
	Product      *ProductHandler
	PO           *POHandler
	Notification *NotificationHandler
	Dashboard    *DashboardHandler
	SSE          *SSEHandler
}

// NewHandlers 创建采购处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, logger *zap.Logger) *Handlers {
	return &Handlers{
		Auth:         NewAuthHandler(svc.Auth),
		Vendor:       NewVendorHandler(svc.Vendor),
		Product:      NewProductHandler(svc.Product),
		PO:           NewPOHandler(svc.Order, svc.Attachment, svc.Export, logger),
		Notification: NewNotificationHandler(svc.Notification),
		Dashboard:    NewDashboardHandler(svc.Dashboard),
		SSE:          NewSSEHandler(hub),
	}
}

// RegisterRoutes 注册 /api/v1 下的采购接口
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, auth gin.HandlerFunc) {
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.GET("/me", auth, h.Auth.Me)
	}

	protected := api.Group("", auth)

	vendors := protected.Group("/vendors")
	{
		vendors.GET("", h.Vendor.List)
		vendors.POST("", h.Vendor.Create)
		vendors.GET("/:id", h.Vendor.Get)
		vendors.PUT("/:id", h.Vendor.Update)
		vendors.DELETE("/:id", h.Vendor.Delete)
	}

	products := protected.Group("/products")
	{
		products.GET("", h.Product.List)
		products.POST("", h.Product.Create)
		products.GET("/:id", h.Product.Get)
		products.PUT("/:id", h.Product.Update)
		products.DELETE("/:id", h.Product.Delete)
	}

	pos := protected.Group("/purchase-orders")
	{
		pos.GET("", h.PO.List)
		pos.POST("", h.PO.Create)
		pos.GET("/export", h.PO.ExportList)
		pos.GET("/:id", h.PO.Get)
		pos.PUT("/:id", h.PO.Update)
		pos.DELETE("/:id", h.PO.Delete)
		pos.PATCH("/:id/status", h.PO.SetStatus)
		pos.POST("/:id/confirm-receipt", h.PO.ConfirmReceipt)
		pos.POST("/:id/item-receipt", h.PO.RecordItemReceipt)
		pos.GET("/:id/receipts", h.PO.ListReceipts)
		pos.GET("/:id/activities", h.PO.ListActivities)
		pos.GET("/:id/export", h.PO.Export)
		pos.GET("/:id/attachments", h.PO.ListAttachments)
		pos.POST("/:id/attachments", h.PO.UploadAttachment)
		pos.GET("/:id/attachments/:attachmentId", h.PO.DownloadAttachment)
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", h.Notification.List)
		notifications.POST("/check-pending-pos", h.Notification.CheckPendingPOs)
		notifications.PATCH("/:id/read", h.Notification.MarkRead)
		notifications.POST("/:id/resolve", h.Notification.Resolve)
	}

	protected.GET("/dashboard", h.Dashboard.Get)
	protected.GET("/events", h.SSE.Stream)
}

// === 响应辅助函数 ===

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// respondError 把服务层错误映射成响应
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	var notFoundErr *service.NotFoundError
	var conflictErr *service.ConflictError

	switch {
	case errors.As(err, &validationErr):
		BadRequest(c, validationErr.Error())
	case errors.As(err, &notFoundErr):
		NotFound(c, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		Conflict(c, conflictErr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrStorageNotConfigured):
		Error(c, 50300, err.Error())
	default:
		c.Error(err)
		InternalError(c, "internal server error")
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// operator 当前登录用户
func operator(c *gin.Context) service.Operator {
	return service.Operator{ID: c.GetString("user_id"), Name: c.GetString("user_name")}
}

func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}

func listResponse(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages,
		},
	})
}

// bindJSON 解析请求体，失败时直接返回400
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}

package handler

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bitfantasy/procure/internal/purchasing/service"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// POHandler 采购订单处理器
type POHandler struct {
	svc         *service.OrderService
	attachments *service.AttachmentService
	export      *service.ExportService
	logger      *zap.Logger
}

func NewPOHandler(svc *service.OrderService, attachments *service.AttachmentService, export *service.ExportService, logger *zap.Logger) *POHandler {
	return &POHandler{svc: svc, attachments: attachments, export: export, logger: logger}
}

func orderFilters(c *gin.Context) map[string]string {
	return map[string]string{
		"vendor_id":         c.Query("vendor_id"),
		"status":            c.Query("status"),
		"material_received": c.Query("material_received"),
		"search":            c.Query("search"),
	}
}

// List 采购订单列表
// GET /api/v1/purchase-orders?status=xxx&vendor_id=xxx&material_received=false&search=xxx
func (h *POHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	items, total, err := h.svc.List(c.Request.Context(), page, pageSize, orderFilters(c))
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, items, total, page, pageSize)
}

// Get GET /api/v1/purchase-orders/:id
func (h *POHandler) Get(c *gin.Context) {
	po, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, po)
}

// Create POST /api/v1/purchase-orders
func (h *POHandler) Create(c *gin.Context) {
	var req service.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.svc.Create(c.Request.Context(), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, po)
}

// Update PUT /api/v1/purchase-orders/:id
func (h *POHandler) Update(c *gin.Context) {
	var req service.OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, po)
}

// Delete 删除订单，连同对象存储中的附件
// DELETE /api/v1/purchase-orders/:id
func (h *POHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	attachments, err := h.attachments.List(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.svc.Delete(ctx, id, operator(c)); err != nil {
		respondError(c, err)
		return
	}
	h.attachments.RemoveObjects(ctx, attachments)
	Success(c, nil)
}

// SetStatus PATCH /api/v1/purchase-orders/:id/status
func (h *POHandler) SetStatus(c *gin.Context) {
	var req service.StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.svc.SetStatus(c.Request.Context(), c.Param("id"), req.Status, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, po)
}

// ConfirmReceipt 整单确认收货
// POST /api/v1/purchase-orders/:id/confirm-receipt
func (h *POHandler) ConfirmReceipt(c *gin.Context) {
	po, err := h.svc.ConfirmMaterialReceipt(c.Request.Context(), c.Param("id"), operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, po)
}

// RecordItemReceipt 行项收货
// POST /api/v1/purchase-orders/:id/item-receipt
func (h *POHandler) RecordItemReceipt(c *gin.Context) {
	var req service.ItemReceiptRequest
	if !bindJSON(c, &req) {
		return
	}
	po, err := h.svc.RecordItemReceipt(c.Request.Context(), c.Param("id"), &req, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, po)
}

// ListReceipts GET /api/v1/purchase-orders/:id/receipts
func (h *POHandler) ListReceipts(c *gin.Context) {
	receipts, err := h.svc.ListReceipts(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, receipts)
}

// ListActivities GET /api/v1/purchase-orders/:id/activities
func (h *POHandler) ListActivities(c *gin.Context) {
	page, pageSize := GetPagination(c)
	logs, total, err := h.svc.ListActivities(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	listResponse(c, logs, total, page, pageSize)
}

// Export 单张订单导出
// GET /api/v1/purchase-orders/:id/export
func (h *POHandler) Export(c *gin.Context) {
	f, name, err := h.export.ExportOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeWorkbook(c, f, name)
}

// ExportList 按列表筛选条件导出
// GET /api/v1/purchase-orders/export
func (h *POHandler) ExportList(c *gin.Context) {
	f, name, err := h.export.ExportOrders(c.Request.Context(), orderFilters(c))
	if err != nil {
		respondError(c, err)
		return
	}
	h.writeWorkbook(c, f, name)
}

func (h *POHandler) writeWorkbook(c *gin.Context, f *excelize.File, name string) {
	defer f.Close()
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", contentDisposition(name))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("write workbook", zap.String("file", name), zap.Error(err))
	}
}

func contentDisposition(name string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name))
}

// ListAttachments GET /api/v1/purchase-orders/:id/attachments
func (h *POHandler) ListAttachments(c *gin.Context) {
	attachments, err := h.attachments.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, attachments)
}

// UploadAttachment 上传附件（multipart, 字段名 file）
// POST /api/v1/purchase-orders/:id/attachments
func (h *POHandler) UploadAttachment(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxAttachmentSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
		return
	}
	file, err := fh.Open()
	if err != nil {
		BadRequest(c, "cannot read uploaded file")
		return
	}
	defer file.Close()

	att, err := h.attachments.Upload(c.Request.Context(), c.Param("id"), &service.UploadRequest{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        file,
	}, operator(c))
	if err != nil {
		respondError(c, err)
		return
	}
	Created(c, att)
}

// DownloadAttachment GET /api/v1/purchase-orders/:id/attachments/:attachmentId
func (h *POHandler) DownloadAttachment(c *gin.Context) {
	body, att, err := h.attachments.Open(c.Request.Context(), c.Param("id"), c.Param("attachmentId"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", contentDisposition(att.FileName))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("stream attachment", zap.String("attachment_id", att.ID), zap.Error(err))
	}
}

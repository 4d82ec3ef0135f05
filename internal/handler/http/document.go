package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/hub"
	"collaborative-editor/internal/repository"
)

// DocumentReader 是文档接口依赖的服务，由 service.DocumentService 实现
type DocumentReader interface {
	ReadContent(ctx context.Context, documentID string) (string, error)
	History(ctx context.Context, documentID string) ([]domain.ChangeRecord, error)
}

// ActiveRooms 提供活跃房间快照，由 hub.RoomDirectory 实现
type ActiveRooms interface {
	Snapshot() []hub.RoomInfo
}

// DocumentHandler 封装了文档内容、下载、历史和活跃房间的 HTTP 处理逻辑
type DocumentHandler struct {
	docs  DocumentReader
	rooms ActiveRooms
}

// NewDocumentHandler 创建 DocumentHandler 实例
func NewDocumentHandler(docs DocumentReader, rooms ActiveRooms) *DocumentHandler {
	if docs == nil || rooms == nil {
		panic("DocumentReader and ActiveRooms must be non-nil for DocumentHandler")
	}
	return &DocumentHandler{docs: docs, rooms: rooms}
}

// GetContent 以纯文本返回文档当前内容
func (h *DocumentHandler) GetContent(c *gin.Context) {
	content, err := h.docs.ReadContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

// Download 以附件形式下载文档，目前只支持 txt
func (h *DocumentHandler) Download(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "txt"))
	if format != "txt" {
		ErrorResponse(c, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	id := c.Param("id")
	content, err := h.docs.ReadContent(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	key, err := repository.DocumentKey(id)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", key+".txt"))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
}

// GetHistory 返回文档的变更历史
func (h *DocumentHandler) GetHistory(c *gin.Context) {
	records, err := h.docs.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, records)
}

// ListActive 返回当前所有活跃的文档房间
func (h *DocumentHandler) ListActive(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, h.rooms.Snapshot())
}

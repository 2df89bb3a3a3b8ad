package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"github.com/vocespace/spacekeeper/internal/modules/service"
)

type RecordHandler struct {
	svc service.RecordService
}

func NewRecordHandler(s service.RecordService) *RecordHandler {
	return &RecordHandler{svc: s}
}

type RecordControlReq struct {
	RequesterID string `json:"requesterId" binding:"required"`
}

func (h *RecordHandler) Start(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := RecordControlReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.Start(c.Request.Context(), spaceID, req.RequesterID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp.Record})
}

func (h *RecordHandler) Stop(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := RecordControlReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.Stop(c.Request.Context(), spaceID, req.RequesterID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp.Record})
}

func (h *RecordHandler) DownloadURL(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	url, err := h.svc.DownloadURL(c.Request.Context(), spaceID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"url": url}})
}

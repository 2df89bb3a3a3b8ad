package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"github.com/vocespace/spacekeeper/internal/modules/service"
)

type SpaceHandler struct {
	svc service.SpaceService
}

func NewSpaceHandler(s service.SpaceService) *SpaceHandler {
	return &SpaceHandler{svc: s}
}

type SpaceURI struct {
	SpaceID string `uri:"space_id" binding:"required,spaceid"`
}

type ParticipantURI struct {
	SpaceID       string `uri:"space_id" binding:"required,spaceid"`
	ParticipantID string `uri:"participant_id" binding:"required,max=128"`
}

// bindSpace binds the space id path param and writes a 400 on failure.
func bindSpace(c *gin.Context) (string, bool) {
	uri := SpaceURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid space id", err))
		return "", false
	}
	return uri.SpaceID, true
}

func (h *SpaceHandler) ListSpaces(c *gin.Context) {
	spaces, err := h.svc.ListSpaces(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: spaces})
}

func (h *SpaceHandler) GetSpace(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	sp, err := h.svc.GetSpace(c.Request.Context(), spaceID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

func (h *SpaceHandler) DeleteSpace(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteSpace(c.Request.Context(), spaceID); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{})
}

// UpsertParticipant merges the patch body into the participant's settings,
// creating the space on first use.
func (h *SpaceHandler) UpsertParticipant(c *gin.Context) {
	uri := ParticipantURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	patch := model.ParticipantPatch{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.UpsertParticipant(c.Request.Context(), uri.SpaceID, uri.ParticipantID, patch)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

func (h *SpaceHandler) RemoveParticipant(c *gin.Context) {
	uri := ParticipantURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	res, err := h.svc.RemoveParticipant(c.Request.Context(), uri.SpaceID, uri.ParticipantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	out := serializer.Response{Data: res}
	if res.UsageErr != nil {
		out.Msg = "space cleared, usage interval not closed"
	}
	c.JSON(http.StatusOK, out)
}

func (h *SpaceHandler) SuggestUsername(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	name, err := h.svc.GenUniqueParticipantName(c.Request.Context(), spaceID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"name": name}})
}

type TransferOwnerReq struct {
	OwnerID string `json:"ownerId" binding:"required"`
}

func (h *SpaceHandler) TransferOwnership(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := TransferOwnerReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.TransferOwnership(c.Request.Context(), spaceID, req.OwnerID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

type PersistenceReq struct {
	RequesterID string `json:"requesterId" binding:"required"`
	Persistence *bool  `json:"persistence" binding:"required"`
}

func (h *SpaceHandler) SetPersistence(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := PersistenceReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.SetPersistence(c.Request.Context(), spaceID, req.RequesterID, *req.Persistence)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

type AppsReq struct {
	RequesterID string   `json:"requesterId" binding:"required"`
	Apps        []string `json:"apps" binding:"max=32,dive,max=64"`
}

func (h *SpaceHandler) UpdateApps(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := AppsReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.UpdateApps(c.Request.Context(), spaceID, req.RequesterID, req.Apps)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

func (h *SpaceHandler) AddStatusDefinition(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	def := model.UserDefineStatus{}
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.AddStatusDefinition(c.Request.Context(), spaceID, def)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: sp})
}

func (h *SpaceHandler) UpdateRecordSettings(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	patch := model.RecordPatch{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.UpdateRecordSettings(c.Request.Context(), spaceID, patch)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

func (h *SpaceHandler) Usage(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	records, err := h.svc.Usage(c.Request.Context(), spaceID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: records})
}

func (h *SpaceHandler) AllUsage(c *gin.Context) {
	all, err := h.svc.AllUsage(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: all})
}

type SendChatReq struct {
	SenderID string `json:"senderId" binding:"required"`
	Content  string `json:"content" binding:"required,max=4000"`
}

func (h *SpaceHandler) SendChat(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := SendChatReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	msg, err := h.svc.SendChat(c.Request.Context(), spaceID, model.ChatMessage{SenderID: req.SenderID, Content: req.Content})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, serializer.Response{Data: msg})
}

func (h *SpaceHandler) ChatHistory(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	msgs, err := h.svc.ChatHistory(c.Request.Context(), spaceID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: msgs})
}

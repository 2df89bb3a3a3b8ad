package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
)

type ChildRoomURI struct {
	SpaceID string `uri:"space_id" binding:"required,spaceid"`
	Name    string `uri:"name" binding:"required,max=64"`
}

type ChildParticipantURI struct {
	SpaceID       string `uri:"space_id" binding:"required,spaceid"`
	Name          string `uri:"name" binding:"required,max=64"`
	ParticipantID string `uri:"participant_id" binding:"required,max=128"`
}

type SetChildRoomReq struct {
	Name         string   `json:"name" binding:"required,max=64"`
	Participants []string `json:"participants"`
	OwnerID      string   `json:"ownerId"`
	IsPrivate    bool     `json:"isPrivate"`
}

// SetChildRoom creates a child room. Creating a room whose name already
// exists returns the space unchanged.
func (h *SpaceHandler) SetChildRoom(c *gin.Context) {
	spaceID, ok := bindSpace(c)
	if !ok {
		return
	}
	req := SetChildRoomReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	participants := req.Participants
	if participants == nil {
		participants = []string{}
	}
	sp, err := h.svc.SetChildRoom(c.Request.Context(), spaceID, model.ChildRoom{
		Name:         req.Name,
		Participants: participants,
		OwnerID:      req.OwnerID,
		IsPrivate:    req.IsPrivate,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

func (h *SpaceHandler) DeleteChildRoom(c *gin.Context) {
	uri := ChildRoomURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	sp, err := h.svc.DeleteChildRoom(c.Request.Context(), uri.SpaceID, uri.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

type RenameChildRoomReq struct {
	Name string `json:"name" binding:"required,max=64"`
}

func (h *SpaceHandler) RenameChildRoom(c *gin.Context) {
	uri := ChildRoomURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	req := RenameChildRoomReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.RenameChildRoom(c.Request.Context(), uri.SpaceID, uri.Name, req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

type ChildRoomPrivacyReq struct {
	IsPrivate *bool `json:"isPrivate" binding:"required"`
}

func (h *SpaceHandler) SwitchChildRoomPrivacy(c *gin.Context) {
	uri := ChildRoomURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	req := ChildRoomPrivacyReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.SwitchChildRoomPrivacy(c.Request.Context(), uri.SpaceID, uri.Name, *req.IsPrivate)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

type ChildParticipantReq struct {
	ParticipantID string `json:"participantId" binding:"required,max=128"`
}

func (h *SpaceHandler) AddParticipantToChildRoom(c *gin.Context) {
	uri := ChildRoomURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}
	req := ChildParticipantReq{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.AddParticipantToChildRoom(c.Request.Context(), uri.SpaceID, uri.Name, req.ParticipantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

func (h *SpaceHandler) RemoveParticipantFromChildRoom(c *gin.Context) {
	uri := ChildParticipantURI{}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	sp, err := h.svc.RemoveParticipantFromChildRoom(c.Request.Context(), uri.SpaceID, uri.Name, uri.ParticipantID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: sp})
}

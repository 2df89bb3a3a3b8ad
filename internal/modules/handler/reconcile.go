package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"github.com/vocespace/spacekeeper/internal/modules/service"
)

type ReconcileHandler struct {
	rc service.Reconciler
}

func NewReconcileHandler(rc service.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{rc: rc}
}

// Reconcile runs one pass synchronously and returns its report.
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	rep, err := h.rc.Tick(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, serializer.Err(http.StatusBadGateway, "session provider unavailable", err))
		return
	}
	c.JSON(http.StatusOK, serializer.Response{Data: rep})
}

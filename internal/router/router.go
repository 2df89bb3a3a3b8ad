package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vocespace/spacekeeper/internal/config"
	"github.com/vocespace/spacekeeper/internal/infra/notify"
	"github.com/vocespace/spacekeeper/internal/middleware"
	"github.com/vocespace/spacekeeper/internal/modules/handler"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"github.com/vocespace/spacekeeper/internal/telemetry"
)

type RouterDeps struct {
	Config           *config.Config
	Log              *zap.Logger
	Hub              *notify.Hub
	WSAuth           notify.Authenticator
	SpaceHandler     *handler.SpaceHandler
	RecordHandler    *handler.RecordHandler
	ReconcileHandler *handler.ReconcileHandler
}

func NewRouter(d RouterDeps) (*gin.Engine, error) {
	serializer.SetLogger(d.Log)
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())

	if telemetry.Enabled(d.Config) {
		r.Use(telemetry.GinMiddleware(d.Config.App.Name))
		r.Use(telemetry.TraceIDMiddleware())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// event channel
	r.GET("/ws", d.Hub.ServeWS(d.WSAuth, d.Config.App.WSOrigins))

	v1 := r.Group("/api/v1")
	{
		v1.Use(middleware.BearerAuth(d.Config))

		v1.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "pong"}) })

		space := v1.Group("/space")
		{
			space.GET("", d.SpaceHandler.ListSpaces)
			space.GET("/:space_id", d.SpaceHandler.GetSpace)
			space.DELETE("/:space_id", d.SpaceHandler.DeleteSpace)

			space.PUT("/:space_id/participant/:participant_id", d.SpaceHandler.UpsertParticipant)
			space.DELETE("/:space_id/participant/:participant_id", d.SpaceHandler.RemoveParticipant)
			space.GET("/:space_id/username", d.SpaceHandler.SuggestUsername)

			space.PUT("/:space_id/owner", d.SpaceHandler.TransferOwnership)
			space.PUT("/:space_id/persistence", d.SpaceHandler.SetPersistence)
			space.PUT("/:space_id/apps", d.SpaceHandler.UpdateApps)
			space.POST("/:space_id/status", d.SpaceHandler.AddStatusDefinition)

			child := space.Group("/:space_id/child")
			{
				child.POST("", d.SpaceHandler.SetChildRoom)
				child.DELETE("/:name", d.SpaceHandler.DeleteChildRoom)
				child.PUT("/:name/name", d.SpaceHandler.RenameChildRoom)
				child.PUT("/:name/privacy", d.SpaceHandler.SwitchChildRoomPrivacy)
				child.POST("/:name/participant", d.SpaceHandler.AddParticipantToChildRoom)
				child.DELETE("/:name/participant/:participant_id", d.SpaceHandler.RemoveParticipantFromChildRoom)
			}

			record := space.Group("/:space_id/record")
			{
				record.PATCH("", d.SpaceHandler.UpdateRecordSettings)
				record.POST("/start", d.RecordHandler.Start)
				record.POST("/stop", d.RecordHandler.Stop)
				record.GET("/url", d.RecordHandler.DownloadURL)
			}

			space.GET("/:space_id/chat", d.SpaceHandler.ChatHistory)
			space.POST("/:space_id/chat", d.SpaceHandler.SendChat)
			space.GET("/:space_id/usage", d.SpaceHandler.Usage)
		}

		v1.GET("/usage", d.SpaceHandler.AllUsage)
		v1.POST("/reconcile", d.ReconcileHandler.Reconcile)
	}
	return r, nil
}

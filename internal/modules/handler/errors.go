package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/vocespace/spacekeeper/internal/modules/model"
	"github.com/vocespace/spacekeeper/internal/modules/serializer"
	"github.com/vocespace/spacekeeper/internal/modules/service"
)

// respondErr maps a service error onto a status code and response body.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr("", err))
	case errors.Is(err, service.ErrAlreadyExists):
		c.JSON(http.StatusConflict, serializer.ConflictErr("already exists", err))
	case errors.Is(err, service.ErrAlreadyMember):
		c.JSON(http.StatusConflict, serializer.ConflictErr("already a member", err))
	case errors.Is(err, service.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, serializer.ForbiddenErr("", err))
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, serializer.StoreErr("", err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.InternalErr("", err))
	}
}

func validSpaceID(fl validator.FieldLevel) bool {
	return model.ValidSpaceID(fl.Field().String())
}

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	return v.RegisterValidation("spaceid", validSpaceID)
}

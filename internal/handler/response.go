package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"Lens_Community/internal/middleware"
	apierrors "Lens_Community/internal/pkg/errors"
	"Lens_Community/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator makes validation errors report json field names.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// respondError 业务错误按其状态码返回，其余一律 500 且不暴露细节
func respondError(c *gin.Context, err error) {
	if apiErr, ok := apierrors.AsAPIError(err); ok {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": apierrors.ErrInternal.Message, "code": apierrors.ErrInternal.Code})
}

// bindError turns a binding failure into ValidationFailed naming the first bad field.
func bindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		switch fe.Tag() {
		case "required":
			return apierrors.Validation(fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			return apierrors.Validation(fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "min", "max", "len":
			return apierrors.Validation(fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		case "oneof":
			return apierrors.Validation(fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			return apierrors.Validation(fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return apierrors.Validation("invalid request body")
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func userIDFromCtx(c *gin.Context) uint64 {
	if v, ok := c.Get(middleware.ContextUserIDKey); ok {
		if id, ok2 := v.(uint64); ok2 {
			return id
		}
	}
	return 0
}

// paramID parses a numeric path parameter; a bad value answers 404.
func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apierrors.ErrNotFound)
		return 0, false
	}
	return id, true
}

func parseQueryID(v string) (uint64, bool) {
	id, err := strconv.ParseUint(v, 10, 64)
	return id, err == nil
}

func pageFromQuery(c *gin.Context) service.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", c.Query("limit")))
	return service.Page{Page: page, PageSize: size}
}

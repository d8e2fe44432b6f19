package controller

import (
	"apart_backend/internal/util"
	"apart_backend/internal/validation"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 核心接口的两种错误体：答题接口用 {"error": ...}，考试接口用 {"detail": ...}
const (
	errorKey  = "error"
	detailKey = "detail"
)

func writeError(ctx *gin.Context, key string, code int, message string, fields map[string]string) {
	body := gin.H{key: message}
	if len(fields) > 0 {
		body["fields"] = fields
	}
	ctx.JSON(code, body)
}

// handleError maps domain errors to HTTP responses; anything unknown is a 500.
func handleError(ctx *gin.Context, key string, err error) {
	if ie, ok := validation.IsInputError(err); ok {
		writeError(ctx, key, http.StatusBadRequest, "Invalid input.", ie.Fields)
		return
	}
	switch {
	case errors.Is(err, validation.ErrUnsupportedActivityType):
		writeError(ctx, key, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, util.ErrActivityNotFound),
		errors.Is(err, util.ErrExamNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrCourseNotFound):
		writeError(ctx, key, http.StatusNotFound, "Not found.", nil)
	case errors.Is(err, util.ErrNoAttemptsRemaining):
		writeError(ctx, key, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, util.ErrAttemptNotInProgress):
		writeError(ctx, key, http.StatusBadRequest, "Attempt is not in progress.", nil)
	case errors.Is(err, util.ErrPermissionDenied):
		writeError(ctx, key, http.StatusForbidden, "Forbidden.", nil)
	default:
		util.LogInternalError(ctx, err)
	}
}

// pathID 非数字 id 按不存在处理
func pathID(ctx *gin.Context, name, key string) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		writeError(ctx, key, http.StatusNotFound, "Not found.", nil)
	}
	return id, ok
}

func currentUserID(ctx *gin.Context) uint {
	if claims := util.GetUserFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return 0
}

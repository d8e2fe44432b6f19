package controller

import (
	"apart_backend/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Progress *service.CourseProgressService
}

func NewCourseController(progress *service.CourseProgressService) *CourseController {
	return &CourseController{Progress: progress}
}

// GetProgress godoc
// @Summary 课程学习进度
// @Tags 课程
// @Produce json
// @Param course_id path int true "课程ID"
// @Success 200 {object} dto.CourseProgressResponse
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/courses/{course_id}/progress/ [get]
func (c *CourseController) GetProgress(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "course_id", errorKey)
	if !ok {
		return
	}
	resp, err := c.Progress.Compute(ctx.Request.Context(), courseID, currentUserID(ctx))
	if err != nil {
		handleError(ctx, errorKey, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

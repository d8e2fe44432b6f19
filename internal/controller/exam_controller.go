package controller

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/model"
	"apart_backend/internal/service"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

type ExamController struct {
	Attempts *service.ExamAttemptService
	Exams    *service.ExamService
	Grading  *service.ExamGradingService
}

func NewExamController(attempts *service.ExamAttemptService, exams *service.ExamService, grading *service.ExamGradingService) *ExamController {
	return &ExamController{Attempts: attempts, Exams: exams, Grading: grading}
}

// StartAttempt godoc
// @Summary 开始考试
// @Description 新建作答返回 201；已有未过期的进行中作答时原样返回 200
// @Tags 考试
// @Produce json
// @Param exam_id path int true "试卷ID"
// @Success 201 {object} dto.StartAttemptResponse
// @Success 200 {object} dto.StartAttemptResponse
// @Failure 400 {object} map[string]string "No attempts remaining."
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/exams/{exam_id}/start/ [post]
func (c *ExamController) StartAttempt(ctx *gin.Context) {
	examID, ok := pathID(ctx, "exam_id", detailKey)
	if !ok {
		return
	}

	result, err := c.Attempts.StartAttempt(ctx.Request.Context(), examID, currentUserID(ctx))
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}

	var resp dto.StartAttemptResponse
	if err := copier.Copy(&resp, result.Attempt); err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	ctx.JSON(status, resp)
}

// ListActivities godoc
// @Summary 获取试卷题目
// @Description 需要持有该试卷未过期的进行中作答；shuffle=1/true/True 时随机排序
// @Tags 考试
// @Produce json
// @Param exam_id path int true "试卷ID"
// @Param shuffle query string false "是否打乱"
// @Success 200 {array} dto.ExamActivityResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/exams/{exam_id}/activities/ [get]
func (c *ExamController) ListActivities(ctx *gin.Context) {
	examID, ok := pathID(ctx, "exam_id", detailKey)
	if !ok {
		return
	}

	shuffle := false
	switch ctx.Query("shuffle") {
	case "1", "true", "True":
		shuffle = true
	}

	items, err := c.Exams.ListActivities(ctx.Request.Context(), examID, currentUserID(ctx), shuffle)
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	ctx.JSON(http.StatusOK, items)
}

// ListCourseExams godoc
// @Summary 课程试卷列表
// @Description 课程下已发布的试卷，附带当前用户的剩余次数和最好成绩
// @Tags 考试
// @Produce json
// @Param course_id path int true "课程ID"
// @Success 200 {array} dto.CourseExamResponse
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/courses/{course_id}/exams/ [get]
func (c *ExamController) ListCourseExams(ctx *gin.Context) {
	courseID, ok := pathID(ctx, "course_id", detailKey)
	if !ok {
		return
	}
	items, err := c.Exams.ListCourseExams(ctx.Request.Context(), courseID, currentUserID(ctx))
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	ctx.JSON(http.StatusOK, items)
}

// GetAttempt godoc
// @Summary 查看作答
// @Description 只能查看自己的作答；进行中的作答 answers 为空
// @Tags 考试
// @Produce json
// @Param attempt_id path int true "作答ID"
// @Success 200 {object} dto.AttemptReviewResponse
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/exam-attempts/{attempt_id}/ [get]
func (c *ExamController) GetAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id", detailKey)
	if !ok {
		return
	}
	review, err := c.Attempts.GetAttempt(ctx.Request.Context(), attemptID, currentUserID(ctx))
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}

	var resp dto.AttemptReviewResponse
	if err := copier.Copy(&resp.AttemptResultResponse, review.Attempt); err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	resp.AttemptNumber = review.Attempt.AttemptNumber
	resp.StartedAt = review.Attempt.StartedAt
	if review.Attempt.Exam != nil {
		resp.ExamTitle = review.Attempt.Exam.Title
	}
	resp.ExpiresAt = review.ExpiresAt
	resp.Answers = make([]dto.UserAnswerResponse, 0, len(review.Answers))
	for i := range review.Answers {
		var item dto.UserAnswerResponse
		if err := copier.Copy(&item, &review.Answers[i]); err != nil {
			handleError(ctx, detailKey, err)
			return
		}
		item.ResponseData = json.RawMessage(review.Answers[i].ResponseData)
		resp.Answers = append(resp.Answers, item)
	}
	ctx.JSON(http.StatusOK, resp)
}

// FinishAttempt godoc
// @Summary 交卷并评分
// @Tags 考试
// @Accept json
// @Produce json
// @Param attempt_id path int true "作答ID"
// @Param body body dto.FinishAttemptRequest true "全部作答"
// @Success 200 {object} dto.AttemptResultResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/exam-attempts/{attempt_id}/finish/ [post]
func (c *ExamController) FinishAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id", detailKey)
	if !ok {
		return
	}

	var req dto.FinishAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		writeError(ctx, detailKey, http.StatusBadRequest, err.Error(), nil)
		return
	}
	items := make([]service.Submission, 0, len(req.Answers))
	for _, a := range req.Answers {
		items = append(items, service.Submission{ActivityID: a.ActivityID, InputData: a.InputData})
	}

	graded, err := c.Attempts.FinishAttempt(ctx.Request.Context(), attemptID, currentUserID(ctx), items)
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	c.writeResult(ctx, graded)
}

// CancelAttempt godoc
// @Summary 放弃作答
// @Tags 考试
// @Produce json
// @Param attempt_id path int true "作答ID"
// @Success 200 {object} dto.AttemptResultResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/exam-attempts/{attempt_id}/cancel/ [post]
func (c *ExamController) CancelAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id", detailKey)
	if !ok {
		return
	}
	cancelled, err := c.Attempts.CancelAttempt(ctx.Request.Context(), attemptID, currentUserID(ctx))
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	c.writeResult(ctx, cancelled)
}

// RegradeAttempt godoc
// @Summary 重新评分
// @Description 教师/管理员强制结束并计分；已 GRADED 或 CANCELLED 的作答原样返回
// @Tags 考试
// @Produce json
// @Param attempt_id path int true "作答ID"
// @Success 200 {object} dto.AttemptResultResponse
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/admin/exam-attempts/{attempt_id}/grade/ [post]
func (c *ExamController) RegradeAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "attempt_id", detailKey)
	if !ok {
		return
	}
	graded, err := c.Grading.FinalizeAndGrade(ctx.Request.Context(), attemptID)
	if err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	c.writeResult(ctx, graded)
}

func (c *ExamController) writeResult(ctx *gin.Context, attempt *model.ExamAttempt) {
	var resp dto.AttemptResultResponse
	if err := copier.Copy(&resp, attempt); err != nil {
		handleError(ctx, detailKey, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

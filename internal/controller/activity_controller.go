package controller

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/service"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

type ActivityController struct {
	Answers *service.AnswerSubmissionService
}

func NewActivityController(answers *service.AnswerSubmissionService) *ActivityController {
	return &ActivityController{Answers: answers}
}

// SubmitAnswer godoc
// @Summary 提交单题作答
// @Description 请求体即题型对应的输入结构，例如 {"selected_ids":[1]}
// @Tags 题目
// @Accept json
// @Produce json
// @Param activity_id path int true "题目ID"
// @Success 201 {object} dto.UserAnswerResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /api/activities/{activity_id}/submit/ [post]
func (c *ActivityController) SubmitAnswer(ctx *gin.Context) {
	activityID, ok := pathID(ctx, "activity_id", errorKey)
	if !ok {
		return
	}

	raw, err := ctx.GetRawData()
	if err != nil {
		writeError(ctx, errorKey, http.StatusBadRequest, "unable to read request body", nil)
		return
	}
	// 兼容 {"input_data": {...}} 包装
	var wrapped dto.SubmitAnswerRequest
	if json.Unmarshal(raw, &wrapped) == nil && len(wrapped.InputData) > 0 {
		raw = wrapped.InputData
	}

	answer, err := c.Answers.Submit(ctx.Request.Context(), currentUserID(ctx), activityID, raw)
	if err != nil {
		handleError(ctx, errorKey, err)
		return
	}

	var resp dto.UserAnswerResponse
	if err := copier.Copy(&resp, answer); err != nil {
		handleError(ctx, errorKey, err)
		return
	}
	resp.ResponseData = json.RawMessage(answer.ResponseData)
	ctx.JSON(http.StatusCreated, resp)
}

package controller

import (
	"apart_backend/internal/service"
	"apart_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type LeaderboardController struct {
	Leaderboard *service.LeaderboardService
}

func NewLeaderboardController(leaderboard *service.LeaderboardService) *LeaderboardController {
	return &LeaderboardController{Leaderboard: leaderboard}
}

// GetLeaderboard godoc
// @Summary 排行榜
// @Description 按答对题目的分值排名，当前用户不在前 N 名时追加其名次
// @Tags 统计
// @Produce json
// @Param time_window query string false "day/week/month/all"
// @Param module_id query int false "模块ID"
// @Param limit query int false "返回条数"
// @Success 200 {array} dto.LeaderboardEntry
// @Failure 400 {object} map[string]string
// @Security ApiKeyAuth
// @Router /api/leaderboard/ [get]
func (c *LeaderboardController) GetLeaderboard(ctx *gin.Context) {
	q := service.LeaderboardQuery{
		RequesterID: currentUserID(ctx),
		TimeWindow:  ctx.DefaultQuery("time_window", service.WindowAll),
	}

	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeError(ctx, errorKey, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		q.Limit = limit
	}
	if raw := ctx.Query("module_id"); raw != "" {
		moduleID, ok := util.ParseID(raw)
		if !ok {
			writeError(ctx, errorKey, http.StatusBadRequest, "module_id must be a positive integer", nil)
			return
		}
		q.ModuleID = &moduleID
	}

	entries, err := c.Leaderboard.Leaderboard(ctx.Request.Context(), q)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, entries)
}

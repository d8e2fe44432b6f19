package service

import (
	"apart_backend/pkg/logger"
	"apart_backend/pkg/monitoring"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// SideEffect 事务提交之后才执行的尽力而为操作，失败只记日志
type SideEffect struct {
	Name string
	Run  func(ctx context.Context) error
}

// runAfterCommit runs every effect in isolation: an error or panic in one is
// logged and counted, and never reaches the caller or the next effect.
func runAfterCommit(ctx context.Context, effects []SideEffect) {
	for _, e := range effects {
		runIsolated(ctx, e)
	}
}

func runIsolated(ctx context.Context, e SideEffect) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.SideEffectFailures.WithLabelValues(e.Name).Inc()
			logger.Log.Error("post-commit side effect panicked",
				zap.String("name", e.Name),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	if err := e.Run(ctx); err != nil {
		monitoring.SideEffectFailures.WithLabelValues(e.Name).Inc()
		logger.Log.Warn("post-commit side effect failed", zap.String("name", e.Name), zap.Error(err))
	}
}

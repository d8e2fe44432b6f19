package service

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/repository"
	"apart_backend/pkg/tracing"
	"context"
	"sync"
	"time"
)

const (
	WindowDay   = "day"
	WindowWeek  = "week"
	WindowMonth = "month"
	WindowAll   = "all"
)

type LeaderboardQuery struct {
	// 0 表示匿名，不追加本人名次
	RequesterID uint
	Limit       int
	TimeWindow  string
	ModuleID    *uint
}

type LeaderboardService struct {
	AnswerRepo *repository.UserAnswerRepository
	UserRepo   *repository.UserRepository
	now        func() time.Time

	mu           sync.RWMutex
	defaultLimit int
	maxLimit     int
}

func NewLeaderboardService(answerRepo *repository.UserAnswerRepository, userRepo *repository.UserRepository, defaultLimit, maxLimit int) *LeaderboardService {
	s := &LeaderboardService{
		AnswerRepo: answerRepo,
		UserRepo:   userRepo,
		now:        time.Now,
	}
	s.SetLimits(defaultLimit, maxLimit)
	return s
}

// SetLimits is called again when the config file changes.
func (s *LeaderboardService) SetLimits(defaultLimit, maxLimit int) {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(10, maxLimit)
	}
	s.mu.Lock()
	s.defaultLimit, s.maxLimit = defaultLimit, maxLimit
	s.mu.Unlock()
}

func (s *LeaderboardService) limit(requested int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if requested <= 0 {
		return s.defaultLimit
	}
	return min(requested, s.maxLimit)
}

// since 未知窗口按 all 处理
func (s *LeaderboardService) since(window string) *time.Time {
	var d time.Duration
	switch window {
	case WindowDay:
		d = 24 * time.Hour
	case WindowWeek:
		d = 7 * 24 * time.Hour
	case WindowMonth:
		d = 30 * 24 * time.Hour
	default:
		return nil
	}
	t := s.now().Add(-d)
	return &t
}

// Leaderboard ranks users by distinct correctly answered activities' points.
// Positions are dense on total_points; ties are listed by ascending user id.
func (s *LeaderboardService) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]dto.LeaderboardEntry, error) {
	ctx, span := tracing.Start(ctx, "LeaderboardService.Leaderboard")
	defer span.End()

	rows, err := s.AnswerRepo.LeaderboardRows(ctx, repository.LeaderboardFilter{
		Since:    s.since(q.TimeWindow),
		ModuleID: q.ModuleID,
	})
	if err != nil {
		return nil, err
	}

	positions := make([]uint, len(rows))
	var pos uint
	for i, r := range rows {
		if i == 0 || r.TotalPoints != rows[i-1].TotalPoints {
			pos++
		}
		positions[i] = pos
	}

	n := min(s.limit(q.Limit), len(rows))
	picked := make([]int, 0, n+1)
	requesterListed := false
	for i := 0; i < n; i++ {
		picked = append(picked, i)
		if rows[i].UserID == q.RequesterID {
			requesterListed = true
		}
	}
	if q.RequesterID != 0 && !requesterListed {
		for i := n; i < len(rows); i++ {
			if rows[i].UserID == q.RequesterID {
				picked = append(picked, i)
				break
			}
		}
	}

	ids := make([]uint, 0, len(picked))
	for _, i := range picked {
		ids = append(ids, rows[i].UserID)
	}
	users, err := s.UserRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.LeaderboardEntry, 0, len(picked))
	for _, i := range picked {
		r := rows[i]
		entry := dto.LeaderboardEntry{
			UserID:          r.UserID,
			TotalPoints:     r.TotalPoints,
			ActivitiesCount: r.ActivitiesCount,
			Position:        positions[i],
		}
		if u, ok := users[r.UserID]; ok {
			entry.Username = u.Username
			entry.FullName = u.FullName()
		}
		out = append(out, entry)
	}
	return out, nil
}

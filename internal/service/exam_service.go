package service

import (
	"apart_backend/internal/dto"
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/internal/util"
	"apart_backend/internal/validation"
	"apart_backend/pkg/tracing"
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jinzhu/copier"
	"gorm.io/gorm"
)

type ExamService struct {
	CourseRepo  *repository.CourseRepository
	ExamRepo    *repository.ExamRepository
	AttemptRepo *repository.ExamAttemptRepository
	Registry    *validation.Registry
	now         func() time.Time
	shuffle     func(n int, swap func(i, j int))
}

func NewExamService(
	courseRepo *repository.CourseRepository,
	examRepo *repository.ExamRepository,
	attemptRepo *repository.ExamAttemptRepository,
	registry *validation.Registry,
) *ExamService {
	return &ExamService{
		CourseRepo:  courseRepo,
		ExamRepo:    examRepo,
		AttemptRepo: attemptRepo,
		Registry:    registry,
		now:         time.Now,
		shuffle:     rand.Shuffle,
	}
}

// ListActivities 返回试卷题目及各题型的展示载荷。调用者必须持有该试卷
// 一次未过期的进行中作答。
func (s *ExamService) ListActivities(ctx context.Context, examID, userID uint, shuffle bool) ([]dto.ExamActivityResponse, error) {
	ctx, span := tracing.Start(ctx, "ExamService.ListActivities")
	defer span.End()

	exam, err := s.ExamRepo.FindPublishedByID(ctx, examID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrExamNotFound
		}
		return nil, err
	}

	live, err := s.AttemptRepo.FindInProgress(ctx, exam.ID, userID)
	if err != nil {
		return nil, err
	}
	if live == nil || live.IsExpired(exam.TimeLimitMinutes, s.now()) {
		return nil, util.ErrPermissionDenied
	}

	links, err := s.ExamRepo.ListActivities(ctx, exam.ID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.ExamActivityResponse, 0, len(links))
	for i := range links {
		link := &links[i]
		if link.Activity == nil {
			continue
		}
		payload, err := s.Registry.Payload(link.Activity)
		if err != nil {
			return nil, err
		}
		var item dto.ExamActivityResponse
		if err := copier.Copy(&item, link); err != nil {
			return nil, err
		}
		if err := copier.Copy(&item.Activity, link.Activity); err != nil {
			return nil, err
		}
		item.Activity.Payload = payload
		out = append(out, item)
	}

	if shuffle {
		s.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out, nil
}

// ListCourseExams 课程下已发布的试卷，附带当前用户的剩余次数、最近一次作答时间和最好成绩
func (s *ExamService) ListCourseExams(ctx context.Context, courseID, userID uint) ([]dto.CourseExamResponse, error) {
	ctx, span := tracing.Start(ctx, "ExamService.ListCourseExams")
	defer span.End()

	if _, err := s.CourseRepo.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	exams, err := s.ExamRepo.ListPublishedByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]dto.CourseExamResponse, 0, len(exams))
	for i := range exams {
		exam := &exams[i]
		var item dto.CourseExamResponse
		if err := copier.Copy(&item, exam); err != nil {
			return nil, err
		}
		attempts, err := s.AttemptRepo.ListByUser(ctx, exam.ID, userID)
		if err != nil {
			return nil, err
		}
		summarizeAttempts(&item, exam, attempts, now)
		out = append(out, item)
	}
	return out, nil
}

// summarizeAttempts 过期但尚未关闭的进行中作答按已用一次计算；
// 最好成绩只看 GRADED/EXPIRED，百分比相同取评分时间较晚的一次
func summarizeAttempts(item *dto.CourseExamResponse, exam *model.Exam, attempts []model.ExamAttempt, now time.Time) {
	var used uint
	live := false
	var best *model.ExamAttempt
	for i := range attempts {
		a := &attempts[i]
		if item.UserLastAttemptAt == nil || a.StartedAt.After(*item.UserLastAttemptAt) {
			started := a.StartedAt
			item.UserLastAttemptAt = &started
		}
		switch {
		case a.Status == model.AttemptInProgress:
			if a.IsExpired(exam.TimeLimitMinutes, now) {
				used++
			} else {
				live = true
			}
		case a.Status.Consumes():
			used++
		}
		if a.Status == model.AttemptGraded || a.Status == model.AttemptExpired {
			if best == nil || betterAttempt(a, best) {
				best = a
			}
		}
	}

	if exam.AttemptsAllowed > 0 {
		var remaining uint
		if exam.AttemptsAllowed > used {
			remaining = exam.AttemptsAllowed - used
		}
		item.RemainingAttempts = &remaining
	}
	item.HasAttemptsLeft = live || item.RemainingAttempts == nil || *item.RemainingAttempts > 0

	if best != nil {
		pct, passed := best.Percentage, best.Passed
		item.UserPercentage = &pct
		item.UserPassed = &passed
	}
}

func betterAttempt(a, b *model.ExamAttempt) bool {
	if a.Percentage != b.Percentage {
		return a.Percentage > b.Percentage
	}
	var at, bt time.Time
	if a.GradedAt != nil {
		at = *a.GradedAt
	}
	if b.GradedAt != nil {
		bt = *b.GradedAt
	}
	return at.After(bt)
}

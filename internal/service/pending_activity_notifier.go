package service

import (
	"apart_backend/internal/model"
	"apart_backend/internal/repository"
	"apart_backend/pkg/logger"
	"apart_backend/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultPendingWindowDays = 3

type PendingActivityOptions struct {
	// 向后查看的天数，<= 0 时取默认值
	Days     int
	CourseID uint
	ModuleID uint
	DryRun   bool
}

type PendingActivity struct {
	ID    uint
	Title string
	Type  model.ActivityType
}

// PendingNotice 一封提醒邮件的内容
type PendingNotice struct {
	Email      string
	FirstName  string
	CourseName string
	ModuleName string
	Deadline   time.Time
	Activities []PendingActivity
}

func (n PendingNotice) Subject() string {
	return fmt.Sprintf("[%s] Pending activities in module %q", n.CourseName, n.ModuleName)
}

type NotifySummary struct {
	Modules int
	// 实际发送（dry run 时为将要发送）的邮件数
	Notices int
	Skipped int
}

// PendingActivityNotifier 提醒当前课程的学生完成即将截止模块里还没做过的题目
type PendingActivityNotifier struct {
	CourseRepo   *repository.CourseRepository
	StudentRepo  *repository.StudentRepository
	ActivityRepo *repository.ActivityRepository
	AnswerRepo   *repository.UserAnswerRepository
	Mailer       Mailer
	now          func() time.Time
}

func NewPendingActivityNotifier(
	courseRepo *repository.CourseRepository,
	studentRepo *repository.StudentRepository,
	activityRepo *repository.ActivityRepository,
	answerRepo *repository.UserAnswerRepository,
	mailer Mailer,
) *PendingActivityNotifier {
	return &PendingActivityNotifier{
		CourseRepo:   courseRepo,
		StudentRepo:  studentRepo,
		ActivityRepo: activityRepo,
		AnswerRepo:   answerRepo,
		Mailer:       mailer,
		now:          time.Now,
	}
}

func (n *PendingActivityNotifier) Run(ctx context.Context, opts PendingActivityOptions) (*NotifySummary, error) {
	ctx, span := tracing.Start(ctx, "PendingActivityNotifier.Run")
	defer span.End()

	days := opts.Days
	if days <= 0 {
		days = DefaultPendingWindowDays
	}
	from := n.now().UTC()
	modules, err := n.CourseRepo.ListModulesEndingBetween(ctx, repository.ModuleFilter{
		From:     from,
		Until:    from.AddDate(0, 0, days),
		CourseID: opts.CourseID,
		ModuleID: opts.ModuleID,
	})
	if err != nil {
		return nil, err
	}

	summary := &NotifySummary{Modules: len(modules)}
	if len(modules) == 0 {
		logger.Log.Warn("no modules ending in window", zap.Int("days", days))
		return summary, nil
	}

	courses := make(map[uint]*model.Course)
	for i := range modules {
		module := &modules[i]
		course, ok := courses[module.CourseID]
		if !ok {
			course, err = n.CourseRepo.FindByID(ctx, module.CourseID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			courses[module.CourseID] = course
		}
		if err := n.notifyModule(ctx, course, module, opts.DryRun, summary); err != nil {
			return nil, err
		}
		logger.Log.Info("module notifications processed",
			zap.Uint("courseId", course.ID),
			zap.Uint("moduleId", module.ID),
			zap.String("module", module.Name),
		)
	}

	logger.Log.Info("pending activity notifications finished",
		zap.Bool("dryRun", opts.DryRun),
		zap.Int("notices", summary.Notices),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (n *PendingActivityNotifier) notifyModule(ctx context.Context, course *model.Course, module *model.Module, dryRun bool, summary *NotifySummary) error {
	students, err := n.StudentRepo.ListContactsByActiveCourse(ctx, course.ID)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		logger.Log.Warn("course has no students, skipping", zap.Uint("courseId", course.ID))
		return nil
	}
	activities, err := n.ActivityRepo.ListByModule(ctx, module.ID)
	if err != nil {
		return err
	}

	for _, st := range students {
		if st.Email == "" {
			summary.Skipped++
			logger.Log.Warn("student has no email, skipping", zap.Uint("studentId", st.StudentID))
			continue
		}
		answered, err := n.AnswerRepo.AnsweredActivityIDs(ctx, st.UserID, module.ID)
		if err != nil {
			return err
		}
		pending := pendingActivities(activities, answered)
		if len(pending) == 0 {
			continue
		}

		firstName := st.FirstName
		if firstName == "" {
			firstName = st.Username
		}
		notice := PendingNotice{
			Email:      st.Email,
			FirstName:  firstName,
			CourseName: course.Name,
			ModuleName: module.Name,
			Deadline:   *module.EndDate,
			Activities: pending,
		}
		if dryRun {
			logger.Log.Info("[dry-run] pending activity notice",
				zap.String("to", notice.Email),
				zap.String("subject", notice.Subject()),
				zap.Int("activities", len(pending)),
			)
		} else if err := n.Mailer.SendPendingActivities(ctx, notice); err != nil {
			return fmt.Errorf("notify %s: %w", notice.Email, err)
		}
		summary.Notices++
	}
	return nil
}

func pendingActivities(activities []model.Activity, answered []uint) []PendingActivity {
	done := make(map[uint]struct{}, len(answered))
	for _, id := range answered {
		done[id] = struct{}{}
	}
	var out []PendingActivity
	for _, a := range activities {
		if _, ok := done[a.ID]; ok {
			continue
		}
		out = append(out, PendingActivity{ID: a.ID, Title: a.Title, Type: a.Type})
	}
	return out
}

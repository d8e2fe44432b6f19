// Package testutil opens an in-memory database with the production schema and
// builds fixtures directly through gorm.
package testutil

import (
	"apart_backend/internal/config"
	"apart_backend/internal/model"
	"apart_backend/pkg/database"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   ":memory:",
	}, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func MustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	require.NoError(t, db.Create(value).Error)
}

// CreateUser 学生角色会同时建 StudentProfile
func CreateUser(t *testing.T, db *gorm.DB, username string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "x",
		FirstName: username,
		LastName:  "Tester",
		Role:      role,
	}
	MustCreate(t, db, u)
	if role == model.Student {
		MustCreate(t, db, &model.StudentProfile{UserID: u.ID})
	}
	return u
}

func StudentOf(t *testing.T, db *gorm.DB, userID uint) *model.StudentProfile {
	t.Helper()
	var s model.StudentProfile
	require.NoError(t, db.Where("user_id = ?", userID).First(&s).Error)
	return &s
}

// CreateCourse creates a course with one module per name, positions in argument order.
func CreateCourse(t *testing.T, db *gorm.DB, name string, modules ...string) (*model.Course, []model.Module) {
	t.Helper()
	c := &model.Course{Name: name, Difficulty: model.DifficultyEasy}
	MustCreate(t, db, c)
	out := make([]model.Module, 0, len(modules))
	for i, m := range modules {
		mod := model.Module{CourseID: c.ID, Name: m, Position: i + 1}
		MustCreate(t, db, &mod)
		out = append(out, mod)
	}
	return c, out
}

// ChoiceActivity 单选题，第一个选项正确
func ChoiceActivity(moduleID *uint, points uint) *model.Activity {
	return model.NewChoiceActivity(model.ActivityInfo{
		ModuleID: moduleID,
		Title:    fmt.Sprintf("choice worth %d", points),
		Points:   points,
	}, false,
		model.Choice{Text: "right", IsCorrect: true},
		model.Choice{Text: "wrong"},
	)
}

func CreateActivity(t *testing.T, db *gorm.DB, a *model.Activity) *model.Activity {
	t.Helper()
	MustCreate(t, db, a)
	return a
}

func CreateChoiceActivities(t *testing.T, db *gorm.DB, moduleID *uint, points uint, n int) []*model.Activity {
	t.Helper()
	out := make([]*model.Activity, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, CreateActivity(t, db, ChoiceActivity(moduleID, points)))
	}
	return out
}

// CreateExam links the activities in order, all required.
func CreateExam(t *testing.T, db *gorm.DB, exam *model.Exam, activities ...*model.Activity) *model.Exam {
	t.Helper()
	MustCreate(t, db, exam)
	for i, a := range activities {
		MustCreate(t, db, &model.ExamActivity{
			ExamID:     exam.ID,
			ActivityID: a.ID,
			Required:   true,
			Position:   uint(i + 1),
		})
	}
	return exam
}

func ChoiceInput(a *model.Activity, correct bool) json.RawMessage {
	for _, c := range a.Choice.Choices {
		if c.IsCorrect == correct {
			return json.RawMessage(fmt.Sprintf(`{"selected_ids":[%d]}`, c.ID))
		}
	}
	panic("activity has no matching choice")
}

func UintPtr(v uint) *uint {
	return &v
}

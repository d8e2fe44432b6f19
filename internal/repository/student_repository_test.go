package repository

import (
	"apart_backend/internal/model"
	"apart_backend/internal/testutil"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentRepository_AddVocabularySkipsDuplicates(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewStudentRepository(db)

	user := testutil.CreateUser(t, db, "ana", model.Student)
	student, err := repo.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, student)

	inserted, err := repo.AddVocabulary(ctx, &model.Vocabulary{StudentID: student.ID, Word: "gato", Meaning: "cat"})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.AddVocabulary(ctx, &model.Vocabulary{StudentID: student.ID, Word: "gato", Meaning: "kitty"})
	require.NoError(t, err)
	assert.False(t, inserted)

	words, err := repo.ListVocabulary(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, "cat", words[0].Meaning)
}

func TestStudentRepository_NonStudent(t *testing.T) {
	db := testutil.NewDB(t)
	teacher := testutil.CreateUser(t, db, "tom", model.Teacher)

	student, err := NewStudentRepository(db).FindByUserID(context.Background(), teacher.ID)
	require.NoError(t, err)
	assert.Nil(t, student)
}

func TestActivityRepository_LoadsPayload(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	_, modules := testutil.CreateCourse(t, db, "Spanish", "Basics")
	created := testutil.CreateActivity(t, db, model.NewMatchingActivity(model.ActivityInfo{ModuleID: &modules[0].ID, Title: "animals"},
		model.MatchingPair{Left: "cat", Right: "gato", IsVocabulary: true},
		model.MatchingPair{Left: "dog", Right: "perro"},
	))
	fill := testutil.CreateActivity(t, db, model.NewFillInTheBlankActivity(model.ActivityInfo{Title: "fill"}, "{{blank}}", map[string]string{"0": "hola"}))

	got, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.HasPayload())
	require.NotNil(t, got.Matching)
	assert.Len(t, got.Matching.Pairs, 2)
	assert.Len(t, got.Matching.VocabularyPairs(), 1)
	assert.Nil(t, got.Choice)

	got, err = repo.FindByID(ctx, fill.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FillInTheBlank)
	assert.Equal(t, map[string]string{"0": "hola"}, got.FillInTheBlank.Answers())

	courseIDs, err := repo.CourseIDsOf(ctx, []uint{created.ID, fill.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{modules[0].CourseID}, courseIDs)

	courseIDs, err = repo.CourseIDsOf(ctx, []uint{fill.ID})
	require.NoError(t, err)
	assert.Empty(t, courseIDs)
}

func TestActivityRepository_CourseIDsOfCollapsesModules(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	repo := NewActivityRepository(db)

	spanish, spanishModules := testutil.CreateCourse(t, db, "Spanish", "Basics", "Food")
	french, frenchModules := testutil.CreateCourse(t, db, "French", "Basics")
	a := testutil.CreateActivity(t, db, testutil.ChoiceActivity(&spanishModules[0].ID, 1))
	b := testutil.CreateActivity(t, db, testutil.ChoiceActivity(&spanishModules[1].ID, 1))
	c := testutil.CreateActivity(t, db, testutil.ChoiceActivity(&spanishModules[1].ID, 1))
	d := testutil.CreateActivity(t, db, testutil.ChoiceActivity(&frenchModules[0].ID, 1))

	courseIDs, err := repo.CourseIDsOf(ctx, []uint{a.ID, b.ID, c.ID, d.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{spanish.ID, french.ID}, courseIDs)

	listed, err := repo.ListByModule(ctx, spanishModules[1].ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, b.ID, listed[0].ID)
	assert.Equal(t, c.ID, listed[1].ID)
}

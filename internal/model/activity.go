package model

import (
	"sort"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityChoice       ActivityType = "choice"
	ActivityFillInBlank  ActivityType = "fill_in"
	ActivityMatching     ActivityType = "matching"
	ActivityWordOrdering ActivityType = "order"
)

// Activity 公共字段 + 按类型挂载的题目载荷（与 activities 表共享主键）。
// 只通过 NewXxxActivity 构造，保证 Type 与载荷一致。
type Activity struct {
	BaseModel
	ModuleID     *uint        `gorm:"index" json:"moduleId,omitempty"`
	Module       *Module      `gorm:"foreignKey:ModuleID" json:"-"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Instructions string       `gorm:"type:text" json:"instructions"`
	Feedback     string       `gorm:"type:text" json:"feedback"`
	Difficulty   Difficulty   `gorm:"size:20;default:'medium'" json:"difficulty"`
	Type         ActivityType `gorm:"size:20;not null;index" json:"type"`
	Points       uint         `gorm:"default:0" json:"points"`

	Choice         *ChoiceActivity         `gorm:"foreignKey:ActivityID" json:"-"`
	FillInTheBlank *FillInTheBlankActivity `gorm:"foreignKey:ActivityID" json:"-"`
	Matching       *MatchingActivity       `gorm:"foreignKey:ActivityID" json:"-"`
	WordOrdering   *WordOrderingActivity   `gorm:"foreignKey:ActivityID" json:"-"`
}

func (Activity) TableName() string {
	return "activities"
}

// ActivityInfo carries the fields shared by every activity type.
type ActivityInfo struct {
	ModuleID     *uint
	Title        string
	Instructions string
	Feedback     string
	Difficulty   Difficulty
	Points       uint
}

func newActivity(info ActivityInfo, t ActivityType) *Activity {
	difficulty := info.Difficulty
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	return &Activity{
		ModuleID:     info.ModuleID,
		Title:        info.Title,
		Instructions: info.Instructions,
		Feedback:     info.Feedback,
		Difficulty:   difficulty,
		Type:         t,
		Points:       info.Points,
	}
}

func NewChoiceActivity(info ActivityInfo, isMultiple bool, choices ...Choice) *Activity {
	a := newActivity(info, ActivityChoice)
	a.Choice = &ChoiceActivity{IsMultiple: isMultiple, Choices: choices}
	return a
}

func NewFillInTheBlankActivity(info ActivityInfo, text string, correctAnswers map[string]string) *Activity {
	a := newActivity(info, ActivityFillInBlank)
	a.FillInTheBlank = &FillInTheBlankActivity{
		Text:           text,
		CorrectAnswers: datatypes.NewJSONType(correctAnswers),
	}
	return a
}

func NewMatchingActivity(info ActivityInfo, pairs ...MatchingPair) *Activity {
	a := newActivity(info, ActivityMatching)
	a.Matching = &MatchingActivity{Pairs: pairs}
	return a
}

func NewWordOrderingActivity(info ActivityInfo, sentence string) *Activity {
	a := newActivity(info, ActivityWordOrdering)
	a.WordOrdering = &WordOrderingActivity{Sentence: sentence}
	return a
}

// HasPayload reports whether the payload row matching Type was loaded.
func (a *Activity) HasPayload() bool {
	switch a.Type {
	case ActivityChoice:
		return a.Choice != nil
	case ActivityFillInBlank:
		return a.FillInTheBlank != nil
	case ActivityMatching:
		return a.Matching != nil
	case ActivityWordOrdering:
		return a.WordOrdering != nil
	}
	return false
}

type ChoiceActivity struct {
	ActivityID uint     `gorm:"primaryKey;autoIncrement:false" json:"activityId"`
	IsMultiple bool     `gorm:"default:false" json:"isMultiple"`
	Choices    []Choice `gorm:"foreignKey:ActivityID;references:ActivityID" json:"choices"`
}

func (ChoiceActivity) TableName() string {
	return "choice_activities"
}

// CorrectIDs 返回所有正确选项的 ID
func (c *ChoiceActivity) CorrectIDs() []uint {
	ids := make([]uint, 0, len(c.Choices))
	for _, ch := range c.Choices {
		if ch.IsCorrect {
			ids = append(ids, ch.ID)
		}
	}
	return ids
}

type Choice struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityID uint   `gorm:"index;not null" json:"activityId"`
	Text       string `gorm:"size:255;not null" json:"text"`
	IsCorrect  bool   `gorm:"default:false" json:"isCorrect"`
}

func (Choice) TableName() string {
	return "choices"
}

type FillInTheBlankActivity struct {
	ActivityID uint   `gorm:"primaryKey;autoIncrement:false" json:"activityId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	// blank index ("0", "1", ...) -> expected answer
	CorrectAnswers datatypes.JSONType[map[string]string] `json:"correctAnswers"`
}

func (FillInTheBlankActivity) TableName() string {
	return "fill_in_the_blank_activities"
}

func (f *FillInTheBlankActivity) Answers() map[string]string {
	answers := f.CorrectAnswers.Data()
	if answers == nil {
		return map[string]string{}
	}
	return answers
}

// BlankKeys returns the blank indexes in placeholder order.
func (f *FillInTheBlankActivity) BlankKeys() []string {
	answers := f.Answers()
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
	return keys
}

type MatchingActivity struct {
	ActivityID uint           `gorm:"primaryKey;autoIncrement:false" json:"activityId"`
	Pairs      []MatchingPair `gorm:"foreignKey:ActivityID;references:ActivityID" json:"pairs"`
}

func (MatchingActivity) TableName() string {
	return "matching_activities"
}

// VocabularyPairs 返回标记为词汇的配对
func (m *MatchingActivity) VocabularyPairs() []MatchingPair {
	var out []MatchingPair
	for _, p := range m.Pairs {
		if p.IsVocabulary {
			out = append(out, p)
		}
	}
	return out
}

type MatchingPair struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ActivityID   uint   `gorm:"index;not null" json:"activityId"`
	Left         string `gorm:"size:255;not null" json:"left"`
	Right        string `gorm:"size:255;not null" json:"right"`
	IsVocabulary bool   `gorm:"default:false" json:"isVocabulary"`
}

func (MatchingPair) TableName() string {
	return "matching_pairs"
}

type WordOrderingActivity struct {
	ActivityID uint   `gorm:"primaryKey;autoIncrement:false" json:"activityId"`
	Sentence   string `gorm:"type:text;not null" json:"sentence"`
}

func (WordOrderingActivity) TableName() string {
	return "word_ordering_activities"
}

// UserAnswer 一次提交的记录，创建后不再修改
type UserAnswer struct {
	ID            uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint           `gorm:"index:idx_answer_user_activity;not null" json:"userId"`
	ActivityID    uint           `gorm:"index:idx_answer_user_activity;index:idx_answer_attempt_activity;not null" json:"activityId"`
	ExamAttemptID *uint          `gorm:"index:idx_answer_attempt_activity" json:"examAttemptId,omitempty"`
	ResponseData  datatypes.JSON `json:"responseData"`
	IsCorrect     bool           `gorm:"index:idx_answer_user_activity" json:"isCorrect"`
	AnsweredAt    time.Time      `gorm:"index" json:"answeredAt"`
}

func (UserAnswer) TableName() string {
	return "user_answers"
}

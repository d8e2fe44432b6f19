package dto

type LeaderboardEntry struct {
	UserID          uint   `json:"user_id"`
	Username        string `json:"username"`
	FullName        string `json:"full_name"`
	TotalPoints     uint   `json:"total_points"`
	ActivitiesCount uint   `json:"activities_count"`
	Position        uint   `json:"position"`
}

type CourseRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type ProgressStats struct {
	Total     uint    `json:"total"`
	Completed uint    `json:"completed"`
	Remaining uint    `json:"remaining"`
	Percent   float64 `json:"percent"`
}

type ModuleProgress struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	ProgressStats
}

type CourseProgressResponse struct {
	Course  CourseRef        `json:"course"`
	Overall ProgressStats    `json:"overall"`
	Modules []ModuleProgress `json:"modules"`
}

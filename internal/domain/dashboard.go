package domain

// DashboardStats aggregates case counts for the dashboard view.
type DashboardStats struct {
	TotalCases    int `json:"total_cases"`
	Approvals     int `json:"approvals"`
	Rejects       int `json:"rejects"`
	ManualReviews int `json:"manual_reviews"`
	DraftCases    int `json:"draft_cases"`
	RunningCases  int `json:"running_cases"`
}

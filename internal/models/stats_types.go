package models

// AdminStats holds the KPI counters shown on the admin dashboard.
type AdminStats struct {
	TotalUsers           int `json:"totalUsers"`
	PendingUsers         int `json:"pendingUsers"`
	TotalProducts        int `json:"totalProducts"`
	PendingSubscriptions int `json:"pendingSubscriptions"`
	ViewsLast24h         int `json:"viewsLast24h"`
}

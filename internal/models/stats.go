package models

type DashboardStats struct {
	TotalUsers      int64              `json:"totalUsers"`
	TotalOrders     int64              `json:"totalOrders"`
	TotalProducts   int64              `json:"totalProducts"`
	TotalRevenue    float64            `json:"totalRevenue"`
	SalesByCategory map[string]int     `json:"salesByCategory"`
	MonthlyRevenue  map[string]float64 `json:"monthlyRevenue"`
}

type DailyRevenue struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders     []AdminOrder `json:"orders"`
	Page       int64        `json:"page"`
	TotalPages int64        `json:"totalPages"`
	Total      int64        `json:"total"`
}

package models

// DailyStats holds an aggregated count for a single day
type DailyStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

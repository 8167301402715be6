package models

import "time"

// ScanLike records a community like on a public report. The composite unique
// index makes liking idempotent per user and scan.
type ScanLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:ux_scan_likes_user_scan,unique,priority:1" json:"user_id"`
	ScanID    uint      `gorm:"not null;index:ux_scan_likes_user_scan,unique,priority:2;index" json:"scan_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

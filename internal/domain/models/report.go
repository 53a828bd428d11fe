package models

import "time"

// FinanceSummary aggregates finance entries over a period.
type FinanceSummary struct {
	From    *time.Time `json:"from,omitempty"`
	To      *time.Time `json:"to,omitempty"`
	Income  float64    `json:"income"`
	Expense float64    `json:"expense"`
	Balance float64    `json:"balance"`
	Entries int        `json:"entries"`
}

// FarmOverview is the dashboard summary of a user's holdings.
type FarmOverview struct {
	Cattle        int            `json:"cattle"`
	Male          int            `json:"male"`
	Female        int            `json:"female"`
	FeedItems     int            `json:"feedItems"`
	LowStockFeeds int            `json:"lowStockFeeds"`
	Finance       FinanceSummary `json:"finance"`
	GeneratedAt   time.Time      `json:"generatedAt"`
}

package models

import "time"

// TrendStatus classifies how fast a tag is growing.
type TrendStatus string

const (
	TrendTrending TrendStatus = "trending"
	TrendRising   TrendStatus = "rising"
	TrendStable   TrendStatus = "stable"
)

// TrendingTopic is a tag with its recent activity. It is computed on read and never stored.
type TrendingTopic struct {
	Tag       string      `json:"tag"`
	PostCount int64       `json:"post_count"`
	Status    TrendStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

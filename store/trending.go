package store

import (
	"context"
	"sort"
	"time"

	"github.com/deep3/social/models"
)

const (
	trendWindow       = 7 * 24 * time.Hour
	trendMinPosts     = 5
	trendGrowthFactor = 2
	defaultTrendLimit = 10
)

// TrendingTopics ranks tags by how many visible posts used them in the last seven days,
// classifying each against the seven days before that.
func (s *Store) TrendingTopics(ctx context.Context, limit int) ([]models.TrendingTopic, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = defaultTrendLimit
	}
	now := s.clock()
	currentStart := now.Add(-trendWindow)
	previousStart := currentStart.Add(-trendWindow)

	db, cancel := s.begin(ctx)
	defer cancel()

	var rows []models.Post
	err := db.Select("tags", "created_at").
		Where("is_flagged = ? AND is_removed = ? AND created_at >= ?", false, false, previousStart).
		Find(&rows).Error
	if err != nil {
		return nil, wrap("trending topics", err)
	}
	return rankTopics(rows, currentStart, now, limit), nil
}

// rankTopics is split out so the classification can be exercised without a database.
// Tags are stored as JSON arrays, which the supported dialects cannot group portably.
func rankTopics(rows []models.Post, currentStart, now time.Time, limit int) []models.TrendingTopic {
	type counts struct {
		current, previous int64
		latest            time.Time
	}
	byTag := map[string]*counts{}
	for _, p := range rows {
		for _, tag := range p.Tags {
			c, ok := byTag[tag]
			if !ok {
				c = &counts{}
				byTag[tag] = c
			}
			if p.CreatedAt.Before(currentStart) {
				c.previous++
				continue
			}
			c.current++
			if p.CreatedAt.After(c.latest) {
				c.latest = p.CreatedAt
			}
		}
	}

	topics := make([]models.TrendingTopic, 0, len(byTag))
	for tag, c := range byTag {
		if c.current == 0 {
			continue
		}
		topics = append(topics, models.TrendingTopic{
			Tag:       tag,
			PostCount: c.current,
			Status:    classify(c.current, c.previous),
			UpdatedAt: c.latest,
		})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].PostCount != topics[j].PostCount {
			return topics[i].PostCount > topics[j].PostCount
		}
		return topics[i].Tag < topics[j].Tag
	})
	if len(topics) > limit {
		topics = topics[:limit]
	}
	return topics
}

func classify(current, previous int64) models.TrendStatus {
	switch {
	case current >= trendMinPosts && current >= trendGrowthFactor*previous:
		return models.TrendTrending
	case current > previous:
		return models.TrendRising
	default:
		return models.TrendStable
	}
}

package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// topSubcategories caps the subcategory ranking.
const topSubcategories = 20

// CollectStats returns the total record count, per-category counts in
// descending order, and the top subcategories by count.
func (s *Store) CollectStats(ctx context.Context) (Stats, error) {
	var stats Stats
	if err := s.connected(); err != nil {
		return stats, err
	}

	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, fmt.Errorf("store: count: %w", err)
	}
	stats.Total = total

	stats.Categories, err = s.groupCount(ctx, "$category", 0)
	if err != nil {
		return stats, err
	}
	stats.Subcategories, err = s.groupCount(ctx, "$subcategory", topSubcategories)
	if err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *Store) groupCount(ctx context.Context, field string, limit int) ([]GroupCount, error) {
	pipeline := []bson.M{
		{"$group": bson.M{"_id": field, "count": bson.M{"$sum": 1}}},
		{"$sort": bson.M{"count": -1}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": limit})
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("store: aggregate %s: %w", field, err)
	}
	defer cur.Close(ctx)

	var out []GroupCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("store: decode %s counts: %w", field, err)
	}
	return out, nil
}

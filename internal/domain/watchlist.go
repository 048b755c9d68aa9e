package domain

import "time"

// WatchItem is a tracked symbol eligible for background price refresh.
type WatchItem struct {
	Symbol         string
	Currency       string
	AssetType      string
	AutoUpdate     bool
	PriceUpdatedAt *time.Time
}

package cache

import (
	"fmt"
	"time"
)

// Stats holds cache statistics.
type Stats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evicts    uint64  `json:"evicts"`
	Expires   uint64  `json:"expires"`
	Sets      uint64  `json:"sets"`
	HitRate   float64 `json:"hitRate"`
	TotalSize int     `json:"totalSize"`
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.RLock()
	size := len(c.items)
	totalSize := 0
	for _, e := range c.items {
		totalSize += e.size
	}
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Size:      size,
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evicts:    c.evicts.Load(),
		Expires:   c.expires.Load(),
		Sets:      c.sets.Load(),
		HitRate:   hitRate,
		TotalSize: totalSize,
	}
}

// HealthStatus classifies cache health.
type HealthStatus string

const (
	// HealthHealthy means the cache is operating normally.
	HealthHealthy HealthStatus = "healthy"
	// HealthWarning means the cache shows signs of pressure.
	HealthWarning HealthStatus = "warning"
	// HealthCritical means the cache is hurting more than helping.
	HealthCritical HealthStatus = "critical"
)

// HealthInfo describes cache health with actionable recommendations.
type HealthInfo struct {
	Status          HealthStatus `json:"status"`
	HitRate         float64      `json:"hitRate"`
	Utilization     float64      `json:"utilization"`
	StaleEntries    int          `json:"staleEntries"`
	Recommendations []string     `json:"recommendations,omitempty"`
}

// HealthInfo evaluates current cache health. A low hit rate after warmup
// or heavy eviction churn degrades the status.
func (c *Cache[K, V]) HealthInfo() HealthInfo {
	stats := c.Stats()

	c.mu.RLock()
	stale := 0
	if c.ttl > 0 {
		now := c.now()
		for _, e := range c.items {
			if now.Sub(e.createdAt) >= c.ttl {
				stale++
			}
		}
	}
	c.mu.RUnlock()

	info := HealthInfo{
		Status:       HealthHealthy,
		HitRate:      stats.HitRate,
		Utilization:  float64(stats.Size) / float64(stats.Capacity),
		StaleEntries: stale,
	}

	lookups := stats.Hits + stats.Misses
	warmedUp := lookups >= 50

	if warmedUp && stats.HitRate < 0.2 {
		info.Status = HealthCritical
		info.Recommendations = append(info.Recommendations,
			fmt.Sprintf("hit rate %.0f%% is very low; the cache key set may be unbounded or the TTL (%s) too short", stats.HitRate*100, c.ttl))
	} else if warmedUp && stats.HitRate < 0.5 {
		info.Status = HealthWarning
		info.Recommendations = append(info.Recommendations,
			fmt.Sprintf("hit rate %.0f%% is low; consider a longer TTL or larger capacity", stats.HitRate*100))
	}

	if stats.Sets > 0 && float64(stats.Evicts)/float64(stats.Sets) > 0.5 {
		if info.Status == HealthHealthy {
			info.Status = HealthWarning
		}
		info.Recommendations = append(info.Recommendations,
			fmt.Sprintf("%d of %d inserts caused LRU eviction; capacity %d looks undersized", stats.Evicts, stats.Sets, stats.Capacity))
	}

	if stale > 0 {
		info.Recommendations = append(info.Recommendations,
			fmt.Sprintf("%d expired entries awaiting sweep", stale))
	}

	return info
}

// SetClock replaces the cache's time source. Intended for expiry tests.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now != nil {
		c.now = now
	}
}

// TTL returns the configured time-to-live.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

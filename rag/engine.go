package rag

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Metrics counts engine queries. It is safe for concurrent use.
type Metrics struct {
	mu           sync.Mutex
	totalQueries int64
	noAnswer     int64
	totalLatency time.Duration
	lastQueryAt  time.Time
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	TotalQueries   int64         `json:"total_queries"`
	NoAnswer       int64         `json:"no_answer"`
	AverageLatency time.Duration `json:"average_latency"`
	LastQueryAt    time.Time     `json:"last_query_at"`
}

// Record adds one query that took d; answered is false when the engine
// found nothing above its confidence threshold.
func (m *Metrics) Record(d time.Duration, answered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalQueries++
	if !answered {
		m.noAnswer++
	}
	m.totalLatency += d
	m.lastQueryAt = time.Now()
}

// Snapshot returns the current metrics
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := MetricsSnapshot{
		TotalQueries: m.totalQueries,
		NoAnswer:     m.noAnswer,
		LastQueryAt:  m.lastQueryAt,
	}
	if m.totalQueries > 0 {
		s.AverageLatency = m.totalLatency / time.Duration(m.totalQueries)
	}
	return s
}

// Reset resets all metrics
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalQueries = 0
	m.noAnswer = 0
	m.totalLatency = 0
	m.lastQueryAt = time.Time{}
}

// BuildContext renders retrieved FAQ documents as the LLM context block.
func BuildContext(results []DocumentSearchResult, includeScores bool) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, result := range results {
		doc := result.Document
		fmt.Fprintf(&sb, "Tài liệu %d:\n", i+1)
		if includeScores {
			fmt.Fprintf(&sb, "Điểm: %.4f\n", result.Score)
		}
		if topic, ok := doc.Metadata["topic"]; ok {
			fmt.Fprintf(&sb, "Chủ đề: %v\n", topic)
		}
		fmt.Fprintf(&sb, "%s\n\n", doc.Content)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

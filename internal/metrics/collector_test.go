package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestCollector_RecordTiming(t *testing.T) {
	c := NewCollector()

	c.RecordTiming(OpSearch, 10*time.Millisecond)
	c.RecordTiming(OpSearch, 30*time.Millisecond)
	c.RecordTiming(OpChat, 500*time.Millisecond)

	snap := c.Snapshot()

	if snap.Search == nil {
		t.Fatal("Search snapshot missing")
	}
	if snap.Search.Count != 2 {
		t.Errorf("Search.Count = %d, want 2", snap.Search.Count)
	}
	if snap.Search.MinTimeMs != 10 {
		t.Errorf("Search.MinTimeMs = %d, want 10", snap.Search.MinTimeMs)
	}
	if snap.Search.MaxTimeMs != 30 {
		t.Errorf("Search.MaxTimeMs = %d, want 30", snap.Search.MaxTimeMs)
	}
	if snap.Search.TotalTimeMs != 40 {
		t.Errorf("Search.TotalTimeMs = %d, want 40", snap.Search.TotalTimeMs)
	}
	if snap.Search.AvgTimeMs != 20 {
		t.Errorf("Search.AvgTimeMs = %v, want 20", snap.Search.AvgTimeMs)
	}

	if snap.Chat == nil || snap.Chat.Count != 1 {
		t.Errorf("Chat snapshot = %+v", snap.Chat)
	}
	if snap.Completion != nil {
		t.Error("Completion snapshot should be nil when never recorded")
	}
	if snap.UptimeSeconds < 0 {
		t.Errorf("UptimeSeconds = %v", snap.UptimeSeconds)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.RecordTiming(OpEmbedding, time.Millisecond)
				_ = c.Snapshot()
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.Embedding == nil || snap.Embedding.Count != 1000 {
		t.Errorf("Embedding snapshot = %+v, want count 1000", snap.Embedding)
	}
}

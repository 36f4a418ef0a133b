package registry

import (
	"testing"
	"time"
)

func TestSuppressionCacheWindow(t *testing.T) {
	c := NewSuppressionCache(50 * time.Millisecond)

	if c.ShouldSkip("p1") {
		t.Error("ShouldSkip() = true for an unknown key")
	}

	c.RecordFailure("p1")
	if !c.ShouldSkip("p1") {
		t.Error("ShouldSkip() = false immediately after a failure")
	}

	time.Sleep(60 * time.Millisecond)
	if c.ShouldSkip("p1") {
		t.Error("ShouldSkip() = true after the window elapsed")
	}
}

func TestSuppressionCacheClear(t *testing.T) {
	c := NewSuppressionCache(time.Hour)

	c.RecordFailure("p1")
	c.Clear("p1")
	if c.ShouldSkip("p1") {
		t.Error("Clear() should lift suppression immediately")
	}
}

func TestSuppressionCacheReset(t *testing.T) {
	c := NewSuppressionCache(time.Hour)

	c.RecordFailure("a")
	c.RecordFailure("b")
	c.Reset()
	if c.ShouldSkip("a") || c.ShouldSkip("b") {
		t.Error("Reset() should drop all entries")
	}
}

package cache

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	c.Set("k", []int{1, 2}, 0)
	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if got := v.([]int); len(got) != 2 {
		t.Errorf("unexpected value: %v", got)
	}

	c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("short", "v", 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Clear()

	for _, k := range []string{"a", "b"} {
		if _, ok := c.Get(k); ok {
			t.Errorf("expected %q to be cleared", k)
		}
	}
}

func TestCacheKey(t *testing.T) {
	k1 := CacheKey("/data/table.csv")
	k2 := CacheKey("/data/table.csv")
	k3 := CacheKey("/data/other.csv")

	if k1 != k2 {
		t.Error("expected stable key")
	}
	if k1 == k3 {
		t.Error("expected distinct keys for distinct paths")
	}
	if !strings.HasPrefix(k1, "honorscan:v1:") {
		t.Errorf("unexpected prefix: %s", k1)
	}
}

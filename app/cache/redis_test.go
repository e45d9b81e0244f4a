package cache

import "testing"

func TestRedisStore_PrefixKey(t *testing.T) {
	tests := []struct {
		prefix   string
		key      string
		expected string
	}{
		{"streamcomb:", "schedule_pptv", "streamcomb:schedule_pptv"},
		{"", "schedule_pptv", "schedule_pptv"},
		{"streamcomb:", "*", "streamcomb:*"},
	}

	for _, tt := range tests {
		store := &RedisStore{prefix: tt.prefix}
		if got := store.prefixKey(tt.key); got != tt.expected {
			t.Errorf("prefixKey(%q): expected %q, got %q", tt.key, tt.expected, got)
		}
	}
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-url", "x:", 0); err == nil {
		t.Error("Expected error for invalid Redis URL")
	}
}

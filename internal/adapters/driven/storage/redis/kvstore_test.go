package redis

import (
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "notify:", expected: "notify:"},
		{in: "a*b", expected: `a\*b`},
		{in: "q?[x]", expected: `q\?\[x\]`},
		{in: `back\slash`, expected: `back\\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeGlob(tt.in))
		})
	}
}

func TestNewKVStoreFromClient_DefaultNamespace(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:0"})
	defer client.Close()

	store := NewKVStoreFromClient(client, "")
	assert.Equal(t, DefaultNamespace+"cache:entry:cgpa", store.key("cache:entry:cgpa"))

	store = NewKVStoreFromClient(client, "tenant-a:")
	assert.Equal(t, "tenant-a:x", store.key("x"))
}

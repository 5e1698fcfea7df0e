package vault

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type mapKV struct {
	data  map[string]map[string]any
	reads atomic.Int32
}

func (m *mapKV) ReadKV(_ context.Context, mount, path string) (map[string]any, error) {
	m.reads.Add(1)
	d, ok := m.data[mount+"/"+path]
	if !ok {
		return nil, errors.New("404")
	}
	return d, nil
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref, mount, path, key string
		ok                    bool
	}{
		{"secret/bizdir#session_secret", "secret", "bizdir", "session_secret", true},
		{"kv/apps/bizdir/redis#password", "kv", "apps/bizdir/redis", "password", true},
		{"secret/bizdir", "", "", "", false},
		{"secret#key", "", "", "", false},
		{"secret/bizdir#", "", "", "", false},
		{"#key", "", "", "", false},
	}
	for _, tt := range tests {
		mount, path, key, err := parseRef(tt.ref)
		if (err == nil) != tt.ok {
			t.Errorf("parseRef(%q) err = %v, want ok=%v", tt.ref, err, tt.ok)
			continue
		}
		if mount != tt.mount || path != tt.path || key != tt.key {
			t.Errorf("parseRef(%q) = %q, %q, %q", tt.ref, mount, path, key)
		}
	}
}

func TestResolverCachesForTTL(t *testing.T) {
	kv := &mapKV{data: map[string]map[string]any{
		"secret/bizdir": {"session_secret": "s3cr3t", "port": 6379},
	}}
	c := newClient(kv, zap.NewNop())
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }
	resolve := c.Resolver(time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		v, err := resolve(ctx, "secret/bizdir#session_secret")
		if err != nil || v != "s3cr3t" {
			t.Fatalf("resolve = %q, %v", v, err)
		}
	}
	if n := kv.reads.Load(); n != 1 {
		t.Fatalf("reads = %d, want 1", n)
	}

	now = now.Add(2 * time.Minute)
	if _, err := resolve(ctx, "secret/bizdir#session_secret"); err != nil {
		t.Fatal(err)
	}
	if n := kv.reads.Load(); n != 2 {
		t.Fatalf("reads after expiry = %d, want 2", n)
	}
}

func TestResolverErrors(t *testing.T) {
	kv := &mapKV{data: map[string]map[string]any{"secret/bizdir": {"port": 6379}}}
	resolve := newClient(kv, zap.NewNop()).Resolver(0)
	ctx := context.Background()

	for _, ref := range []string{"secret/bizdir#port", "secret/bizdir#missing", "secret/other#k", "bad"} {
		if _, err := resolve(ctx, ref); err == nil {
			t.Errorf("resolve(%q) succeeded", ref)
		}
	}
}

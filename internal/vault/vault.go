// internal/vault/vault.go
//
// Vault secrets for configuration.
//
// Context
// -------
//   conf/global.yaml may hold `vault:<mount>/<path>#<key>` in place of a
//   secret (session.secret, redis.password).  config.Load hands each such
//   reference to the SecretResolver built here, which reads the KV-v2 secret
//   and returns the one key.
//
//   Reads are cached per reference for the resolver's TTL, and concurrent
//   reads of one reference share a single request, so a config.Reload storm
//   costs Vault one round trip.  The client token is kept alive by a
//   LifetimeWatcher for as long as the boot context lives.
//
// Workflow
// --------
//  1. vc, err := vault.New(ctx, zap.L())             // VAULT_ADDR, VAULT_TOKEN
//  2. cfg, err := config.Load(ctx, vc.Resolver(ttl))
//
//------------------------------------------------------------------------------

package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/bizdir/internal/config"
)

// kvReader reads one KV-v2 secret.  The Vault SDK satisfies it through
// sdkReader; tests use a map.
type kvReader interface {
	ReadKV(ctx context.Context, mount, path string) (map[string]any, error)
}

// Client resolves secret references.  Safe for concurrent use.
type Client struct {
	kv  kvReader
	log *zap.Logger
	now func() time.Time

	mu    sync.Mutex
	cache map[string]entry
	group singleflight.Group
}

type entry struct {
	val string
	exp time.Time
}

// New connects using the standard VAULT_* environment and starts token
// renewal bound to ctx.
func New(ctx context.Context, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault: environment: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault: client: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	c := newClient(sdkReader{api}, log.Named("vault"))
	go keepAlive(ctx, api, c.log)
	return c, nil
}

func newClient(kv kvReader, log *zap.Logger) *Client {
	return &Client{kv: kv, log: log, now: time.Now, cache: make(map[string]entry)}
}

// Resolver returns a config.SecretResolver whose answers live for ttl.  A
// zero ttl disables caching.
func (c *Client) Resolver(ttl time.Duration) config.SecretResolver {
	return func(ctx context.Context, ref string) (string, error) {
		return c.lookup(ctx, ref, ttl)
	}
}

func (c *Client) lookup(ctx context.Context, ref string, ttl time.Duration) (string, error) {
	mount, path, key, err := parseRef(ref)
	if err != nil {
		return "", err
	}

	if ttl > 0 {
		c.mu.Lock()
		e, ok := c.cache[ref]
		c.mu.Unlock()
		if ok && c.now().Before(e.exp) {
			return e.val, nil
		}
	}

	v, err, _ := c.group.Do(ref, func() (any, error) {
		data, err := c.kv.ReadKV(ctx, mount, path)
		if err != nil {
			return "", fmt.Errorf("vault: read %s/%s: %w", mount, path, err)
		}
		s, ok := data[key].(string)
		if !ok {
			return "", fmt.Errorf("vault: %s/%s has no string key %q", mount, path, key)
		}
		if ttl > 0 {
			c.mu.Lock()
			c.cache[ref] = entry{val: s, exp: c.now().Add(ttl)}
			c.mu.Unlock()
		}
		return s, nil
	})
	if err != nil {
		c.log.Warn("secret lookup failed", zap.String("ref", mount+"/"+path), zap.Error(err))
		return "", err
	}
	return v.(string), nil
}

// parseRef splits "<mount>/<path>#<key>".
func parseRef(ref string) (mount, path, key string, err error) {
	loc, key, ok := strings.Cut(ref, "#")
	if !ok || key == "" || strings.Contains(key, "#") {
		return "", "", "", fmt.Errorf("vault: ref %q: want <mount>/<path>#<key>", ref)
	}
	mount, path, _ = strings.Cut(loc, "/")
	if mount == "" || path == "" {
		return "", "", "", fmt.Errorf("vault: ref %q: need a secret path below the mount", ref)
	}
	return mount, path, key, nil
}

/*──────────────────────────── SDK plumbing ────────────────────────────────*/

type sdkReader struct{ api *vault.Client }

func (r sdkReader) ReadKV(ctx context.Context, mount, path string) (map[string]any, error) {
	sec, err := r.api.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return sec.Data, nil
}

// keepAlive renews the client token until ctx ends.  A token that cannot be
// renewed is left alone; it stays valid until its own TTL.
func keepAlive(ctx context.Context, api *vault.Client, log *zap.Logger) {
	retry := 30 * time.Second
	for ctx.Err() == nil {
		sec, err := api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			log.Warn("token renew failed", zap.Error(err))
			sleep(ctx, retry)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			log.Info("token is not renewable")
			return
		}

		w, err := api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			log.Warn("lifetime watcher", zap.Error(err))
			sleep(ctx, retry)
			continue
		}
		go w.Start()
		watch(ctx, w, log)
		w.Stop()
	}
}

func watch(ctx context.Context, w *vault.LifetimeWatcher, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				log.Warn("token renewal stopped", zap.Error(err))
			}
			return
		case r := <-w.RenewCh():
			if r != nil && r.Secret != nil && r.Secret.Auth != nil {
				log.Debug("token renewed", zap.Int("ttl_seconds", r.Secret.Auth.LeaseDuration))
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

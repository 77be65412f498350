package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/safesentinel/sentinel/internal/netcompat"
	"github.com/safesentinel/sentinel/internal/security"
	"github.com/safesentinel/sentinel/internal/trust"
)

// Default TTLs. Network support lists and market stats move slowly,
// security audits are pinned longer since contract code is immutable.
const (
	supportTTL = 10 * time.Minute
	auditTTL   = 6 * time.Hour
	marketTTL  = 30 * time.Minute
	routeTTL   = 24 * time.Hour
)

// RedisCache caches connector lookups between verification requests.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ---------------------------------------------------------------------------
// Network support snapshots
// ---------------------------------------------------------------------------

func supportKey(exchange string) string {
	return fmt.Sprintf("netsupport:%s", strings.ToLower(exchange))
}

func (c *RedisCache) SaveNetworkSupport(ctx context.Context, exchange string, snap netcompat.SupportSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal network support: %w", err)
	}
	return c.client.Set(ctx, supportKey(exchange), data, supportTTL).Err()
}

func (c *RedisCache) GetNetworkSupport(ctx context.Context, exchange string) (netcompat.SupportSnapshot, error) {
	data, err := c.client.Get(ctx, supportKey(exchange)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snap netcompat.SupportSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal network support: %w", err)
	}
	return snap, nil
}

// ---------------------------------------------------------------------------
// Security audits
// ---------------------------------------------------------------------------

func auditKey(network, address string) string {
	return fmt.Sprintf("audit:%s:%s", strings.ToUpper(network), strings.ToLower(address))
}

func (c *RedisCache) SaveAudit(ctx context.Context, network, address string, report *security.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal audit report: %w", err)
	}
	return c.client.Set(ctx, auditKey(network, address), data, auditTTL).Err()
}

func (c *RedisCache) GetAudit(ctx context.Context, network, address string) (*security.Report, error) {
	data, err := c.client.Get(ctx, auditKey(network, address)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var report security.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, fmt.Errorf("unmarshal audit report: %w", err)
	}
	return &report, nil
}

// ---------------------------------------------------------------------------
// Market snapshots
// ---------------------------------------------------------------------------

func marketKey(symbol string) string {
	return fmt.Sprintf("market:%s", strings.ToUpper(symbol))
}

func (c *RedisCache) SaveMarket(ctx context.Context, symbol string, snap *trust.MarketSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal market snapshot: %w", err)
	}
	return c.client.Set(ctx, marketKey(symbol), data, marketTTL).Err()
}

func (c *RedisCache) GetMarket(ctx context.Context, symbol string) (*trust.MarketSnapshot, error) {
	data, err := c.client.Get(ctx, marketKey(symbol)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snap trust.MarketSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal market snapshot: %w", err)
	}
	return &snap, nil
}

// ---------------------------------------------------------------------------
// Route plans
// ---------------------------------------------------------------------------

func routeKey(origin, asset, destination string) string {
	return fmt.Sprintf("route:%s:%s:%s",
		strings.ToLower(origin), strings.ToUpper(asset), strings.ToLower(destination))
}

// SaveRoute stores a discovered transfer route plan as raw JSON.
func (c *RedisCache) SaveRoute(ctx context.Context, origin, asset, destination string, plan json.RawMessage) error {
	return c.client.Set(ctx, routeKey(origin, asset, destination), []byte(plan), routeTTL).Err()
}

func (c *RedisCache) GetRoute(ctx context.Context, origin, asset, destination string) (json.RawMessage, error) {
	data, err := c.client.Get(ctx, routeKey(origin, asset, destination)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return json.RawMessage(data), nil
}

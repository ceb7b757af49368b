package fraud

import (
	"context"
	"strings"
	"sync"

	"github.com/payguard-next/internal/cache"
	"github.com/payguard-next/internal/constants"
)

// Blacklist 标记账户集合。
// 多实例部署时必须由共享存储承载，进程内实现仅用于单实例与测试。
type Blacklist interface {
	Add(ctx context.Context, accountID string) error
	Remove(ctx context.Context, accountID string) error
	Contains(ctx context.Context, accountID string) (bool, error)
	List(ctx context.Context) ([]string, error)
}

// NewBlacklist 创建黑名单存储：Redis 可用时走共享集合，否则退化为进程内集合
func NewBlacklist() Blacklist {
	if cache.Enabled() {
		return NewRedisBlacklist()
	}
	return NewMemoryBlacklist()
}

// RedisBlacklist Redis 集合实现
type RedisBlacklist struct{}

// NewRedisBlacklist 创建 Redis 黑名单
func NewRedisBlacklist() *RedisBlacklist {
	return &RedisBlacklist{}
}

// Add 标记账户
func (b *RedisBlacklist) Add(ctx context.Context, accountID string) error {
	return cache.Client().SAdd(ctx, cache.Key(constants.BlacklistCacheKey), normalizeAccountID(accountID)).Err()
}

// Remove 取消标记
func (b *RedisBlacklist) Remove(ctx context.Context, accountID string) error {
	return cache.Client().SRem(ctx, cache.Key(constants.BlacklistCacheKey), normalizeAccountID(accountID)).Err()
}

// Contains 判断账户是否被标记
func (b *RedisBlacklist) Contains(ctx context.Context, accountID string) (bool, error) {
	return cache.Client().SIsMember(ctx, cache.Key(constants.BlacklistCacheKey), normalizeAccountID(accountID)).Result()
}

// List 列出被标记账户
func (b *RedisBlacklist) List(ctx context.Context) ([]string, error) {
	return cache.Client().SMembers(ctx, cache.Key(constants.BlacklistCacheKey)).Result()
}

// MemoryBlacklist 进程内实现
type MemoryBlacklist struct {
	mu       sync.RWMutex
	accounts map[string]struct{}
}

// NewMemoryBlacklist 创建进程内黑名单
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{accounts: make(map[string]struct{})}
}

// Add 标记账户
func (b *MemoryBlacklist) Add(_ context.Context, accountID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[normalizeAccountID(accountID)] = struct{}{}
	return nil
}

// Remove 取消标记
func (b *MemoryBlacklist) Remove(_ context.Context, accountID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.accounts, normalizeAccountID(accountID))
	return nil
}

// Contains 判断账户是否被标记
func (b *MemoryBlacklist) Contains(_ context.Context, accountID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.accounts[normalizeAccountID(accountID)]
	return ok, nil
}

// List 列出被标记账户
func (b *MemoryBlacklist) List(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	accounts := make([]string, 0, len(b.accounts))
	for accountID := range b.accounts {
		accounts = append(accounts, accountID)
	}
	return accounts, nil
}

func normalizeAccountID(accountID string) string {
	return strings.TrimSpace(accountID)
}

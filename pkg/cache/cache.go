package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/game-diot/Data-visualization-applications-sub000/config"
	"github.com/game-diot/Data-visualization-applications-sub000/pkg/clients/redis"
)

var (
	instance *Cache
	once     sync.Once
)

// Cache redis 旁路缓存, 关闭时全部变成空操作
// 缓存失败只打日志, 不影响主流程
type Cache struct {
	client *redis.RedisClient
}

func GetInstance() *Cache {
	once.Do(func() {
		c := &Cache{}
		if config.GetInstance().GetBoolOrDefault(config.RedisClientEnabled, false) {
			c.client = redis.GetInstance()
		}
		instance = c
	})
	return instance
}

func NewCache(client *redis.RedisClient) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Get(ctx context.Context, key string, value interface{}) bool {
	if !c.Enabled() {
		return false
	}
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != goredis.Nil {
			log.Warnf("cache get failed, key:%s, err:%v", key, err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), value); err != nil {
		log.Warnf("cache decode failed, key:%s, err:%v", key, err)
		return false
	}
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		log.Warnf("cache encode failed, key:%s, err:%v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Warnf("cache set failed, key:%s, err:%v", key, err)
	}
}

func (c *Cache) Del(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Warnf("cache del failed, keys:%v, err:%v", keys, err)
	}
}

// ReportKey 报告缓存键
func ReportKey(stage string, fileID string, parts ...int64) string {
	key := fmt.Sprintf("report:%s:%s", stage, fileID)
	for _, p := range parts {
		key = fmt.Sprintf("%s:%d", key, p)
	}
	return key
}

// StatusKey 任务状态缓存键
func StatusKey(stage string, taskID string) string {
	return fmt.Sprintf("status:%s:%s", stage, taskID)
}

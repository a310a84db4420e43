package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"orgboard-api/domain"
)

type backend interface {
	ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error)
	Membership(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	TasksByOrganization(ctx context.Context, orgID string) ([]domain.Task, error)
	InsertTask(ctx context.Context, task domain.Task) error
	UpdateTask(ctx context.Context, task domain.Task) error
	DeleteTask(ctx context.Context, orgID, taskID string) error
}

// Cache wraps a Storage instance with Redis-backed caching for hierarchy,
// membership and task-list reads. Redis failures degrade to the backing
// storage without surfacing errors; task mutations evict the affected
// organization's task list.
type Cache struct {
	*Storage
	base  backend
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching Storage wrapper using the provided Redis client
// and TTL.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}

	c := &Cache{
		base:  base,
		redis: client,
		ttl:   ttl,
	}
	if s, ok := base.(*Storage); ok {
		c.Storage = s
	}
	return c
}

func (c *Cache) ChildOrganizationIDs(ctx context.Context, parentID string) ([]string, error) {
	key := childrenCacheKey(parentID)
	var ids []string
	if c.loadJSON(ctx, key, &ids) {
		return ids, nil
	}

	ids, err := c.base.ChildOrganizationIDs(ctx, parentID)
	if err != nil {
		return nil, err
	}
	c.storeJSON(ctx, key, ids)
	return ids, nil
}

func (c *Cache) Membership(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	key := membershipCacheKey(userID, orgID)
	var m domain.Membership
	if c.loadJSON(ctx, key, &m) {
		return &m, nil
	}

	found, err := c.base.Membership(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	if found != nil {
		c.storeJSON(ctx, key, found)
	}
	return found, nil
}

func (c *Cache) TasksByOrganization(ctx context.Context, orgID string) ([]domain.Task, error) {
	key := tasksCacheKey(orgID)
	var tasks []domain.Task
	if c.loadJSON(ctx, key, &tasks) {
		return tasks, nil
	}

	tasks, err := c.base.TasksByOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	c.storeJSON(ctx, key, tasks)
	return tasks, nil
}

func (c *Cache) TasksByOrganizations(ctx context.Context, orgIDs []string) ([]domain.Task, error) {
	tasks := []domain.Task{}
	for _, orgID := range orgIDs {
		orgTasks, err := c.TasksByOrganization(ctx, orgID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, orgTasks...)
	}
	return tasks, nil
}

func (c *Cache) InsertTask(ctx context.Context, task domain.Task) error {
	if err := c.base.InsertTask(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.OrganizationID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, task domain.Task) error {
	if err := c.base.UpdateTask(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.OrganizationID)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, orgID, taskID string) error {
	if err := c.base.DeleteTask(ctx, orgID, taskID); err != nil {
		return err
	}
	c.evict(ctx, orgID)
	return nil
}

func (c *Cache) loadJSON(ctx context.Context, key string, out any) bool {
	if c.redis == nil {
		return false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, key).Err()
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return false
	}
	return true
}

func (c *Cache) storeJSON(ctx context.Context, key string, val any) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, orgID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(orgID)).Result()
}

func tasksCacheKey(orgID string) string {
	return "orgtasks:" + orgID
}

func childrenCacheKey(parentID string) string {
	return "orgchildren:" + parentID
}

func membershipCacheKey(userID, orgID string) string {
	return "membership:" + userID + ":" + orgID
}

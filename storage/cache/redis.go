package sessioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/quiz"
)

// ErrMiss is returned when a key is absent from the cache.
var ErrMiss = errors.New("cache miss")

type (
	// Cache remembers per-session report state across requests: the group a
	// user last selected in an activity report, and rendered editor payloads.
	Cache interface {
		ActiveGroup(userID, moduleID int64) (int64, error)
		SetActiveGroup(userID, moduleID, groupID int64) error

		EditorPayload(quizID int64) (quiz.EditorPayload, error)
		SetEditorPayload(quizID int64, payload quiz.EditorPayload) error
		InvalidateEditorPayload(quizID int64) error
	}

	redisCache struct {
		client *redis.Client
		ctx    context.Context
		conf   *core.Config
	}
)

var _ Cache = (*redisCache)(nil)

// NewRedisCache connects to redis and pings it.
func NewRedisCache(conf *core.Config) (*redisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return &redisCache{client: client, ctx: ctx, conf: conf}, nil
}

func activeGroupKey(userID, moduleID int64) string {
	return fmt.Sprintf("report:group:%d:%d", userID, moduleID)
}

func editorPayloadKey(quizID int64) string {
	return fmt.Sprintf("editor:payload:%d", quizID)
}

func (c *redisCache) ActiveGroup(userID, moduleID int64) (int64, error) {
	val, err := c.client.Get(c.ctx, activeGroupKey(userID, moduleID)).Result()
	if err == redis.Nil {
		return 0, ErrMiss
	}
	if err != nil {
		return 0, errors.Wrap(err, "getting active group")
	}
	groupID, err := strconv.ParseInt(val, 10, 64)
	return groupID, errors.Wrap(err, "parsing active group")
}

func (c *redisCache) SetActiveGroup(userID, moduleID, groupID int64) error {
	err := c.client.Set(c.ctx, activeGroupKey(userID, moduleID), groupID, c.conf.Redis.TTL).Err()
	return errors.Wrap(err, "setting active group")
}

func (c *redisCache) EditorPayload(quizID int64) (quiz.EditorPayload, error) {
	val, err := c.client.Get(c.ctx, editorPayloadKey(quizID)).Bytes()
	if err == redis.Nil {
		return quiz.EditorPayload{}, ErrMiss
	}
	if err != nil {
		return quiz.EditorPayload{}, errors.Wrap(err, "getting editor payload")
	}
	var payload quiz.EditorPayload
	if err = json.Unmarshal(val, &payload); err != nil {
		return quiz.EditorPayload{}, errors.Wrap(err, "unmarshalling editor payload")
	}
	return payload, nil
}

func (c *redisCache) SetEditorPayload(quizID int64, payload quiz.EditorPayload) error {
	val, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshalling editor payload")
	}
	err = c.client.Set(c.ctx, editorPayloadKey(quizID), val, c.conf.Redis.TTL).Err()
	return errors.Wrap(err, "setting editor payload")
}

func (c *redisCache) InvalidateEditorPayload(quizID int64) error {
	err := c.client.Del(c.ctx, editorPayloadKey(quizID)).Err()
	return errors.Wrap(err, "invalidating editor payload")
}

// mockCache is a map-backed Cache for tests.
type mockCache struct {
	mutex        sync.RWMutex
	activeGroups map[string]int64
	payloads     map[int64]quiz.EditorPayload
}

var _ Cache = (*mockCache)(nil)

func NewCacheMock() *mockCache {
	return &mockCache{
		activeGroups: make(map[string]int64),
		payloads:     make(map[int64]quiz.EditorPayload),
	}
}

func (c *mockCache) ActiveGroup(userID, moduleID int64) (int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if groupID, ok := c.activeGroups[activeGroupKey(userID, moduleID)]; ok {
		return groupID, nil
	}
	return 0, ErrMiss
}

func (c *mockCache) SetActiveGroup(userID, moduleID, groupID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.activeGroups[activeGroupKey(userID, moduleID)] = groupID
	return nil
}

func (c *mockCache) EditorPayload(quizID int64) (quiz.EditorPayload, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if payload, ok := c.payloads[quizID]; ok {
		return payload, nil
	}
	return quiz.EditorPayload{}, ErrMiss
}

func (c *mockCache) SetEditorPayload(quizID int64, payload quiz.EditorPayload) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.payloads[quizID] = payload
	return nil
}

func (c *mockCache) InvalidateEditorPayload(quizID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.payloads, quizID)
	return nil
}

// Package conversation stores deliberation threads in Redis with a local
// read-through cache. Conversations live under "conversation:<id>" with an
// index set for listing.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/consilium-ai/consilium/internal/metrics"
)

// ErrNotFound is returned when the conversation does not exist.
var ErrNotFound = errors.New("conversation not found")

const (
	keyPrefix = "conversation:"
	indexKey  = "conversations"
)

// Store manages conversations in Redis.
type Store struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration

	mu          sync.RWMutex
	localCache  map[string]*Conversation
	cacheAccess map[string]time.Time
	maxCached   int

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// clone returns a copy whose Messages slice is independent of the original,
// so callers can never mutate a cached conversation in place.
func clone(conv *Conversation) *Conversation {
	cp := *conv
	cp.Messages = make([]Message, len(conv.Messages))
	copy(cp.Messages, conv.Messages)
	return &cp
}

// NewStore connects to Redis and verifies the connection.
func NewStore(redisAddr string, logger *zap.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{
		client:      client,
		logger:      logger,
		ttl:         30 * 24 * time.Hour,
		localCache:  make(map[string]*Conversation),
		cacheAccess: make(map[string]time.Time),
		maxCached:   1000,
		locks:       make(map[string]*sync.Mutex),
	}, nil
}

// Close releases the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Create stores a new conversation and returns it.
func (s *Store) Create(ctx context.Context, title, mode string) (*Conversation, error) {
	now := time.Now().UTC()
	conv := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Mode:      mode,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]Message, 0),
	}

	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}

	s.cachePut(conv)
	s.logger.Info("Created conversation",
		zap.String("conversation_id", conv.ID),
		zap.String("mode", mode),
	)
	metrics.ConversationsCreated.Inc()
	return conv, nil
}

// Get returns a conversation by ID, serving from the local cache when fresh.
// The returned conversation is the caller's own copy.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	if conv, ok := s.localCache[id]; ok {
		cp := clone(conv)
		s.mu.RUnlock()
		s.touch(id)
		return cp, nil
	}
	s.mu.RUnlock()

	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}

	s.cachePut(&conv)
	return &conv, nil
}

// AppendMessage adds a message to a conversation and bumps UpdatedAt. Appends
// to the same conversation are serialized so concurrent writers cannot lose
// each other's messages.
func (s *Store) AppendMessage(ctx context.Context, id string, msg Message) (*Conversation, error) {
	lock := s.appendLock(id)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = time.Now().UTC()

	if err := s.save(ctx, conv); err != nil {
		return nil, err
	}
	s.cachePut(conv)
	return conv, nil
}

// List returns summaries of all conversations, newest update first. Index
// entries whose payload expired are pruned on the way through.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	ids, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		conv, err := s.Get(ctx, id)
		if err == ErrNotFound {
			s.client.SRem(ctx, indexKey, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			Mode:         conv.Mode,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

// Delete removes a conversation. Deleting a missing conversation returns
// ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, keyPrefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	s.client.SRem(ctx, indexKey, id)

	s.mu.Lock()
	delete(s.localCache, id)
	delete(s.cacheAccess, id)
	metrics.ConversationCacheSize.Set(float64(len(s.localCache)))
	s.mu.Unlock()

	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) save(ctx context.Context, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keyPrefix+conv.ID, data, s.ttl)
	pipe.SAdd(ctx, indexKey, conv.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (s *Store) cachePut(conv *Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.localCache[conv.ID] = clone(conv)
	s.cacheAccess[conv.ID] = time.Now()
	s.evictLocked()
	metrics.ConversationCacheSize.Set(float64(len(s.localCache)))
}

// appendLock returns the per-conversation writer lock, creating it on first
// use. Lock entries live for the store's lifetime.
func (s *Store) appendLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) touch(id string) {
	s.mu.Lock()
	s.cacheAccess[id] = time.Now()
	s.mu.Unlock()
}

// evictLocked drops the least recently accessed entries once the cache
// exceeds maxCached. Caller holds s.mu.
func (s *Store) evictLocked() {
	for len(s.localCache) > s.maxCached {
		oldestID := ""
		var oldest time.Time
		for id, at := range s.cacheAccess {
			if oldestID == "" || at.Before(oldest) {
				oldestID = id
				oldest = at
			}
		}
		delete(s.localCache, oldestID)
		delete(s.cacheAccess, oldestID)
	}
}

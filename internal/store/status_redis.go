package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Run states recorded while a split runs.
const (
	StateRunning    = "running"
	StateClassified = "classified"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Status is the externally visible progress of one split run.
type Status struct {
	Status   string                 `json:"status"`
	Progress int                    `json:"progress"`
	Message  string                 `json:"message"`
	Input    string                 `json:"input"`
	Start    *time.Time             `json:"start_time,omitempty"`
	End      *time.Time             `json:"end_time,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RedisStatus keeps one hash per run under run:<id>:status. Every write refreshes the TTL.
type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewRedisStatus(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStatus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStatus{client: c, keyNS: "run", ttl: ttl}, nil
}

func (s *RedisStatus) key(runID string) string { return Key(s.keyNS, runID) }

// Key builds the hash key of a run.
func Key(ns, runID string) string { return fmt.Sprintf("%s:%s:status", ns, runID) }

// Fields flattens st into the hash fields written by Set.
func Fields(st Status) map[string]interface{} {
	m := map[string]interface{}{
		"status":   st.Status,
		"progress": st.Progress,
		"message":  st.Message,
		"input":    st.Input,
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}
	if st.Metadata != nil {
		b, _ := json.Marshal(st.Metadata)
		m["metadata"] = string(b)
	}
	return m
}

// Parse is the inverse of Fields. Malformed fields are left at their zero value.
func Parse(res map[string]string) Status {
	st := Status{
		Status:  res["status"],
		Message: res["message"],
		Input:   res["input"],
	}
	if n, err := strconv.Atoi(res["progress"]); err == nil {
		st.Progress = n
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	if v := res["metadata"]; v != "" {
		_ = json.Unmarshal([]byte(v), &st.Metadata)
	}
	return st
}

func (s *RedisStatus) Set(ctx context.Context, runID string, st Status) error {
	key := s.key(runID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, Fields(st))
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	return err
}

func (s *RedisStatus) Get(ctx context.Context, runID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(runID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	return Parse(res), true, nil
}

func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStatus) Close() error { return s.client.Close() }

// Package redisstore keeps placement sessions in redis, expiring them after an idle TTL.
package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/BelowZeroPortfolio/school-scan-sub002/core"
	"github.com/BelowZeroPortfolio/school-scan-sub002/core/placement"
)

const keyPrefix = "schoolscan:"

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

var _ placement.SessionStore = (*Store)(nil) // interface compliance check

func New(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = placement.DefaultSessionTTL
	}
	return &Store{client: client, ttl: ttl}
}

// Connect opens a client from the redis configuration and checks it answers.
func Connect(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (st *Store) Load(ctx context.Context, id string) (*placement.Session, error) {
	data, err := st.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return placement.NewSession(id), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading placement session")
	}
	sess := new(placement.Session)
	if err := sess.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	sess.ID = id
	return sess, nil
}

// Save writes the session and restarts its idle TTL.
func (st *Store) Save(ctx context.Context, sess *placement.Session) error {
	sess.TouchedAt = time.Now().UTC()
	if err := st.client.Set(ctx, keyPrefix+sess.ID, sess, st.ttl).Err(); err != nil {
		return errors.Wrap(err, "saving placement session")
	}
	return nil
}

func (st *Store) Delete(ctx context.Context, id string) error {
	return errors.Wrap(st.client.Del(ctx, keyPrefix+id).Err(), "deleting placement session")
}

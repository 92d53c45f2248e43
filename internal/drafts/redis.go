package drafts

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/RayanGhomsi/Prestige/internal/wizard"
)

const (
	keyPrefix  = "draft:"
	stampedKey = "drafts:stamped"
)

// RedisStore keeps each draft as one JSON string with a sliding TTL. Ids of
// drafts with an application id are also kept in a set for the autosaver.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (*wizard.Draft, error) {
	b, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get draft %s", id)
	}
	return wizard.UnmarshalDraft(b)
}

func (s *RedisStore) Save(ctx context.Context, id string, d *wizard.Draft) error {
	b, err := d.Marshal()
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyPrefix+id, b, s.ttl)
		if d.ApplicationID != "" {
			p.SAdd(ctx, stampedKey, id)
		} else {
			p.SRem(ctx, stampedKey, id)
		}
		return nil
	})
	return errors.Wrapf(err, "set draft %s", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keyPrefix+id)
		p.SRem(ctx, stampedKey, id)
		return nil
	})
	return errors.Wrapf(err, "delete draft %s", id)
}

// Stamped reads the stamped set and drops members whose draft has expired.
func (s *RedisStore) Stamped(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, stampedKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list stamped drafts")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	checks := make([]*redis.IntCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, id := range ids {
			checks[i] = p.Exists(ctx, keyPrefix+id)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "check stamped drafts")
	}

	var live []string
	var gone []interface{}
	for i, id := range ids {
		if checks[i].Val() == 1 {
			live = append(live, id)
		} else {
			gone = append(gone, id)
		}
	}
	if len(gone) > 0 {
		if err := s.client.SRem(ctx, stampedKey, gone...).Err(); err != nil {
			return nil, errors.Wrap(err, "prune stamped drafts")
		}
	}
	return live, nil
}

func (s *RedisStore) Touch(ctx context.Context, id string, at time.Time) error {
	key := keyPrefix + id
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		d, err := wizard.UnmarshalDraft(b)
		if err != nil {
			return err
		}
		d.Touch(at)
		if b, err = d.Marshal(); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	return errors.Wrapf(err, "touch draft %s", id)
}

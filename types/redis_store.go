package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	paymentKeyPrefix      = "payment:"
	paymentStatusPrefix   = "payments:status:"
	subscriptionKeyPrefix = "subscription:"
	partySubsPrefix       = "subscriptions:party:"
	credentialKeyPrefix   = "credential:"
	feeEntriesPrefix      = "fees:payment:"
)

// RedisStore is a redis-backed Store. Records are stored as JSON values;
// party and status indexes are kept as sets. Conditional updates run under
// WATCH so concurrent writers to the same record never interleave.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(cfg StoreSettings) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
	}
}

func (r *RedisStore) GetPayment(ctx context.Context, id string) (*Payment, bool, error) {
	var p Payment
	ok, err := r.getJSON(ctx, paymentKeyPrefix+id, &p)
	if !ok || err != nil {
		return nil, false, err
	}
	return &p, true, nil
}

func (r *RedisStore) PutPayment(ctx context.Context, p *Payment) error {
	if err := r.putJSON(ctx, paymentKeyPrefix+p.ID, p); err != nil {
		return err
	}
	return r.client.SAdd(ctx, paymentStatusPrefix+p.Status, p.ID).Err()
}

func (r *RedisStore) UpdatePaymentIfStatus(ctx context.Context, id, fromStatus string, update func(*Payment)) (bool, error) {
	key := paymentKeyPrefix + id
	updated := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var p Payment
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("decode payment %s: %w", id, err)
		}
		if p.Status != fromStatus {
			return nil
		}

		update(&p)
		encoded, err := json.Marshal(&p)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			pipe.SRem(ctx, paymentStatusPrefix+fromStatus, id)
			pipe.SAdd(ctx, paymentStatusPrefix+p.Status, id)
			return nil
		})
		if err != nil {
			return err
		}
		updated = true
		return nil
	}, key)

	return updated, err
}

func (r *RedisStore) PaymentsByStatus(ctx context.Context, status string) ([]*Payment, error) {
	ids, err := r.client.SMembers(ctx, paymentStatusPrefix+status).Result()
	if err != nil {
		return nil, err
	}
	var out []*Payment
	for _, id := range ids {
		p, ok, err := r.GetPayment(ctx, id)
		if err != nil {
			return nil, err
		}
		// skip records whose status index lags behind a concurrent update
		if ok && p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *RedisStore) GetSubscription(ctx context.Context, id string) (*WebhookSubscription, bool, error) {
	var s WebhookSubscription
	ok, err := r.getJSON(ctx, subscriptionKeyPrefix+id, &s)
	if !ok || err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

func (r *RedisStore) PutSubscription(ctx context.Context, s *WebhookSubscription) error {
	if err := r.putJSON(ctx, subscriptionKeyPrefix+s.ID, s); err != nil {
		return err
	}
	return r.client.SAdd(ctx, partySubsPrefix+s.PartyID, s.ID).Err()
}

func (r *RedisStore) UpdateSubscription(ctx context.Context, id string, update func(*WebhookSubscription)) (bool, error) {
	key := subscriptionKeyPrefix + id
	updated := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var s WebhookSubscription
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("decode subscription %s: %w", id, err)
		}

		update(&s)
		encoded, err := json.Marshal(&s)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = true
		return nil
	}, key)

	return updated, err
}

func (r *RedisStore) DeleteSubscription(ctx context.Context, id string) error {
	s, ok, err := r.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		if err := r.client.SRem(ctx, partySubsPrefix+s.PartyID, id).Err(); err != nil {
			return err
		}
	}
	return r.client.Del(ctx, subscriptionKeyPrefix+id).Err()
}

func (r *RedisStore) SubscriptionsForParties(ctx context.Context, partyIDs []string) ([]*WebhookSubscription, error) {
	var out []*WebhookSubscription
	seen := make(map[string]bool)
	for _, partyID := range partyIDs {
		ids, err := r.client.SMembers(ctx, partySubsPrefix+partyID).Result()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			s, ok, err := r.GetSubscription(ctx, id)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

func (r *RedisStore) GetCredential(ctx context.Context, keyID string) (*AuthCredential, bool, error) {
	var c AuthCredential
	ok, err := r.getJSON(ctx, credentialKeyPrefix+keyID, &c)
	if !ok || err != nil {
		return nil, false, err
	}
	return &c, true, nil
}

func (r *RedisStore) PutCredential(ctx context.Context, c *AuthCredential) error {
	return r.putJSON(ctx, credentialKeyPrefix+c.KeyID, c)
}

func (r *RedisStore) UpdateCredential(ctx context.Context, keyID string, update func(*AuthCredential)) (bool, error) {
	key := credentialKeyPrefix + keyID
	updated := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var c AuthCredential
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("decode credential %s: %w", keyID, err)
		}

		update(&c)
		encoded, err := json.Marshal(&c)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = true
		return nil
	}, key)

	return updated, err
}

func (r *RedisStore) PutFeeEntry(ctx context.Context, e *FeeLedgerEntry) error {
	encoded, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.client.RPush(ctx, feeEntriesPrefix+e.PaymentID, encoded).Err()
}

func (r *RedisStore) FeeEntriesForPayment(ctx context.Context, paymentID string) ([]*FeeLedgerEntry, error) {
	raws, err := r.client.LRange(ctx, feeEntriesPrefix+paymentID, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*FeeLedgerEntry, 0, len(raws))
	for _, raw := range raws {
		var e FeeLedgerEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode fee entry for payment %s: %w", paymentID, err)
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisStore) putJSON(ctx context.Context, key string, v any) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, encoded, 0).Err()
}

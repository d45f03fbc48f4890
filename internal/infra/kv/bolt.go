package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"el-estate-bot/internal/infra/storage"

	"go.etcd.io/bbolt"
)

// boltBucket — единственный bucket, в котором лежат все ключи.
var boltBucket = []byte("kv")

// Виды значений внутри конверта.
const (
	kindString = "string"
	kindSet    = "set"
	kindHash   = "hash"
)

// boltEntry — конверт значения в bbolt. ExpiresAt в unix-наносекундах, 0 — без срока.
type boltEntry struct {
	Kind      string            `json:"kind"`
	Str       string            `json:"str,omitempty"`
	Members   map[string]bool   `json:"members,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	ExpiresAt int64             `json:"expires_at,omitempty"`
}

func (e *boltEntry) expired(now time.Time) bool {
	return e.ExpiresAt > 0 && now.UnixNano() >= e.ExpiresAt
}

// BoltStore реализует Store поверх одного файла bbolt для запуска без Redis.
// Просроченные ключи удаляются лениво при обращении и при открытии базы.
type BoltStore struct {
	db  *bbolt.DB
	now func() time.Time
}

// OpenBolt открывает (или создаёт) файл базы и чистит просроченные ключи.
func OpenBolt(path string) (*BoltStore, error) {
	if err := storage.EnsureDir(path); err != nil {
		return nil, err
	}
	db, err := bbolt.Open(path, storage.DefaultFilePerm, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	s := &BoltStore{db: db, now: time.Now}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	if err := s.sweep(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// sweep удаляет все просроченные ключи.
func (s *BoltStore) sweep() error {
	now := s.now()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var e boltEntry
			if json.Unmarshal(v, &e) != nil || e.expired(now) {
				stale = append(stale, slices.Clone(k))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// load читает живую запись или nil. Просроченную запись удаляет (только в rw-транзакции).
func (s *BoltStore) load(tx *bbolt.Tx, key string) (*boltEntry, error) {
	b := tx.Bucket(boltBucket)
	raw := b.Get([]byte(key))
	if raw == nil {
		return nil, nil
	}
	var e boltEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("decode key %q: %w", key, err)
	}
	if e.expired(s.now()) {
		if tx.Writable() {
			if err := b.Delete([]byte(key)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return &e, nil
}

func (s *BoltStore) save(tx *bbolt.Tx, key string, e *boltEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return tx.Bucket(boltBucket).Put([]byte(key), raw)
}

// loadKind возвращает запись нужного вида; отсутствующую создаёт пустой.
func (s *BoltStore) loadKind(tx *bbolt.Tx, key, kind string) (*boltEntry, error) {
	e, err := s.load(tx, key)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return &boltEntry{Kind: kind}, nil
	}
	if e.Kind != kind {
		return nil, fmt.Errorf("%w: key %q is %s", ErrWrongType, key, e.Kind)
	}
	return e, nil
}

func (s *BoltStore) Get(_ context.Context, key string) (string, error) {
	var out string
	err := s.db.View(func(tx *bbolt.Tx) error {
		e, err := s.load(tx, key)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrNotFound
		}
		if e.Kind != kindString {
			return fmt.Errorf("%w: key %q is %s", ErrWrongType, key, e.Kind)
		}
		out = e.Str
		return nil
	})
	return out, err
}

func (s *BoltStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := &boltEntry{Kind: kindString, Str: value}
	if ttl > 0 {
		e.ExpiresAt = s.now().Add(ttl).UnixNano()
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.save(tx, key, e)
	})
}

func (s *BoltStore) Del(_ context.Context, keys ...string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(boltBucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) SAdd(_ context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		e, err := s.loadKind(tx, key, kindSet)
		if err != nil {
			return err
		}
		if e.Members == nil {
			e.Members = make(map[string]bool, len(members))
		}
		for _, m := range members {
			e.Members[m] = true
		}
		return s.save(tx, key, e)
	})
}

func (s *BoltStore) SRem(_ context.Context, key string, members ...string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		e, err := s.loadKind(tx, key, kindSet)
		if err != nil {
			return err
		}
		for _, m := range members {
			delete(e.Members, m)
		}
		// Как и в Redis, пустое множество перестаёт существовать.
		if len(e.Members) == 0 {
			return tx.Bucket(boltBucket).Delete([]byte(key))
		}
		return s.save(tx, key, e)
	})
}

func (s *BoltStore) SIsMember(_ context.Context, key, member string) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		e, err := s.loadKind(tx, key, kindSet)
		if err != nil {
			return err
		}
		ok = e.Members[member]
		return nil
	})
	return ok, err
}

func (s *BoltStore) SMembers(_ context.Context, key string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		e, err := s.loadKind(tx, key, kindSet)
		if err != nil {
			return err
		}
		out = make([]string, 0, len(e.Members))
		for m := range e.Members {
			out = append(out, m)
		}
		return nil
	})
	slices.Sort(out)
	return out, err
}

func (s *BoltStore) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	var result int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		e, err := s.loadKind(tx, key, kindHash)
		if err != nil {
			return err
		}
		if e.Fields == nil {
			e.Fields = make(map[string]string)
		}
		var cur int64
		if raw, ok := e.Fields[field]; ok {
			cur, err = strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("hash value of %q/%q is not an integer", key, field)
			}
		}
		result = cur + delta
		e.Fields[field] = strconv.FormatInt(result, 10)
		return s.save(tx, key, e)
	})
	return result, err
}

func (s *BoltStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		e, err := s.loadKind(tx, key, kindHash)
		if err != nil {
			return err
		}
		for k, v := range e.Fields {
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		e, err := s.load(tx, key)
		if err != nil || e == nil {
			return err
		}
		if ttl <= 0 {
			return tx.Bucket(boltBucket).Delete([]byte(key))
		}
		e.ExpiresAt = s.now().Add(ttl).UnixNano()
		return s.save(tx, key, e)
	})
}

func (s *BoltStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(boltBucket) == nil {
			return errors.New("kv bucket is missing")
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Package bolt is a storage.Storage backed by bbolt.
//
// Each model gets its own bucket, and a run's key is its id.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/NicValentine/LoFi-Cafe/storage"
	"github.com/NicValentine/LoFi-Cafe/util"

	bolt "go.etcd.io/bbolt"
)

type Storage struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}

	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.filename, err)
	}
	s.db = db
	return nil
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		util.Logger().Debug(fmt.Sprintf("bolt storage."+format, args...))
	}
}

func bucketName(model string) []byte {
	if model == "" {
		model = "_"
	}
	return []byte(model)
}

func (s *Storage) WriteRun(ctx context.Context, r *storage.RunRecord) error {
	s.logf("WriteRun %s %s", r.Model, r.Id)

	js, err := json.Marshal(r)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName(r.Model))
		if err != nil {
			return err
		}
		return b.Put([]byte(r.Id), js)
	})
}

func (s *Storage) GetRun(ctx context.Context, model, id string) (*storage.RunRecord, error) {
	s.logf("GetRun %s %s", model, id)

	var r *storage.RunRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName(model))
		if b == nil {
			return nil
		}
		js := b.Get([]byte(id))
		if js == nil {
			return nil
		}
		r = &storage.RunRecord{}
		return json.Unmarshal(js, r)
	})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, storage.NotFound
	}
	return r, nil
}

func (s *Storage) ListRuns(ctx context.Context, model string) ([]*storage.RunRecord, error) {
	s.logf("ListRuns %s", model)

	acc := make([]*storage.RunRecord, 0, 32)

	scan := func(b *bolt.Bucket) error {
		c := b.Cursor()
		for id, js := c.First(); id != nil; id, js = c.Next() {
			var r storage.RunRecord
			if err := json.Unmarshal(js, &r); err != nil {
				return fmt.Errorf("run %s: %w", id, err)
			}
			acc = append(acc, r.Summary())
		}
		return nil
	}

	err := s.db.View(func(tx *bolt.Tx) error {
		if model != "" {
			b := tx.Bucket(bucketName(model))
			if b == nil {
				return nil
			}
			return scan(b)
		}
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			return scan(b)
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(acc, func(i, j int) bool {
		return acc[i].Id < acc[j].Id
	})

	s.logf("ListRuns %s found %d runs", model, len(acc))

	return acc, nil
}

package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/vectorstore"
)

var (
	bucketCollections = []byte("collections")
	bucketPoints      = []byte("points")
)

var _ models.VectorService = &VectorStore{}

// VectorStore is a single file store. Collection info is kept in the
// collections bucket and each collection's points in a nested bucket under
// points. Search is a brute force cosine scan.
type VectorStore struct {
	db *bbolt.DB
}

func NewVectorStore(path string) (*VectorStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCollections); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketPoints); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &VectorStore{db: db}, nil
}

func (s *VectorStore) ListCollections(_ context.Context) ([]models.Collection, error) {
	var out []models.Collection
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCollections).ForEach(func(k, v []byte) error {
			var c models.Collection
			if err := json.Unmarshal(v, &c); err != nil {
				return fmt.Errorf("corrupt collection record %s: %w", k, err)
			}
			c.PointsCount = countPoints(tx, c.Name)
			out = append(out, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *VectorStore) GetCollection(_ context.Context, name string) (*models.Collection, error) {
	var c models.Collection
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCollections).Get([]byte(name))
		if data == nil {
			return models.NewNotFoundError("collection " + name)
		}
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		c.PointsCount = countPoints(tx, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *VectorStore) CreateCollection(_ context.Context, name string, vectorSize int) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		collections := tx.Bucket(bucketCollections)
		if collections.Get([]byte(name)) != nil {
			return nil
		}
		data, err := json.Marshal(models.Collection{
			Name:       name,
			VectorSize: vectorSize,
			Distance:   models.DistanceCosine,
		})
		if err != nil {
			return err
		}
		if err := collections.Put([]byte(name), data); err != nil {
			return err
		}
		_, err = tx.Bucket(bucketPoints).CreateBucketIfNotExists([]byte(name))
		return err
	})
}

// Upsert writes every point in one transaction, so a batch is all or nothing.
func (s *VectorStore) Upsert(_ context.Context, collection string, points []models.IndexedPoint) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		c, err := getCollection(tx, collection)
		if err != nil {
			return err
		}
		b := tx.Bucket(bucketPoints).Bucket([]byte(collection))
		for _, p := range points {
			if len(p.Vector) != c.VectorSize {
				return models.NewDimensionMismatchError(collection, c.VectorSize, len(p.Vector))
			}
			data, err := json.Marshal(p)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(p.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *VectorStore) Search(
	_ context.Context,
	collection string,
	vector models.Embedding,
	limit int,
) ([]models.ScoredHit, error) {
	var points []models.IndexedPoint
	err := s.db.View(func(tx *bbolt.Tx) error {
		if _, err := getCollection(tx, collection); err != nil {
			return err
		}
		return tx.Bucket(bucketPoints).Bucket([]byte(collection)).ForEach(func(_, v []byte) error {
			var p models.IndexedPoint
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			points = append(points, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return vectorstore.RankByCosine(points, vector, limit), nil
}

func (s *VectorStore) Ping(_ context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketCollections) == nil {
			return fmt.Errorf("bolt store %s is missing the collections bucket", s.db.Path())
		}
		return nil
	})
}

func (s *VectorStore) Close() error {
	return s.db.Close()
}

func getCollection(tx *bbolt.Tx, name string) (*models.Collection, error) {
	data := tx.Bucket(bucketCollections).Get([]byte(name))
	if data == nil || tx.Bucket(bucketPoints).Bucket([]byte(name)) == nil {
		return nil, models.NewNotFoundError("collection " + name)
	}
	var c models.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func countPoints(tx *bbolt.Tx, name string) int64 {
	b := tx.Bucket(bucketPoints).Bucket([]byte(name))
	if b == nil {
		return 0
	}
	return int64(b.Stats().KeyN)
}

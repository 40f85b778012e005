package repository

import (
	"context"
	"encoding/binary"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/talkincode/productsapi/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	productBucket  = []byte("product")
	categoryBucket = []byte("category")
)

// OpenBolt opens the bolt file and makes sure all buckets exist
func OpenBolt(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "open bolt %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{productBucket, categoryBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "create bolt buckets")
	}
	return db, nil
}

// ResetBolt drops and recreates all buckets
func ResetBolt(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{productBucket, categoryBucket} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return errors.Wrapf(err, "drop bucket %s", name)
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return errors.Wrapf(err, "create bucket %s", name)
			}
		}
		return nil
	})
}

// itob encodes ids big-endian so cursor order is id order
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// BoltProductRepository stores products as JSON values keyed by id
type BoltProductRepository struct {
	db *bolt.DB
}

func NewBoltProductRepository(db *bolt.DB) *BoltProductRepository {
	return &BoltProductRepository{db: db}
}

func (r *BoltProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	products := []domain.Product{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(productBucket).ForEach(func(k, v []byte) error {
			var p domain.Product
			if err := json.Unmarshal(v, &p); err != nil {
				return errors.Wrapf(err, "decode product %d", binary.BigEndian.Uint64(k))
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *BoltProductRepository) Get(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(productBucket).Get(itob(id))
		if v == nil {
			return ErrProductNotFound
		}
		return json.Unmarshal(v, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *BoltProductRepository) Add(ctx context.Context, p *domain.Product) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return errors.Wrap(err, "next product id")
		}
		p.ID = int64(seq)
		data, err := json.Marshal(p)
		if err != nil {
			return errors.Wrap(err, "encode product")
		}
		return b.Put(itob(p.ID), data)
	})
}

func (r *BoltProductRepository) Update(ctx context.Context, p *domain.Product) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productBucket)
		if b.Get(itob(p.ID)) == nil {
			return ErrProductNotFound
		}
		data, err := json.Marshal(p)
		if err != nil {
			return errors.Wrap(err, "encode product")
		}
		return b.Put(itob(p.ID), data)
	})
}

func (r *BoltProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(productBucket)
		if b.Get(itob(id)) == nil {
			return ErrProductNotFound
		}
		return b.Delete(itob(id))
	})
}

// BoltCategoryRepository stores categories as JSON values keyed by id
type BoltCategoryRepository struct {
	db *bolt.DB
}

func NewBoltCategoryRepository(db *bolt.DB) *BoltCategoryRepository {
	return &BoltCategoryRepository{db: db}
}

func (r *BoltCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(categoryBucket).ForEach(func(k, v []byte) error {
			var c domain.Category
			if err := json.Unmarshal(v, &c); err != nil {
				return errors.Wrapf(err, "decode category %d", binary.BigEndian.Uint64(k))
			}
			categories = append(categories, c)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *BoltCategoryRepository) Get(ctx context.Context, id int64) (*domain.Category, error) {
	var c domain.Category
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(categoryBucket).Get(itob(id))
		if v == nil {
			return ErrCategoryNotFound
		}
		return json.Unmarshal(v, &c)
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *BoltCategoryRepository) EnsureCategories(ctx context.Context, categories []domain.Category) (int, error) {
	created := 0
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(categoryBucket)
		for _, c := range categories {
			if b.Get(itob(c.ID)) != nil {
				continue
			}
			data, err := json.Marshal(c)
			if err != nil {
				return errors.Wrap(err, "encode category")
			}
			if err := b.Put(itob(c.ID), data); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

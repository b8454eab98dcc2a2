// Package bolt persists denylist rules in a bbolt database.
package bolt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/rr-relay/internal/dns/common/utils"
	"github.com/haukened/rr-relay/internal/dns/domain"
	"github.com/haukened/rr-relay/internal/dns/repos/denylist"
)

var (
	bucketExact  = []byte("exact")
	bucketSuffix = []byte("suffix")
	bucketMeta   = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// boltStore implements denylist.Store. Exact rules are keyed by name; suffix
// rules by their labels in reverse order ("com.example"), so a zone's rules
// sort together. Values hold the rule source.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a Bolt database at path and ensures buckets exist.
func New(path string) (denylist.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open denylist db %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// Rebuild drops both rule buckets and rewrites them in a single transaction,
// so readers see either the old or the new snapshot.
func (s *boltStore) Rebuild(rules []domain.DenyRule, version uint64, updatedUnix int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
		}
		exact, err := tx.CreateBucket(bucketExact)
		if err != nil {
			return err
		}
		suffix, err := tx.CreateBucket(bucketSuffix)
		if err != nil {
			return err
		}

		for _, r := range rules {
			if err := r.Validate(); err != nil {
				return fmt.Errorf("rule %q: %w", r.Name, err)
			}
			switch r.Kind {
			case domain.DenyExact:
				err = exact.Put([]byte(r.Name), []byte(r.Source))
			case domain.DenySuffix:
				err = suffix.Put([]byte(reverseLabels(r.Name)), []byte(r.Source))
			}
			if err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		vbuf := make([]byte, 8)
		ubuf := make([]byte, 8)
		binary.BigEndian.PutUint64(vbuf, version)
		binary.BigEndian.PutUint64(ubuf, uint64(updatedUnix)) //gosec:disable G115 -- round-trips through Stats
		if err := meta.Put(keyVersion, vbuf); err != nil {
			return err
		}
		return meta.Put(keyUpdated, ubuf)
	})
}

// FirstMatch checks the exact bucket, then every suffix anchor from the name
// itself up to its top-level label.
func (s *boltStore) FirstMatch(name string) (domain.DenyRule, bool, error) {
	var (
		rule  domain.DenyRule
		found bool
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketExact).Get([]byte(name)); v != nil {
			rule = domain.DenyRule{Name: name, Kind: domain.DenyExact, Source: string(v)}
			found = true
			return nil
		}
		b := tx.Bucket(bucketSuffix)
		for _, anchor := range utils.Anchors(name) {
			if v := b.Get([]byte(reverseLabels(anchor))); v != nil {
				rule = domain.DenyRule{Name: anchor, Kind: domain.DenySuffix, Source: string(v)}
				found = true
				return nil
			}
		}
		return nil
	})
	return rule, found, err
}

func (s *boltStore) Stats() denylist.StoreStats {
	st := denylist.StoreStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketExact); b != nil {
			st.ExactKeys = uint64(b.Stats().KeyN) //gosec:disable G115 -- counts are non-negative
		}
		if b := tx.Bucket(bucketSuffix); b != nil {
			st.SuffixKeys = uint64(b.Stats().KeyN) //gosec:disable G115 -- counts are non-negative
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v)) //gosec:disable G115 -- written from an int64
			}
		}
		return nil
	})
	return st
}

// reverseLabels turns "www.example.com" into "com.example.www".
func reverseLabels(name string) string {
	labels := strings.Split(name, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return strings.Join(labels, ".")
}

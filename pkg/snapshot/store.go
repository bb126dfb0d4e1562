// Package snapshot persists discovery inputs to disk so repeated
// discovery runs over the same entity population do not depend on the
// upstream systems being reachable.
//
// A snapshot is a named, immutable copy of one input set: entities, seed
// relationships, and events. Snapshots are stored in BadgerDB with JSON
// values; relationships are flattened to endpoint ids on write and
// rehydrated against the snapshot's own entities on read.
//
// Example Usage:
//
//	store, err := snapshot.Open("./data/snapshots")
//	if err != nil { ... }
//	defer store.Close()
//
//	err = store.Save("q3-review", entities, seeds, events)
//	snap, err := store.Load("q3-review")
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/graphscout/pkg/model"
)

// Key layout: prefix byte + snapshot name + 0x00 + id. Events use a
// big-endian sequence number as the id so iteration preserves insertion
// order.
const (
	prefixMeta   = byte(0x01) // meta:name -> JSON(Meta)
	prefixEntity = byte(0x02) // entity:name:entityID -> JSON(Entity)
	prefixRel    = byte(0x03) // rel:name:relID -> JSON(storedRelationship)
	prefixEvent  = byte(0x04) // event:name:seq -> JSON(Event)
)

// ErrNotFound is returned by Load and Meta for unknown snapshot names.
var ErrNotFound = errors.New("snapshot: not found")

// Meta describes a stored snapshot.
type Meta struct {
	Name              string    `json:"name"`
	SavedAt           time.Time `json:"saved_at"`
	EntityCount       int       `json:"entity_count"`
	RelationshipCount int       `json:"relationship_count"`
	EventCount        int       `json:"event_count"`
}

// Snapshot is one loaded input set, with relationship endpoints resolved
// back to the snapshot's entities.
type Snapshot struct {
	Meta          Meta
	Entities      []*model.Entity
	Relationships []*model.Relationship
	Events        []model.Event
}

// storedRelationship is the wire form: endpoints flatten to ids because
// entity pointers do not survive serialization.
type storedRelationship struct {
	ID             string                 `json:"id"`
	SourceID       string                 `json:"source_id"`
	TargetID       string                 `json:"target_id"`
	Kind           model.RelationshipKind `json:"kind"`
	Direction      model.Direction        `json:"direction"`
	Strength       model.Strength         `json:"strength"`
	Confidence     float64                `json:"confidence"`
	Evidence       []string               `json:"evidence,omitempty"`
	TemporalAspect model.TemporalAspect   `json:"temporal_aspect,omitempty"`
}

// Store is a snapshot repository backed by BadgerDB.
// Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a snapshot store in dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that keeps everything in RAM. Data is lost
// on Close. Intended for tests.
func OpenInMemory() (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("snapshot: open in-memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes a snapshot under name, replacing any previous snapshot with
// the same name.
func (s *Store) Save(name string, entities []*model.Entity, rels []*model.Relationship, events []model.Event) error {
	if name == "" {
		return errors.New("snapshot: empty name")
	}
	if err := s.dropSnapshot(name); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range entities {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("snapshot: marshal entity %s: %w", e.ID, err)
		}
		if err := wb.Set(scopedKey(prefixEntity, name, []byte(e.ID)), data); err != nil {
			return err
		}
	}
	for _, r := range rels {
		stored := storedRelationship{
			ID:             r.ID,
			SourceID:       r.Source.ID,
			TargetID:       r.Target.ID,
			Kind:           r.Kind,
			Direction:      r.Direction,
			Strength:       r.Strength,
			Confidence:     r.Confidence,
			Evidence:       r.Evidence,
			TemporalAspect: r.TemporalAspect,
		}
		data, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("snapshot: marshal relationship %s: %w", r.ID, err)
		}
		if err := wb.Set(scopedKey(prefixRel, name, []byte(r.ID)), data); err != nil {
			return err
		}
	}
	for i, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("snapshot: marshal event %d: %w", i, err)
		}
		var seq [8]byte
		binary.BigEndian.PutUint64(seq[:], uint64(i))
		if err := wb.Set(scopedKey(prefixEvent, name, seq[:]), data); err != nil {
			return err
		}
	}

	meta := Meta{
		Name:              name,
		SavedAt:           time.Now().UTC(),
		EntityCount:       len(entities),
		RelationshipCount: len(rels),
		EventCount:        len(events),
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("snapshot: marshal meta: %w", err)
	}
	if err := wb.Set(metaKey(name), data); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", name, err)
	}
	return nil
}

// Load reads the named snapshot and rehydrates relationship endpoints.
// Entities and relationships come back sorted by id.
func (s *Store) Load(name string) (*Snapshot, error) {
	snap := &Snapshot{}
	err := s.db.View(func(txn *badger.Txn) error {
		meta, err := readMeta(txn, name)
		if err != nil {
			return err
		}
		snap.Meta = meta

		byID := make(map[string]*model.Entity)
		err = scanPrefix(txn, scopePrefix(prefixEntity, name), func(val []byte) error {
			var e model.Entity
			if err := json.Unmarshal(val, &e); err != nil {
				return fmt.Errorf("snapshot: decode entity: %w", err)
			}
			snap.Entities = append(snap.Entities, &e)
			byID[e.ID] = &e
			return nil
		})
		if err != nil {
			return err
		}

		err = scanPrefix(txn, scopePrefix(prefixRel, name), func(val []byte) error {
			var stored storedRelationship
			if err := json.Unmarshal(val, &stored); err != nil {
				return fmt.Errorf("snapshot: decode relationship: %w", err)
			}
			src, ok := byID[stored.SourceID]
			if !ok {
				return fmt.Errorf("snapshot: relationship %s references unknown entity %s", stored.ID, stored.SourceID)
			}
			dst, ok := byID[stored.TargetID]
			if !ok {
				return fmt.Errorf("snapshot: relationship %s references unknown entity %s", stored.ID, stored.TargetID)
			}
			snap.Relationships = append(snap.Relationships, &model.Relationship{
				ID:             stored.ID,
				Source:         src,
				Target:         dst,
				Kind:           stored.Kind,
				Direction:      stored.Direction,
				Strength:       stored.Strength,
				Confidence:     stored.Confidence,
				Evidence:       stored.Evidence,
				TemporalAspect: stored.TemporalAspect,
			})
			return nil
		})
		if err != nil {
			return err
		}

		return scanPrefix(txn, scopePrefix(prefixEvent, name), func(val []byte) error {
			var ev model.Event
			if err := json.Unmarshal(val, &ev); err != nil {
				return fmt.Errorf("snapshot: decode event: %w", err)
			}
			snap.Events = append(snap.Events, ev)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns metadata for every stored snapshot, sorted by name.
func (s *Store) List() ([]Meta, error) {
	var metas []Meta
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, []byte{prefixMeta}, func(val []byte) error {
			var m Meta
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("snapshot: decode meta: %w", err)
			}
			metas = append(metas, m)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

// Delete removes the named snapshot. Deleting a missing snapshot is not
// an error.
func (s *Store) Delete(name string) error {
	if err := s.dropSnapshot(name); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(metaKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

func (s *Store) dropSnapshot(name string) error {
	for _, p := range []byte{prefixEntity, prefixRel, prefixEvent} {
		if err := s.db.DropPrefix(scopePrefix(p, name)); err != nil {
			return fmt.Errorf("snapshot: drop %s: %w", name, err)
		}
	}
	return nil
}

func readMeta(txn *badger.Txn, name string) (Meta, error) {
	var meta Meta
	item, err := txn.Get(metaKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return meta, fmt.Errorf("snapshot: read meta %s: %w", name, err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	if err != nil {
		return meta, fmt.Errorf("snapshot: decode meta %s: %w", name, err)
	}
	return meta, nil
}

func metaKey(name string) []byte {
	return append([]byte{prefixMeta}, []byte(name)...)
}

func scopePrefix(prefix byte, name string) []byte {
	key := make([]byte, 0, 1+len(name)+1)
	key = append(key, prefix)
	key = append(key, []byte(name)...)
	key = append(key, 0x00)
	return key
}

func scopedKey(prefix byte, name string, id []byte) []byte {
	return append(scopePrefix(prefix, name), id...)
}

func scanPrefix(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

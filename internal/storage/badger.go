package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"tsevolve/internal/model"
)

// InMemoryPath opens a badger store without touching disk.
const InMemoryPath = ":memory:"

const (
	runPrefix         = "run/"
	historyPrefix     = "history/"
	diagnosticsPrefix = "diagnostics/"
	bestsPrefix       = "bests/"
)

type BadgerStore struct {
	path string

	mu sync.RWMutex
	db *badger.DB
}

func NewBadgerStore(path string) *BadgerStore {
	return &BadgerStore{path: path}
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("badger path is required")
	}
	if s.db != nil {
		return nil
	}

	opts := badger.DefaultOptions(s.path).WithLogger(nil)
	if s.path == InMemoryPath {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger store: %w", err)
	}
	s.db = db
	return nil
}

func (s *BadgerStore) Reset(_ context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.DropAll()
}

func (s *BadgerStore) SaveRun(_ context.Context, run model.RunRecord) error {
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.put(runPrefix+run.ID, payload)
}

func (s *BadgerStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.get(runPrefix + id)
	if err != nil || !ok {
		return model.RunRecord{}, ok, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *BadgerStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var out []model.RunRecord
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			run, err := DecodeRun(payload)
			if err != nil {
				return fmt.Errorf("decode run %s: %w", item.Key(), err)
			}
			out = append(out, run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortRunsNewestFirst(out)
	return out, nil
}

func (s *BadgerStore) SaveFitnessHistory(_ context.Context, runID string, history []model.Score) error {
	payload, err := EncodeFitnessHistory(history)
	if err != nil {
		return err
	}
	return s.put(historyPrefix+runID, payload)
}

func (s *BadgerStore) GetFitnessHistory(_ context.Context, runID string) ([]model.Score, bool, error) {
	payload, ok, err := s.get(historyPrefix + runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	history, err := DecodeFitnessHistory(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode fitness history %s: %w", runID, err)
	}
	return history, true, nil
}

func (s *BadgerStore) SaveGenerationDiagnostics(_ context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	payload, err := EncodeGenerationDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	return s.put(diagnosticsPrefix+runID, payload)
}

func (s *BadgerStore) GetGenerationDiagnostics(_ context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	payload, ok, err := s.get(diagnosticsPrefix + runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	diagnostics, err := DecodeGenerationDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

func (s *BadgerStore) SaveGenerationBests(_ context.Context, runID string, bests []model.GenerationBest) error {
	payload, err := EncodeGenerationBests(bests)
	if err != nil {
		return err
	}
	return s.put(bestsPrefix+runID, payload)
}

func (s *BadgerStore) GetGenerationBests(_ context.Context, runID string) ([]model.GenerationBest, bool, error) {
	payload, ok, err := s.get(bestsPrefix + runID)
	if err != nil || !ok {
		return nil, ok, err
	}
	bests, err := DecodeGenerationBests(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode generation bests %s: %w", runID, err)
	}
	return bests, true, nil
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *BadgerStore) put(key string, payload []byte) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), payload)
	})
}

func (s *BadgerStore) get(key string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

package store

import "path/filepath"

// Store owns the five independent goleveldb directories the indexer
// writes through, laid out under db_path/newindex/ per §6.
type Store struct {
	TxStore     *Table
	History     *Table
	Cache       *Table
	Inscription *Table
	Temp        *Table
}

// Open opens (or creates) all five tables under dbPath/newindex/.
func Open(dbPath string) (*Store, error) {
	root := filepath.Join(dbPath, "newindex")

	txStore, err := OpenTable("txstore", filepath.Join(root, "txstore"))
	if err != nil {
		return nil, err
	}
	history, err := OpenTable("history", filepath.Join(root, "history"))
	if err != nil {
		return nil, err
	}
	cache, err := OpenTable("cache", filepath.Join(root, "cache"))
	if err != nil {
		return nil, err
	}
	inscription, err := OpenTable("inscription", filepath.Join(root, "inscription"))
	if err != nil {
		return nil, err
	}
	temp, err := OpenTable("temp", filepath.Join(root, "temp"))
	if err != nil {
		return nil, err
	}

	return &Store{
		TxStore:     txStore,
		History:     history,
		Cache:       cache,
		Inscription: inscription,
		Temp:        temp,
	}, nil
}

// Close closes every table. Errors are collected but every table is
// still given a chance to close.
func (s *Store) Close() error {
	var firstErr error
	for _, t := range []*Table{s.TxStore, s.History, s.Cache, s.Inscription, s.Temp} {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Flush flushes every table.
func (s *Store) Flush() error {
	for _, t := range []*Table{s.TxStore, s.History, s.Cache, s.Inscription, s.Temp} {
		if err := t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// FullCompaction runs FullCompaction on every table, each idempotent
// on its own sentinel key.
func (s *Store) FullCompaction() error {
	for _, t := range []*Table{s.TxStore, s.History, s.Cache, s.Inscription, s.Temp} {
		if err := t.FullCompaction(); err != nil {
			return err
		}
	}
	return nil
}

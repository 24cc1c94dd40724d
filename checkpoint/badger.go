package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// BadgerConfig selects where a BadgerStore keeps its data.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM; useful for tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives badger's own log lines; nil silences them.
	Logger *slog.Logger
}

// BadgerStore keeps snapshots in an embedded badger database.
type BadgerStore struct {
	db *badger.DB
	o  Options
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBadger opens (creating if needed) a badger-backed store.
func OpenBadger(cfg BadgerConfig, opts ...Option) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("checkpoint: badger path is required for a persistent store")
	}
	var bo badger.Options
	if cfg.InMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("checkpoint: create %s: %w", cfg.Path, err)
		}
		bo = badger.DefaultOptions(cfg.Path)
	}
	bo = bo.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		bo = bo.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		bo = bo.WithLogger(nil)
	}
	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open badger: %w", err)
	}

	return &BadgerStore{db: db, o: buildOptions(opts)}, nil
}

func (b *BadgerStore) key(k string) []byte { return []byte(b.o.Prefix + k) }

// Save writes s under key, with the store TTL if one is set.
func (b *BadgerStore) Save(_ context.Context, key string, s Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal: %w", err)
	}
	err = b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(b.key(key), data)
		if b.o.TTL > 0 {
			e = e.WithTTL(b.o.TTL)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("checkpoint: badger save %q: %w", key, err)
	}

	return nil
}

func (b *BadgerStore) Load(_ context.Context, key string) (Snapshot, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.key(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: badger load %q: %w", key, err)
	}
	var s Snapshot
	if err = json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("checkpoint: unmarshal %q: %w", key, err)
	}

	return s, nil
}

func (b *BadgerStore) Delete(_ context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(b.key(key))
	})
}

// List returns the stored keys (without prefix) in key order.
func (b *BadgerStore) List(_ context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: []byte(b.o.Prefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), b.o.Prefix))
		}
		return nil
	})

	return keys, err
}

// Close closes the database.
func (b *BadgerStore) Close() error { return b.db.Close() }

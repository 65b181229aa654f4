// Package localstore keeps client state on disk, in a badger database.
package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core"
	"github.com/trezcool/dissertrack/core/meeting"
)

const recentMeetingsKey = "recentMeetings"

// Store is a badger backed meeting.Persister.
type Store struct {
	db *badger.DB
}

var _ meeting.Persister = (*Store)(nil)

// Open opens the store at path, or an in-memory store when path is empty.
func Open(path string, logger core.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger})
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "opening local store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Load returns the saved recent meetings, none if nothing was saved yet.
func (s *Store) Load() ([]meeting.Meeting, error) {
	var meetings []meeting.Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(recentMeetingsKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &meetings)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading recent meetings")
	}
	return meetings, nil
}

// Save replaces the saved recent meetings.
func (s *Store) Save(meetings []meeting.Meeting) error {
	data, err := json.Marshal(meetings)
	if err != nil {
		return errors.Wrap(err, "encoding recent meetings")
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(recentMeetingsKey), data)
	})
	return errors.Wrap(err, "saving recent meetings")
}

// badgerLogger adapts a core.Logger to badger.Logger.
type badgerLogger struct {
	logger core.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

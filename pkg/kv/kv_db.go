package kv

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/theawareai/stealth/pkg/datastructure"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

const (
	historyKeyPrefix = "history/"
	userKeyPrefix    = "user/"
)

type KVDB struct {
	db *badger.DB
}

func NewKVDB(db *badger.DB) *KVDB {
	return &KVDB{db}
}

// history keys order lexicographically by creation time within one
// requester, so a reverse prefix scan yields newest first.
func historyKey(email string, createdAt time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", historyKeyPrefix, email, createdAt.UnixNano()))
}

func historyPrefix(email string) []byte {
	return []byte(historyKeyPrefix + email + "/")
}

func (k *KVDB) SaveHistory(record datastructure.HistoryRecord) error {
	val, err := encodeHistory(record)
	if err != nil {
		return err
	}

	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set(historyKey(record.Email, record.CreatedAt), val)
	})
}

// FindMostRecentHistory returns the requester's newest history record. The
// second return value is false when the requester has no history yet.
func (k *KVDB) FindMostRecentHistory(email string) (datastructure.HistoryRecord, bool, error) {
	records, err := k.FindRecentHistory(email, 1)
	if err != nil {
		return datastructure.HistoryRecord{}, false, err
	}
	if len(records) == 0 {
		return datastructure.HistoryRecord{}, false, nil
	}
	return records[0], true, nil
}

// FindRecentHistory returns up to limit records for the requester, newest
// first.
func (k *KVDB) FindRecentHistory(email string, limit int) ([]datastructure.HistoryRecord, error) {
	prefix := historyPrefix(email)
	records := make([]datastructure.HistoryRecord, 0, limit)

	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// seek past the last possible key of this prefix
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				record, err := decodeHistory(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (k *KVDB) SaveUser(user datastructure.User) error {
	val, err := encodeUser(user)
	if err != nil {
		return err
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userKeyPrefix+user.Email), val)
	})
}

func (k *KVDB) FindUserByEmail(email string) (datastructure.User, error) {
	var user datastructure.User
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + email))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			user, err = decodeUser(val)
			return err
		})
	})
	if err != nil {
		return datastructure.User{}, err
	}
	return user, nil
}

func (k *KVDB) Close() {
	k.db.Close()
}

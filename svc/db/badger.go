package db

import (
	"context"
	"encoding/binary"
	"time"

	"ghostink/pkg/domain"
	"ghostink/svc/util"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

var pastePrefix = []byte("paste/")

// Badger keeps each paste under "paste/<id>". The value starts with the
// expiry as big-endian unix seconds (8 bytes) and nanoseconds (4 bytes),
// which covers every year RFC3339 can express, followed by the content.
type Badger struct {
	db     *badger.DB
	memory bool
}

func NewBadger(dir string) (*Badger, error) {
	memory := dir == ":memory:" || dir == ""
	opts := badger.DefaultOptions(dir)
	if memory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = badgerLogger{}
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return &Badger{db: db, memory: memory}, nil
}

func pasteKey(id string) []byte {
	return append(append([]byte{}, pastePrefix...), id...)
}

const expiryHeader = 12

func encodeValue(p *domain.Paste) []byte {
	v := make([]byte, expiryHeader+len(p.Content))
	binary.BigEndian.PutUint64(v, uint64(p.ExpiresAt.Unix()))
	binary.BigEndian.PutUint32(v[8:], uint32(p.ExpiresAt.Nanosecond()))
	copy(v[expiryHeader:], p.Content)
	return v
}

func decodeExpiry(v []byte) (time.Time, error) {
	if len(v) < expiryHeader {
		return time.Time{}, errors.New("corrupt paste record")
	}
	sec := int64(binary.BigEndian.Uint64(v[:8]))
	nsec := int64(binary.BigEndian.Uint32(v[8:expiryHeader]))
	return time.Unix(sec, nsec).UTC(), nil
}

func (b *Badger) Create(ctx context.Context, p *domain.Paste) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := pasteKey(p.ID)
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return ErrDuplicateID
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, encodeValue(p))
	})
	if err == ErrDuplicateID || err == badger.ErrConflict {
		return ErrDuplicateID
	}
	return errors.Wrap(err, "db create")
}

func (b *Badger) Get(ctx context.Context, id string, now time.Time) (*domain.Paste, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p *domain.Paste
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pasteKey(id))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		exp, err := decodeExpiry(v)
		if err != nil {
			return err
		}
		p = &domain.Paste{ID: id, Content: string(v[expiryHeader:]), ExpiresAt: exp}
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, domain.ErrPasteNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "db get")
	}
	if !p.Live(now) {
		return nil, domain.ErrPasteNotFound
	}
	return p, nil
}

// DeleteExpired scans only the expiry header of each value, then
// removes the matching keys in one write batch.
func (b *Badger) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	var expired [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = pastePrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(pastePrefix); it.ValidForPrefix(pastePrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			err := item.Value(func(v []byte) error {
				exp, err := decodeExpiry(v)
				if err != nil {
					return err
				}
				if !exp.After(now) {
					expired = append(expired, item.KeyCopy(nil))
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "scan expired")
	}
	if len(expired) == 0 {
		return 0, nil
	}
	wb := b.db.NewWriteBatch()
	for _, k := range expired {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return 0, errors.Wrap(err, "batch delete")
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, errors.Wrap(err, "flush deletes")
	}
	if !b.memory {
		if err := b.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
			util.Warn().Err(err).Msg("badger value log gc failed")
		}
	}
	return len(expired), nil
}

func (b *Badger) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger closed")
	}
	return b.db.View(func(txn *badger.Txn) error { return nil })
}

func (b *Badger) Close() error {
	return b.db.Close()
}

type badgerLogger struct{}

func (badgerLogger) Errorf(f string, v ...interface{})   { util.Error().Msgf(f, v...) }
func (badgerLogger) Warningf(f string, v ...interface{}) { util.Warn().Msgf(f, v...) }
func (badgerLogger) Infof(f string, v ...interface{})    { util.Debug().Msgf(f, v...) }
func (badgerLogger) Debugf(f string, v ...interface{})   { util.Debug().Msgf(f, v...) }

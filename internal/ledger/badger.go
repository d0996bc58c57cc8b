package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

// BadgerLedger implements Ledger on an embedded BadgerDB.
type BadgerLedger struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerLedger opens (or creates) the database at dbPath.
func NewBadgerLedger(dbPath string, logger logrus.FieldLogger) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}

	return &BadgerLedger{
		db:  db,
		log: logger.WithField("component", "ledger"),
	}, nil
}

// Close closes the underlying database.
func (l *BadgerLedger) Close() error {
	l.log.Info("Closing ledger database")
	return l.db.Close()
}

func seenKey(listingID int, subscriber string) []byte {
	return []byte(fmt.Sprintf("seen:%d:%s", listingID, subscriber))
}

func skippedKey(listingID int) []byte {
	return []byte(fmt.Sprintf("skipped:%d", listingID))
}

func (l *BadgerLedger) has(key []byte) (bool, error) {
	var found bool
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("ledger lookup %s: %w", key, err)
	}
	return found, nil
}

// insertIfAbsent performs the atomic check-and-set inside one transaction.
// Conflicting concurrent transactions are retried, so exactly one caller
// observes the insert.
func (l *BadgerLedger) insertIfAbsent(key []byte) (bool, error) {
	for {
		var inserted bool
		err := l.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				inserted = false
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			inserted = true
			return txn.Set(key, nil)
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("ledger insert %s: %w", key, err)
		}
		return inserted, nil
	}
}

// HasSeen reports whether the pair exists.
func (l *BadgerLedger) HasSeen(_ context.Context, listingID int, subscriber string) (bool, error) {
	return l.has(seenKey(listingID, subscriber))
}

// MarkSeen inserts the pair if absent.
func (l *BadgerLedger) MarkSeen(_ context.Context, listingID int, subscriber string) (bool, error) {
	inserted, err := l.insertIfAbsent(seenKey(listingID, subscriber))
	if err == nil && inserted {
		l.log.WithFields(logrus.Fields{
			"listing_id": listingID,
			"subscriber": subscriber,
		}).Info("Marked listing as seen")
	}
	return inserted, err
}

// IsSkipped reports whether the listing is permanently skipped.
func (l *BadgerLedger) IsSkipped(_ context.Context, listingID int) (bool, error) {
	return l.has(skippedKey(listingID))
}

// MarkSkipped inserts the listing into the skipped set if absent.
func (l *BadgerLedger) MarkSkipped(_ context.Context, listingID int) (bool, error) {
	inserted, err := l.insertIfAbsent(skippedKey(listingID))
	if err == nil && inserted {
		l.log.WithField("listing_id", listingID).Info("Marked listing as permanently skipped")
	}
	return inserted, err
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}

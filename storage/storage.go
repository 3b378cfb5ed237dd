// Package storage is the Firestore implementation of every store interface the domain packages
// declare. Reads of missing documents return apperr.NotFound errors; every other Firestore error is
// classified with apperr.FromStore.
package storage

import (
	"context"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	c "bookingserver/collections"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Firestore caps a batch at 500 writes.
const maxBatchWrites = 500

// Store wraps a Firestore client.
type Store struct {
	client *firestore.Client
}

// New connects to Firestore in projectID. An empty credentialsFile uses application default
// credentials (or the emulator when FIRESTORE_EMULATOR_HOST is set).
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

// Close performs cleanup for closing storage connections.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping does a cheap read so health checks notice a broken connection.
func (s *Store) Ping(ctx context.Context) error {
	iter := s.client.Collection(c.ListingsID).Limit(1).Documents(ctx)
	defer iter.Stop()
	_, err := iter.Next()
	if err == iterator.Done {
		return nil
	}
	return apperr.FromStore("storage.Ping", err)
}

// get reads a single document into a new T.
func get[T any](ctx context.Context, ref *firestore.DocumentRef, op string) (*T, error) {
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	return decode[T](snap, op)
}

func decode[T any](snap *firestore.DocumentSnapshot, op string) (*T, error) {
	var v T
	if err := snap.DataTo(&v); err != nil {
		return nil, apperr.Wrap(apperr.TransientFetch, op, "unreadable document", err)
	}
	return &v, nil
}

// getAll runs a query and decodes every result, handing each document id to setID.
func getAll[T any](ctx context.Context, q firestore.Query, op string, setID func(*T, string)) ([]T, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	out := []T{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperr.FromStore(op, err)
		}
		v, err := decode[T](doc, op)
		if err != nil {
			log.Printf("%s: skipping %s: %v", op, doc.Ref.Path, err)
			continue
		}
		setID(v, doc.Ref.ID)
		out = append(out, *v)
	}
	return out, nil
}

// createTransaction adds the transaction record to tx, assigning an id when it has none.
func (s *Store) createTransaction(tx *firestore.Transaction, record *c.Transaction) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return tx.Create(s.client.Collection(c.TransactionsID).Doc(record.ID), record)
}

// deleteQuery deletes every document the query returns, in batches.
func (s *Store) deleteQuery(ctx context.Context, q firestore.Query) error {
	for {
		docs, err := q.Limit(maxBatchWrites).Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		batch := s.client.Batch()
		for _, doc := range docs {
			batch.Delete(doc.Ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return err
		}
		if len(docs) < maxBatchWrites {
			return nil
		}
	}
}

package storage

import (
	"context"
	"errors"

	"bookingserver/apperr"
	c "bookingserver/collections"
	"bookingserver/fieldcodes"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Wallet reads wallets/{uid}.
func (s *Store) Wallet(ctx context.Context, uid string) (*c.Wallet, error) {
	return get[c.Wallet](ctx, s.client.Collection(c.WalletsID).Doc(uid), "storage.Wallet")
}

func (s *Store) walletInTx(tx *firestore.Transaction, ref *firestore.DocumentRef, uid string) (*c.Wallet, error) {
	snap, err := tx.Get(ref)
	if status.Code(err) == codes.NotFound {
		return &c.Wallet{UID: uid, Currency: c.DefaultCurrency}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode[c.Wallet](snap, "storage.walletInTx")
}

// UpdateWallet applies fn to the wallet (zero if it does not exist yet) and writes it with the
// returned transaction record in one Firestore transaction.
func (s *Store) UpdateWallet(ctx context.Context, uid string, fn c.WalletMutation) (*c.Wallet, error) {
	const op = "storage.UpdateWallet"
	ref := s.client.Collection(c.WalletsID).Doc(uid)

	var result *c.Wallet
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		w, err := s.walletInTx(tx, ref, uid)
		if err != nil {
			return err
		}
		result = w

		record, err := fn(w)
		if err != nil {
			return err
		}
		if err := tx.Set(ref, w); err != nil {
			return err
		}
		if record != nil {
			return s.createTransaction(tx, record)
		}
		return nil
	})
	if errors.Is(err, apperr.ErrNoChange) {
		return result, nil
	}
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	return result, nil
}

// Transactions lists a user's transactions, newest first.
func (s *Store) Transactions(ctx context.Context, uid string, limit int) ([]c.Transaction, error) {
	q := s.client.Collection(c.TransactionsID).
		Where(fieldcodes.UserIDKey, "==", uid).
		OrderBy(fieldcodes.CreatedAtKey, firestore.Desc).
		Limit(limit)
	return getAll(ctx, q, "storage.Transactions", func(t *c.Transaction, id string) { t.ID = id })
}

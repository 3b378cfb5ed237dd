// Package wallet holds each user's prepaid balance.
package wallet

import (
	"context"
	"math"

	"bookingserver/apperr"
	log "bookingserver/cloudlog"
	"bookingserver/clock"
	"bookingserver/collections"
	"bookingserver/remotejob"
)

// TransactionLimit is how many transactions the wallet page lists.
const TransactionLimit = 50

// MaxTopUp bounds a single top-up.
const MaxTopUp = 100000

// Store is the part of storage.Store the service needs.
type Store interface {
	Wallet(ctx context.Context, uid string) (*collections.Wallet, error)
	UpdateWallet(ctx context.Context, uid string, fn collections.WalletMutation) (*collections.Wallet, error)
	Transactions(ctx context.Context, uid string, limit int) ([]collections.Transaction, error)
}

// Service implements the wallet operations.
type Service struct {
	store  Store
	events remotejob.Sink
	clk    clock.Clock
}

// NewService returns a Service. events may be nil.
func NewService(store Store, events remotejob.Sink, clk clock.Clock) *Service {
	if events == nil {
		events = remotejob.Discard{}
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{store: store, events: events, clk: clk}
}

// Get returns uid's wallet. A user who never topped up has an empty PHP wallet.
func (s *Service) Get(ctx context.Context, uid string) (*collections.Wallet, error) {
	w, err := s.store.Wallet(ctx, uid)
	if apperr.IsNotFound(err) {
		return &collections.Wallet{UID: uid, Currency: collections.DefaultCurrency}, nil
	}
	if err != nil {
		return nil, apperr.FromStore("wallet.Get", err)
	}
	return w, nil
}

// TopUp adds amount to uid's balance and records it, in one transaction.
func (s *Service) TopUp(ctx context.Context, uid string, amount float64) (*collections.Wallet, error) {
	const op = "wallet.TopUp"
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, apperr.E(apperr.InvalidInput, op, "enter an amount greater than zero")
	}
	if amount > MaxTopUp {
		return nil, apperr.E(apperr.InvalidInput, op, "amount is over the top-up limit")
	}
	amount = math.Round(amount*100) / 100

	now := s.clk.Now().UTC()
	w, err := s.store.UpdateWallet(ctx, uid, func(w *collections.Wallet) (*collections.Transaction, error) {
		w.Balance = math.Round((w.Balance+amount)*100) / 100
		w.UpdatedAt = now
		return &collections.Transaction{
			UserID:    uid,
			Type:      collections.TransactionTopUp,
			Amount:    amount,
			Currency:  w.Currency,
			Status:    string(collections.PaymentCompleted),
			CreatedAt: now,
		}, nil
	})
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	log.Printf("wallet of %s topped up by %.2f", uid, amount)
	s.events.Publish(ctx, remotejob.Event{
		Type:     remotejob.WalletTopUp,
		UserID:   uid,
		Amount:   amount,
		Currency: w.Currency,
		At:       now,
	})
	return w, nil
}

// Transactions lists uid's money movements, newest first.
func (s *Service) Transactions(ctx context.Context, uid string) ([]collections.Transaction, error) {
	records, err := s.store.Transactions(ctx, uid, TransactionLimit)
	return records, apperr.FromStore("wallet.Transactions", err)
}

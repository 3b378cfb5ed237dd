// Package payment settles bookings, either through PayPal's hosted checkout or from the guest's
// wallet. Settling a booking that is already paid changes nothing, so a repeated PayPal return
// or a double-clicked button never writes twice.
package payment

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"bookingserver/apperr"
	"bookingserver/booking"
	log "bookingserver/cloudlog"
	"bookingserver/clock"
	"bookingserver/collections"
	"bookingserver/remotejob"
)

// BookingCookie remembers which booking a PayPal checkout was for, for returns that come back
// without the booking id.
const BookingCookie = "paypalBookingId"

// Store is the part of storage.Store the service needs.
type Store interface {
	Booking(ctx context.Context, id string) (*collections.Booking, error)
	UpdateBooking(ctx context.Context, id string, fn collections.BookingMutation) (*collections.Booking, error)
	PayFromWallet(ctx context.Context, bookingID, uid string, fn collections.WalletPaymentMutation) (*collections.Booking, *collections.Wallet, error)
}

// Options configures the PayPal redirect. Nothing secret belongs here; all of it ends up in the
// browser's address bar.
type Options struct {
	ClientID    string
	CheckoutURL string
	ReturnURL   string
	CancelURL   string
}

// Service implements the payment operations.
type Service struct {
	store  Store
	events remotejob.Sink
	clk    clock.Clock
	opts   Options
}

// NewService returns a Service. events may be nil.
func NewService(store Store, events remotejob.Sink, clk clock.Clock, opts Options) *Service {
	if events == nil {
		events = remotejob.Discard{}
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Service{store: store, events: events, clk: clk, opts: opts}
}

// Result is the outcome of settling a booking.
type Result struct {
	Booking *collections.Booking `json:"booking"`
	Wallet  *collections.Wallet  `json:"wallet,omitempty"`
	// AlreadyProcessed is set when the booking had been paid before this call; nothing was written.
	AlreadyProcessed bool `json:"alreadyProcessed"`
}

func checkPayable(op string, b *collections.Booking, uid string) error {
	if b.GuestID != uid {
		return apperr.E(apperr.PermissionDenied, op, "only the guest can pay for this booking")
	}
	if b.Status == collections.BookingCancelled {
		return apperr.E(apperr.Conflict, op, "this booking was cancelled")
	}
	return nil
}

// Checkout returns the PayPal page to send the guest to.
func (s *Service) Checkout(ctx context.Context, uid, bookingID string) (string, error) {
	const op = "payment.Checkout"
	b, err := s.store.Booking(ctx, bookingID)
	if err != nil {
		return "", apperr.FromStore(op, err)
	}
	if err := checkPayable(op, b, uid); err != nil {
		return "", err
	}
	if b.PaymentStatus == collections.PaymentCompleted {
		return "", apperr.E(apperr.Conflict, op, "this booking is already paid")
	}

	u, err := url.Parse(s.opts.CheckoutURL)
	if err != nil {
		return "", apperr.Wrap(apperr.Unknown, op, "payments are not available", err)
	}
	q := u.Query()
	q.Set("client-id", s.opts.ClientID)
	q.Set("bookingId", b.ID)
	q.Set("amount", strconv.FormatFloat(b.Total, 'f', 2, 64))
	q.Set("currency", b.Currency)
	q.Set("return", s.opts.ReturnURL+"?bookingId="+url.QueryEscape(b.ID))
	q.Set("cancel", s.opts.CancelURL+"?bookingId="+url.QueryEscape(b.ID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ReturnParams are what PayPal sends back to the return URL.
type ReturnParams struct {
	BookingID string
	PaymentID string
	PayerID   string
}

func paymentRecord(b *collections.Booking, method, paymentID string, at time.Time) *collections.Transaction {
	return &collections.Transaction{
		UserID:    b.GuestID,
		Type:      collections.TransactionPayment,
		Amount:    b.Total,
		Currency:  b.Currency,
		BookingID: b.ID,
		Method:    method,
		PaymentID: paymentID,
		Status:    string(collections.PaymentCompleted),
		CreatedAt: at,
	}
}

func markPaid(b *collections.Booking, method, paymentID, payerID string, at time.Time) {
	if collections.CanTransition(b.Status, collections.BookingConfirmed) {
		b.Status = collections.BookingConfirmed
	}
	b.PaymentStatus = collections.PaymentCompleted
	b.PaymentMethod = method
	b.PaymentID = paymentID
	b.PayerID = payerID
	b.PaidAt = &at
	b.UpdatedAt = at
}

// Complete confirms a booking after PayPal sends the guest back.
func (s *Service) Complete(ctx context.Context, uid string, p ReturnParams) (*Result, error) {
	const op = "payment.Complete"
	if p.BookingID == "" {
		return nil, apperr.E(apperr.InvalidInput, op, "missing booking")
	}
	if p.PaymentID == "" {
		return nil, apperr.E(apperr.InvalidInput, op, "missing payment reference")
	}

	now := s.clk.Now().UTC()
	var already bool
	b, err := s.store.UpdateBooking(ctx, p.BookingID, func(b *collections.Booking) (*collections.Transaction, error) {
		already = false
		if b.GuestID == uid && b.PaymentStatus == collections.PaymentCompleted {
			already = true
			return nil, apperr.ErrNoChange
		}
		if err := checkPayable(op, b, uid); err != nil {
			return nil, err
		}
		markPaid(b, collections.MethodPayPal, p.PaymentID, p.PayerID, now)
		return paymentRecord(b, collections.MethodPayPal, p.PaymentID, now), nil
	})
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	if already {
		log.Printf("paypal return for %s already processed", p.BookingID)
		return &Result{Booking: b, AlreadyProcessed: true}, nil
	}
	s.paid(ctx, b, collections.MethodPayPal, now)
	return &Result{Booking: b}, nil
}

// Abandon records that the guest backed out of the PayPal page. A paid booking is left alone.
func (s *Service) Abandon(ctx context.Context, uid, bookingID string) (*collections.Booking, error) {
	const op = "payment.Abandon"
	now := s.clk.Now().UTC()
	b, err := s.store.UpdateBooking(ctx, bookingID, func(b *collections.Booking) (*collections.Transaction, error) {
		if b.GuestID != uid {
			return nil, apperr.E(apperr.PermissionDenied, op, "only the guest can pay for this booking")
		}
		if b.PaymentStatus == collections.PaymentCompleted || b.PaymentStatus == collections.PaymentFailed {
			return nil, apperr.ErrNoChange
		}
		b.PaymentStatus = collections.PaymentFailed
		b.UpdatedAt = now
		return nil, nil
	})
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	return b, nil
}

// PayWithWallet settles a booking from the guest's wallet. The balance never goes below zero.
func (s *Service) PayWithWallet(ctx context.Context, uid, bookingID string) (*Result, error) {
	const op = "payment.PayWithWallet"
	now := s.clk.Now().UTC()
	var already bool
	b, w, err := s.store.PayFromWallet(ctx, bookingID, uid, func(b *collections.Booking, w *collections.Wallet) (*collections.Transaction, error) {
		already = false
		if b.GuestID == uid && b.PaymentStatus == collections.PaymentCompleted {
			already = true
			return nil, apperr.ErrNoChange
		}
		if err := checkPayable(op, b, uid); err != nil {
			return nil, err
		}
		if w.Currency != b.Currency {
			return nil, apperr.E(apperr.Conflict, op, "wallet currency does not match the booking")
		}
		if w.Balance < b.Total {
			return nil, apperr.E(apperr.Conflict, op, "insufficient wallet balance")
		}
		w.Balance = booking.RoundMoney(w.Balance - b.Total)
		w.UpdatedAt = now
		markPaid(b, collections.MethodWallet, "", "", now)
		return paymentRecord(b, collections.MethodWallet, "", now), nil
	})
	if err != nil {
		return nil, apperr.FromStore(op, err)
	}
	if already {
		return &Result{Booking: b, Wallet: w, AlreadyProcessed: true}, nil
	}
	s.paid(ctx, b, collections.MethodWallet, now)
	return &Result{Booking: b, Wallet: w}, nil
}

func (s *Service) paid(ctx context.Context, b *collections.Booking, method string, at time.Time) {
	log.Printf("booking %s paid by %s", b.ID, method)
	s.events.Publish(ctx, remotejob.Event{
		Type:      remotejob.BookingPaid,
		UserID:    b.GuestID,
		BookingID: b.ID,
		Amount:    b.Total,
		Currency:  b.Currency,
		Method:    method,
		At:        at,
	})
}

// Package remotejob encapsulates sending messages to remote services such as Pub/Sub.
//
// Marketplace events are published after the Firestore write they describe has committed.
// Publishing is best effort: a failure is logged and never undoes or fails the write.
package remotejob

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	log "bookingserver/cloudlog"

	"cloud.google.com/go/pubsub"
)

// Event types.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
	BookingPaid      = "booking.paid"
	WalletTopUp      = "wallet.topup"
)

const (
	// Outstanding publish results we wait on at once; past this, results are not tracked.
	maxRequests = 100

	resultTimeout = 30 * time.Second
)

// Event is the JSON payload of a published message.
type Event struct {
	Type      string    `json:"type"`
	UserID    string    `json:"userId"`
	BookingID string    `json:"bookingId,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	Method    string    `json:"method,omitempty"`
	At        time.Time `json:"at"`
}

// Sink receives events. *Publisher implements it.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// Discard is a Sink that drops every event.
type Discard struct{}

// Publish implements Sink.
func (Discard) Publish(context.Context, Event) {}

// Publisher sends events to one Pub/Sub topic.
type Publisher struct {
	client   *pubsub.Client
	topic    *pubsub.Topic
	requests *requestPool
}

// New connects to Pub/Sub. The topic must already exist.
func New(ctx context.Context, projectID, topicID string) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		client:   client,
		topic:    client.Topic(topicID),
		requests: newRequestPool(maxRequests),
	}, nil
}

// Publish queues ev. A nil Publisher drops it.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("error marshalling event %#v: %v", ev, err)
		return
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"type": ev.Type},
	})
	p.requests.add(ev.Type, result)
}

// Close flushes outstanding messages and releases the client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.topic.Stop()
	p.requests.wait()
	return p.client.Close()
}

// requestPool waits on publish results so failures reach the log.
type requestPool struct {
	slots chan struct{}
	wg    sync.WaitGroup
}

func newRequestPool(size int) *requestPool {
	return &requestPool{slots: make(chan struct{}, size)}
}

func (rp *requestPool) add(eventType string, result *pubsub.PublishResult) {
	select {
	case rp.slots <- struct{}{}:
	default:
		log.Printf("publish pool full, not tracking %s", eventType)
		return
	}
	rp.wg.Add(1)
	go func() {
		defer func() {
			<-rp.slots
			rp.wg.Done()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), resultTimeout)
		defer cancel()
		if _, err := result.Get(ctx); err != nil {
			log.Printf("publishing %s failed: %v", eventType, err)
		}
	}()
}

func (rp *requestPool) wait() {
	rp.wg.Wait()
}

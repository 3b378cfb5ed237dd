package remotejob

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestNilPublisher(t *testing.T) {
	var p *Publisher
	assert.NotPanics(t, func() {
		p.Publish(context.Background(), Event{Type: BookingCreated})
		assert.NoError(t, p.Close())
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	topic, err := client.CreateTopic(ctx, "marketplace-events")
	require.NoError(t, err)

	p := &Publisher{client: client, topic: topic, requests: newRequestPool(maxRequests)}
	p.Publish(ctx, Event{Type: WalletTopUp, UserID: "G1", Amount: 500, Currency: "PHP"})
	p.requests.wait()

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, WalletTopUp, msgs[0].Attributes["type"])
	assert.Contains(t, string(msgs[0].Data), `"userId":"G1"`)
	assert.Contains(t, string(msgs[0].Data), `"amount":500`)
}

package relay

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"auction-relay/internal/domain"
	"auction-relay/internal/events"
)

// startContainer runs image and returns host:port of its single exposed port.
func startContainer(t *testing.T, image, port string, waitFor wait.Strategy) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   waitFor,
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisPublisher(t *testing.T) {
	addr := startContainer(t, "redis:7-alpine", "6379/tcp",
		wait.ForLog("Ready to accept connections").WithStartupTimeout(60*time.Second))
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: addr})
	defer sub.Close()
	ps := sub.Subscribe(ctx, RedisChannel, RedisKindChannel(domain.EventBidPlaced))
	defer ps.Close()
	_, err := ps.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	pub, err := NewRedisPublisher(ctx, RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Publish(ctx, testEvent()))

	channels := map[string]bool{}
	for i := 0; i < 2; i++ {
		msgCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		msg, err := ps.ReceiveMessage(msgCtx)
		cancel()
		require.NoError(t, err)
		channels[msg.Channel] = true

		var p events.Payload
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &p))
		assert.Equal(t, "4", p.AuctionID)
		assert.Equal(t, "10000000000000000", p.Amount)
	}
	assert.True(t, channels[RedisChannel])
	assert.True(t, channels["auction:events:BidPlaced"])
}

func TestNATSPublisher(t *testing.T) {
	addr := startContainer(t, "nats:2.10-alpine", "4222/tcp",
		wait.ForLog("Server is ready").WithStartupTimeout(60*time.Second))
	url := "nats://" + addr

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 4)
	s, err := sub.ChanSubscribe(NATSSubjectPrefix+"*", msgs)
	require.NoError(t, err)
	defer s.Unsubscribe()
	require.NoError(t, sub.Flush())

	pub, err := NewNATSPublisher(url, testLogger())
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Publish(context.Background(), testEvent()))

	select {
	case msg := <-msgs:
		assert.Equal(t, "auction.events.BidPlaced", msg.Subject)
		var p events.Payload
		require.NoError(t, json.Unmarshal(msg.Data, &p))
		assert.Equal(t, "e1", p.EventID)
		assert.Equal(t, uint64(99), p.BlockNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("no NATS message received")
	}
}

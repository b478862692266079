package databus

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"moff.io/wallet-modal/internal/chains"
	"moff.io/wallet-modal/internal/connector"
	"moff.io/wallet-modal/internal/session"
)

func testWallet() *connector.Descriptor {
	return &connector.Descriptor{
		ID:      "test",
		Display: &connector.Display{Logo: "test.svg", Name: "Test"},
		Connect: func(context.Context, interface{}, connector.Options) (*connector.Result, error) {
			return &connector.Result{
				Provider: "provider",
				Signer: chains.NewSigner("0xABC", chains.BalanceFunc(func(context.Context, string) (*big.Int, error) {
					return big.NewInt(0), nil
				})),
				GetNetwork: func(context.Context) (*connector.Network, error) {
					return &connector.Network{ChainID: 56}, nil
				},
				GetAccounts: func(context.Context) (connector.Accounts, error) {
					return connector.Accounts{"0xABC"}, nil
				},
			}, nil
		},
	}
}

func drain(db *DataBus) []*ConnectionEvent {
	var out []*ConnectionEvent
	for {
		select {
		case e := <-db.queue:
			out = append(out, e.(*ConnectionEvent))
		default:
			return out
		}
	}
}

func types(events []*ConnectionEvent) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestWatchQueuesLifecycleEvents(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	db, err := New(producer, "events", 1)
	require.NoError(t, err)

	s := session.New(session.Options{SyncRate: time.Hour})
	defer s.Close()
	unsubscribe := db.Watch(s)
	defer unsubscribe()

	_, err = s.Connect(context.Background(), testWallet())
	require.NoError(t, err)

	events := drain(db)
	assert.ElementsMatch(t, []EventType{ChainChanged, AccountChanged, BalanceChanged, Connected}, types(events))
	for _, e := range events {
		assert.Equal(t, s.ID(), e.SessionID)
		assert.Equal(t, "events", e.Topic())
		assert.NotZero(t, e.ID)
	}
	for _, e := range events {
		if e.Type == Connected {
			assert.True(t, e.Connection.IsConnected)
			require.NotNil(t, e.Connection.ChainID)
			assert.Equal(t, uint64(56), *e.Connection.ChainID)
		}
	}

	s.Disconnect()
	assert.Equal(t, []EventType{Disconnected}, types(drain(db)))
	require.NoError(t, db.Close())
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	db, err := New(producer, "events", 1)
	require.NoError(t, err)

	s := session.New(session.Options{SyncRate: time.Hour})
	defer s.Close()
	db.Watch(s)()

	_, err = s.Connect(context.Background(), testWallet())
	require.NoError(t, err)
	assert.Empty(t, drain(db))
	require.NoError(t, db.Close())
}

func TestStartPublishesQueuedEvents(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	sent := make(chan []byte, 1)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		sent <- val
		return nil
	})
	db, err := New(producer, "events", 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	db.Start(ctx)

	s := session.New(session.Options{})
	defer s.Close()
	db.enqueue(db.event(s, Disconnected))

	select {
	case raw := <-sent:
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "disconnected", got["type"])
		assert.Equal(t, s.ID(), got["session_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
	}
	cancel()
	require.NoError(t, db.Close())
}

func TestPublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	db, err := New(producer, "events", 3)
	require.NoError(t, err)

	err = db.PublishRaw("events", []byte("x"))
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.NoError(t, db.PublishRaw("events", nil))
	require.NoError(t, db.Close())
}

func TestBadNodeID(t *testing.T) {
	_, err := New(mocks.NewSyncProducer(t, nil), "events", -1)
	assert.Error(t, err)
}

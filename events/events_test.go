package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	mu       sync.Mutex
	msgs     chan Message
	fail     bool
	attempts int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{msgs: make(chan Message, 8)}
}

func (m *memoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	m.attempts++
	fail := m.fail
	m.mu.Unlock()
	if fail {
		return "", errors.New("broker down")
	}
	m.msgs <- Message{ID: "m1", Data: data, Attributes: attrs}
	return "m1", nil
}

func (m *memoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-m.msgs:
			_ = handler(ctx, msg)
		}
	}
}

func (m *memoryBackend) Close() error { return nil }

func TestBusDeliversLocallyWithoutBackend(t *testing.T) {
	bus := NewBus(nil, "", nil)
	var got []Event
	cancel := bus.Subscribe(func(ev Event) { got = append(got, ev) })

	bus.Publish(context.Background(), Event{Type: PostCreated, TargetID: "p1"})
	require.Len(t, got, 1)
	assert.Equal(t, PostCreated, got[0].Type)
	assert.False(t, got[0].At.IsZero())

	cancel()
	bus.Publish(context.Background(), Event{Type: PostLiked})
	assert.Len(t, got, 1)
}

func TestBusRelaysThroughBackend(t *testing.T) {
	backend := newMemoryBackend()
	bus := NewBus(backend, "test", nil)

	received := make(chan Event, 1)
	bus.Subscribe(func(ev Event) { received <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Run(ctx)

	bus.Publish(context.Background(), Event{Type: CommentCreated, TargetID: "c1"})

	select {
	case ev := <-received:
		assert.Equal(t, CommentCreated, ev.Type)
		assert.Equal(t, "c1", ev.TargetID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not relayed")
	}
}

func TestBusFallsBackWhenBrokerFails(t *testing.T) {
	backend := newMemoryBackend()
	backend.fail = true
	bus := NewBus(backend, "test", nil)

	var got []Event
	bus.Subscribe(func(ev Event) { got = append(got, ev) })
	bus.Publish(context.Background(), Event{Type: PostShared})

	require.Len(t, got, 1)
	assert.Equal(t, 1, backend.attempts)
}

func TestHubStreamsEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	stop := make(chan struct{})
	defer close(stop)
	go hub.Run(stop)

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(Event{Type: PostFlagged, TargetID: "p9"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, PostFlagged, ev.Type)
	assert.Equal(t, "p9", ev.TargetID)
}

func TestHubSurvivesClientChurnDuringBroadcast(t *testing.T) {
	hub := NewHub(nil, nil)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		hub.Run(stop)
		close(done)
	}()

	churnDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-churnDone:
				return
			default:
				hub.Broadcast(Event{Type: PostLiked, TargetID: "p1"})
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c := hub.add(nil)
				hub.remove(c)
			}
		}()
	}
	wg.Wait()
	close(churnDone)

	assert.Zero(t, hub.ClientCount())
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
}

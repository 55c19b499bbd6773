package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/gyaneshwarpardhi/caseflow/internal/config"
	"github.com/gyaneshwarpardhi/caseflow/internal/event"
)

type fakeToken struct {
	ok  bool
	err error
}

func (t *fakeToken) Wait() bool                     { return t.ok }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.ok }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakeSender struct {
	mu    sync.Mutex
	msgs  []published
	token *fakeToken
}

func (f *fakeSender) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, retain: retained, payload: payload.([]byte)})
	return f.token
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func TestSend(t *testing.T) {
	fs := &fakeSender{token: &fakeToken{ok: true}}
	p := New(fs, config.MQTTConf{Topic: "caseflow/events/", QoS: 1, Retain: true})

	ev := event.New(event.NodeAdded, "editor", "case_1", nil)
	if err := p.Send(ev); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(fs.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fs.msgs))
	}
	m := fs.msgs[0]
	if m.topic != "caseflow/events/node_added" || m.qos != 1 || !m.retain {
		t.Errorf("unexpected message %+v", m)
	}
	var got event.Event
	if err := json.Unmarshal(m.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.ID != ev.ID || got.NodeID != "case_1" {
		t.Errorf("expected %+v, got %+v", ev, got)
	}
}

func TestSend_Failures(t *testing.T) {
	cases := []struct {
		name  string
		token *fakeToken
	}{
		{name: "timeout", token: &fakeToken{ok: false}},
		{name: "broker error", token: &fakeToken{ok: true, err: errors.New("not authorized")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := New(&fakeSender{token: tc.token}, config.MQTTConf{Topic: "t"})
			if err := p.Send(event.New(event.NodeAdded, "editor", "", nil)); err == nil {
				t.Fatal("expected an error")
			}
			if sent, failed := p.Stats(); sent != 0 || failed != 1 {
				t.Errorf("expected 0 sent 1 failed, got %d %d", sent, failed)
			}
		})
	}
}

func TestRun_ForwardsBusEvents(t *testing.T) {
	fs := &fakeSender{token: &fakeToken{ok: true}}
	p := New(fs, config.MQTTConf{Topic: "caseflow"})
	bus := event.NewBus(10, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, bus)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("publisher never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	bus.Publish(event.New(event.RootChanged, "editor", "case_1", nil))
	bus.Publish(event.New(event.GraphCleared, "editor", "", nil))

	for fs.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 messages, got %d", fs.count())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	if bus.SubscriberCount() != 0 {
		t.Errorf("expected unsubscribe on exit, got %d subscribers", bus.SubscriberCount())
	}
}

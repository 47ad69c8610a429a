package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/button-sensor/internal/debounce"
	"github.com/sweeney/button-sensor/internal/logic"
)

func TestTopics(t *testing.T) {
	if got := EventTopic("home/buttons", "door"); got != "home/buttons/events/door" {
		t.Errorf("EventTopic: got %q", got)
	}
	if got := SystemTopic("home/buttons"); got != "home/buttons/system" {
		t.Errorf("SystemTopic: got %q", got)
	}
}

func TestFormatPayload(t *testing.T) {
	event := logic.Event{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 5000000, time.UTC),
		Input:     "door",
		Edge:      debounce.Rising,
		State:     logic.StateHigh,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Input.Name != "door" {
		t.Errorf("unexpected name: %s", parsed.Input.Name)
	}
	if parsed.Input.Timestamp != "2026-02-02T22:18:12.005Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Input.Timestamp)
	}
	if parsed.Input.Edge != "RISING" {
		t.Errorf("unexpected edge: %s", parsed.Input.Edge)
	}
	if parsed.Input.State != "HIGH" {
		t.Errorf("unexpected state: %s", parsed.Input.State)
	}
}

func TestFormatPayloadFallingEdge(t *testing.T) {
	payload, err := FormatPayload(logic.Event{
		Timestamp: time.Now(),
		Input:     "bell",
		Edge:      debounce.Falling,
		State:     logic.StateLow,
	})
	if err != nil {
		t.Fatal(err)
	}
	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Input.Edge != "FALLING" || parsed.Input.State != "LOW" {
		t.Errorf("got edge=%s state=%s", parsed.Input.Edge, parsed.Input.State)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 0, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"system":{"timestamp":"2026-02-02T22:00:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != want {
		t.Errorf("got %s, want %s", payload, want)
	}
}

func TestFormatSystemPayloadNoTimestamp(t *testing.T) {
	payload, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	if string(payload) != `{"system":{"event":"OFFLINE"}}` {
		t.Errorf("got %s", payload)
	}
}

func TestFormatSystemPayloadRaw(t *testing.T) {
	raw := []byte(`{"status":{}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	if err := f.Publish(logic.Event{Input: "door", Edge: debounce.Rising}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.Events) != 1 || len(f.Payloads) != 1 {
		t.Errorf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if names := f.SystemEventNames(); len(names) != 1 || names[0] != "STARTUP" {
		t.Errorf("unexpected system events: %v", names)
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.Publish(logic.Event{}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected nothing recorded on error")
	}
}

// fakeToken is a completed paho token.
type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.pending {
		close(ch)
	}
	return ch
}

// fakeClient implements the parts of paho.Client the publisher uses.
type fakeClient struct {
	paho.Client
	open         bool
	publishErr   error
	hang         bool
	sent         []bufferedMsg
	disconnected bool
	// onCheck, if set, runs once inside IsConnectionOpen after the result
	// has been read.
	onCheck func()
}

func (c *fakeClient) IsConnectionOpen() bool {
	open := c.open
	if f := c.onCheck; f != nil {
		c.onCheck = nil
		f()
	}
	return open
}
func (c *fakeClient) IsConnected() bool      { return c.open }
func (c *fakeClient) Disconnect(uint)        { c.disconnected = true; c.open = false }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	if c.hang {
		return &fakeToken{pending: true}
	}
	if c.publishErr != nil {
		return &fakeToken{err: c.publishErr}
	}
	c.sent = append(c.sent, bufferedMsg{topic: topic, payload: payload.([]byte), qos: qos, retained: retained})
	return &fakeToken{}
}

func newTestPublisher(open bool) (*RealPublisher, *fakeClient) {
	c := &fakeClient{open: open}
	p := newPublisher(c, Options{TopicPrefix: "home/buttons", BufferSize: 4}, discardLogger())
	return p, c
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	p, c := newTestPublisher(true)

	if err := p.Publish(logic.Event{Input: "door", Edge: debounce.Rising, State: logic.StateHigh}); err != nil {
		t.Fatal(err)
	}
	if err := p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true}); err != nil {
		t.Fatal(err)
	}

	if len(c.sent) != 2 {
		t.Fatalf("expected 2 messages sent, got %d", len(c.sent))
	}
	if c.sent[0].topic != "home/buttons/events/door" || c.sent[0].qos != 0 || c.sent[0].retained {
		t.Errorf("unexpected event message: %+v", c.sent[0])
	}
	if c.sent[1].topic != "home/buttons/system" || c.sent[1].qos != 1 || !c.sent[1].retained {
		t.Errorf("unexpected system message: %+v", c.sent[1])
	}
	if !p.IsConnected() {
		t.Error("expected IsConnected=true")
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	p, c := newTestPublisher(false)

	for _, in := range []string{"a", "b", "c"} {
		if err := p.Publish(logic.Event{Input: in, Edge: debounce.Falling}); err != nil {
			t.Fatalf("publish while offline should not fail: %v", err)
		}
	}
	if len(c.sent) != 0 {
		t.Fatalf("nothing should be sent while offline, got %d", len(c.sent))
	}
	if p.Buffered() != 3 {
		t.Fatalf("expected 3 buffered, got %d", p.Buffered())
	}

	// First connection replays in order, no reconnect announcement
	c.open = true
	p.onConnect()
	if p.Buffered() != 0 {
		t.Errorf("buffer should be empty after replay, got %d", p.Buffered())
	}
	if len(c.sent) != 3 {
		t.Fatalf("expected 3 replayed, got %d", len(c.sent))
	}
	for i, in := range []string{"a", "b", "c"} {
		if c.sent[i].topic != EventTopic("home/buttons", in) {
			t.Errorf("replay %d: got topic %s", i, c.sent[i].topic)
		}
	}
}

func TestRealPublisherConnectDuringPublish(t *testing.T) {
	p, c := newTestPublisher(false)

	// The connection comes up right after publish sees it closed. The
	// connect handler must still replay the message.
	done := make(chan struct{})
	c.onCheck = func() {
		c.open = true
		go func() {
			p.onConnect()
			close(done)
		}()
	}

	if err := p.Publish(logic.Event{Input: "door", Edge: debounce.Rising}); err != nil {
		t.Fatal(err)
	}
	<-done

	if p.Buffered() != 0 {
		t.Errorf("buffer should be empty after connect, got %d", p.Buffered())
	}
	if len(c.sent) != 1 || c.sent[0].topic != EventTopic("home/buttons", "door") {
		t.Errorf("expected the event to be replayed, got %+v", c.sent)
	}
}

func TestRealPublisherAnnouncesReconnect(t *testing.T) {
	p, c := newTestPublisher(true)
	p.onConnect()
	if len(c.sent) != 0 {
		t.Fatalf("first connect should send nothing, got %d", len(c.sent))
	}

	c.open = false
	p.PublishSystem(SystemEvent{Event: "HEARTBEAT"})
	c.open = true
	p.onConnect()

	if len(c.sent) != 2 {
		t.Fatalf("expected replay + RECONNECTED, got %d", len(c.sent))
	}
	var sp SystemPayload
	if err := json.Unmarshal(c.sent[1].payload, &sp); err != nil {
		t.Fatal(err)
	}
	if sp.System.Event != "RECONNECTED" {
		t.Errorf("expected RECONNECTED, got %s", sp.System.Event)
	}
}

func TestRealPublisherErrors(t *testing.T) {
	p, c := newTestPublisher(true)
	c.publishErr = errors.New("broker said no")
	if err := p.Publish(logic.Event{Input: "door"}); err == nil {
		t.Error("expected publish error")
	}

	c.publishErr = nil
	c.hang = true
	if err := p.PublishSystem(SystemEvent{Event: "HEARTBEAT"}); err == nil {
		t.Error("expected timeout error")
	}
}

func TestRealPublisherClose(t *testing.T) {
	p, c := newTestPublisher(true)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !c.disconnected {
		t.Error("expected Disconnect to be called")
	}
}

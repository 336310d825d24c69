package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calibtrack/internal/model"
	"calibtrack/internal/suggest"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newToken(err error, complete bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu    sync.Mutex
	msgs  []published
	token func() mqtt.Token
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, published{topic, qos, retained, payload.([]byte)})
	if c.token != nil {
		return c.token()
	}
	return newToken(nil, true)
}

func decision() suggest.Decision {
	return suggest.Decision{
		ToolSerialID: "SN/001",
		Description:  "Torque Wrench",
		State:        model.StateAccepted,
		RiskLevel:    model.RiskDrifting,
		Date:         time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		EventID:      "cal-SN001-1",
	}
}

func TestMQTTNotify(t *testing.T) {
	c := &fakeClient{}
	m := newMQTT(c, MQTTConfig{TopicPrefix: "plant/calib/", QoS: 1, Retained: true})

	require.NoError(t, m.Notify(context.Background(), decision()))
	require.Len(t, c.msgs, 1)
	msg := c.msgs[0]
	assert.Equal(t, "plant/calib/SN_001/accepted", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var got suggest.Decision
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "SN/001", got.ToolSerialID)
	assert.Equal(t, model.RiskDrifting, got.RiskLevel)
}

func TestMQTTDefaults(t *testing.T) {
	m := newMQTT(&fakeClient{}, MQTTConfig{QoS: 7})
	d := decision()
	d.ToolSerialID = "A+B#"
	d.State = model.StateDeclined
	assert.Equal(t, DefaultTopicPrefix+"/A_B_/declined", m.Topic(d))
	assert.Equal(t, byte(1), m.cfg.QoS)
}

func TestMQTTPublishError(t *testing.T) {
	boom := errors.New("not connected")
	c := &fakeClient{token: func() mqtt.Token { return newToken(boom, true) }}
	err := newMQTT(c, MQTTConfig{}).Notify(context.Background(), decision())
	assert.ErrorIs(t, err, boom)
}

func TestMQTTContextCancelled(t *testing.T) {
	c := &fakeClient{token: func() mqtt.Token { return newToken(nil, false) }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newMQTT(c, MQTTConfig{}).Notify(ctx, decision())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDialMQTTRequiresBroker(t *testing.T) {
	_, err := DialMQTT(MQTTConfig{})
	assert.Error(t, err)
}

type countingNotifier struct {
	calls int
	err   error
}

func (n *countingNotifier) Notify(context.Context, suggest.Decision) error {
	n.calls++
	return n.err
}

func TestMulti(t *testing.T) {
	boom := errors.New("boom")
	a := &countingNotifier{err: boom}
	b := &countingNotifier{}
	err := Multi{a, nil, b, Log{}}.Notify(context.Background(), decision())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	assert.NoError(t, Multi{}.Notify(context.Background(), decision()))
}

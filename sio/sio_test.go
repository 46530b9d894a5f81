package sio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var said = &core.Line{
	Tick:       3,
	Time:       150 * time.Millisecond,
	Production: "servecappuccino",
	Kind:       "say",
	Text:       "Here's your cappuccino. Enjoy!",
}

func TestStdio(t *testing.T) {
	ctx := context.Background()

	var out bytes.Buffer
	s := &Stdio{Out: &out}
	require.NoError(t, s.Emit(ctx, said))
	assert.Equal(t, "Here's your cappuccino. Enjoy!\n", out.String())

	out.Reset()
	s.Tags = true
	s.PadTags = true
	s.Timestamps = true
	s.Agent = "alice"
	require.NoError(t, s.Emit(ctx, said))
	assert.Equal(t, "150ms    alice     say Here's your cappuccino. Enjoy!\n", out.String())
}

type failing struct{}

func (failing) Emit(ctx context.Context, l *core.Line) error {
	return errors.New("spilled")
}

func TestMultiAndFilter(t *testing.T) {
	ctx := context.Background()

	var a, b Collector
	m := Multi{&a, failing{}, nil, &Filter{Kinds: []string{"fail"}, Sink: &b}}
	err := m.Emit(ctx, said)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "spilled")

	require.Len(t, a.Lines(), 1)
	assert.Empty(t, b.Lines())

	require.Error(t, m.Emit(ctx, &core.Line{Kind: "fail", Text: "retrieval failure"}))
	assert.Len(t, a.Lines(), 2)
	require.Len(t, b.Lines(), 1)
	assert.Equal(t, "retrieval failure", b.Lines()[0].Text)

	var c Collector
	require.NoError(t, (&Filter{Sink: &c}).Emit(ctx, said))
	assert.Len(t, c.Lines(), 1)
}

func TestMQTT(t *testing.T) {
	ctx := context.Background()

	type published struct {
		topic   string
		payload []byte
	}
	var got []published

	m := &MQTT{
		Topic:         "lofi/cafe",
		KindSubtopics: true,
		QoS:           1,
		Publish: func(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
			assert.Equal(t, byte(1), qos)
			got = append(got, published{topic, payload})
			return nil
		},
	}
	require.NoError(t, m.Emit(ctx, said))
	require.Len(t, got, 1)
	assert.Equal(t, "lofi/cafe/say", got[0].topic)

	var l core.Line
	require.NoError(t, json.Unmarshal(got[0].payload, &l))
	assert.Equal(t, *said, l)
}

func TestMQTTOptions(t *testing.T) {
	o := DefaultMQTTOptions
	o.ClientId = "barista"
	opts, err := o.ClientOptions()
	require.NoError(t, err)
	assert.Equal(t, "barista", opts.ClientID)
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://localhost:1883", opts.Servers[0].String())

	o.CAFilename = "/nonexistent/ca.pem"
	_, err = o.ClientOptions()
	assert.Error(t, err)
}

func TestWebSocket(t *testing.T) {
	ctx := context.Background()

	ws := NewWebSocket()
	srv := httptest.NewServer(ws)
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ws.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.Emit(ctx, said))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, bs, err := conn.ReadMessage()
	require.NoError(t, err)

	var l core.Line
	require.NoError(t, json.Unmarshal(bs, &l))
	assert.Equal(t, said.Text, l.Text)
	assert.Equal(t, said.Tick, l.Tick)

	require.NoError(t, ws.Close())
	assert.Equal(t, 0, ws.Clients())
}

/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/NicValentine/LoFi-Cafe/core"
	"github.com/NicValentine/LoFi-Cafe/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions follows the usual mosquitto_sub command-line
// arguments.
type MQTTOptions struct {
	Broker    string
	Port      int
	ClientId  string
	KeepAlive time.Duration
	Username  string
	Password  string
	Clean     bool
	Reconnect bool

	CertFilename string
	KeyFilename  string
	CAFilename   string
	Insecure     bool

	// ConnectTimeout bounds the wait for the broker's CONNACK.
	ConnectTimeout time.Duration
}

// DefaultMQTTOptions has a local broker and clean sessions.
var DefaultMQTTOptions = MQTTOptions{
	Broker:         "tcp://localhost",
	Port:           1883,
	KeepAlive:      10 * time.Second,
	Clean:          true,
	ConnectTimeout: 5 * time.Second,
}

// ClientOptions makes Paho options.
func (o *MQTTOptions) ClientOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("%s:%d", o.Broker, o.Port))
	opts.SetClientID(o.ClientId)
	opts.SetKeepAlive(o.KeepAlive)
	opts.Username = o.Username
	opts.Password = o.Password
	opts.AutoReconnect = o.Reconnect
	opts.CleanSession = o.Clean

	tlsConf := &tls.Config{
		InsecureSkipVerify: o.Insecure,
	}
	if o.CAFilename != "" {
		certs, err := os.ReadFile(o.CAFilename)
		if err != nil {
			return nil, err
		}
		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}
		if !rootCAs.AppendCertsFromPEM(certs) {
			return nil, fmt.Errorf("no certs in %s", o.CAFilename)
		}
		tlsConf.RootCAs = rootCAs
	}
	if o.KeyFilename != "" {
		cert, err := tls.LoadX509KeyPair(o.CertFilename, o.KeyFilename)
		if err != nil {
			return nil, err
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	opts.SetTLSConfig(tlsConf)

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		util.Logger().Warn("MQTT connection lost", "error", err)
	}

	return opts, nil
}

// ConnectMQTT makes a client and connects it.
func ConnectMQTT(o *MQTTOptions) (mqtt.Client, error) {
	opts, err := o.ClientOptions()
	if err != nil {
		return nil, err
	}
	c := mqtt.NewClient(opts)
	t := c.Connect()
	if !t.WaitTimeout(o.ConnectTimeout) {
		return nil, errors.New("MQTT connect timeout")
	}
	if err := t.Error(); err != nil {
		return nil, err
	}
	return c, nil
}

// MQTT publishes each line as JSON.
type MQTT struct {
	// Topic is the base topic.
	Topic string

	// KindSubtopics appends "/" and the line's kind to Topic.
	KindSubtopics bool

	QoS      byte
	Retained bool

	// Publish sends one message.  NewMQTT uses a Paho client.
	Publish func(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// NewMQTT makes a sink that publishes with the given (connected)
// client.
func NewMQTT(c mqtt.Client, topic string) *MQTT {
	return &MQTT{
		Topic: topic,
		Publish: func(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
			t := c.Publish(topic, qos, retained, payload)
			timeout := time.Minute
			if deadline, ok := ctx.Deadline(); ok {
				timeout = time.Until(deadline)
			}
			if !t.WaitTimeout(timeout) {
				return errors.New("MQTT publish timeout")
			}
			return t.Error()
		},
	}
}

func (m *MQTT) Emit(ctx context.Context, l *core.Line) error {
	js, err := json.Marshal(l)
	if err != nil {
		return err
	}
	topic := m.Topic
	if m.KindSubtopics {
		topic += "/" + l.Kind
	}
	util.Logf("MQTT publishing to %s: %s", topic, js)
	return m.Publish(ctx, topic, m.QoS, m.Retained, js)
}

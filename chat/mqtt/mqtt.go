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

// Package mqtt is a chat collaborator backed by an MQTT broker.
//
// Inbound events arrive as JSON payloads on the subscription topic and
// land on the service's inbound FIFO.  Outbound replies are published
// to a per-channel topic.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Comcast/parley/event"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Options configures a broker session.
type Options struct {
	// Broker is the broker URL (e.g. "tcp://localhost:1883").
	Broker string `json:"broker" yaml:"broker"`

	// ClientID identifies this session.
	ClientID string `json:"clientId,omitempty" yaml:",omitempty"`

	UserName string `json:"userName,omitempty" yaml:",omitempty"`
	Password string `json:"password,omitempty" yaml:",omitempty"`

	// KeepAlive is in seconds.
	KeepAlive int `json:"keepAlive,omitempty" yaml:",omitempty"`

	// SubTopic carries inbound events (default "parley/in").
	SubTopic string `json:"subTopic,omitempty" yaml:",omitempty"`

	// PubPrefix prefixes outbound per-channel topics (default
	// "parley/out/").
	PubPrefix string `json:"pubPrefix,omitempty" yaml:",omitempty"`

	// QoS for subscriptions and publications.
	QoS byte `json:"qos,omitempty" yaml:",omitempty"`

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint `json:"quiesce,omitempty" yaml:",omitempty"`

	// Reconnect enables automatic reconnection.
	Reconnect bool `json:"reconnect,omitempty" yaml:",omitempty"`

	// InTimeout bounds inbound queuing.
	InTimeout time.Duration `json:"inTimeout,omitempty" yaml:",omitempty"`
}

// Chat is an MQTT-backed pipeline.Chat.
type Chat struct {
	Verbose bool

	Opts *Options

	// In receives decoded inbound events (feed it to a Service).
	In chan *event.Event

	client paho.Client

	mu     sync.Mutex
	direct map[string]bool
}

// NewChat builds a Chat (not yet connected).
func NewChat(opts *Options) *Chat {
	if opts.SubTopic == "" {
		opts.SubTopic = "parley/in"
	}
	if opts.PubPrefix == "" {
		opts.PubPrefix = "parley/out/"
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 10
	}
	if opts.Quiesce == 0 {
		opts.Quiesce = 100
	}
	if opts.InTimeout <= 0 {
		opts.InTimeout = time.Second
	}

	c := &Chat{
		Opts:   opts,
		In:     make(chan *event.Event, 64),
		direct: make(map[string]bool),
	}

	po := paho.NewClientOptions()
	po.AddBroker(opts.Broker)
	po.SetClientID(opts.ClientID)
	po.SetKeepAlive(time.Second * time.Duration(opts.KeepAlive))
	po.Username = opts.UserName
	po.Password = opts.Password
	po.AutoReconnect = opts.Reconnect
	po.OnConnectionLost = func(client paho.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}
	po.DefaultPublishHandler = func(client paho.Client, msg paho.Message) {
		c.inHandler(msg)
	}

	c.client = paho.NewClient(po)

	return c
}

func (c *Chat) Logf(format string, args ...interface{}) {
	if c.Verbose {
		log.Printf(format, args...)
	}
}

// inHandler decodes a broker message into a typed event and queues it.
func (c *Chat) inHandler(msg paho.Message) {
	c.Logf("incoming: %s %s", msg.Topic(), msg.Payload())

	ev, err := event.Unmarshal(msg.Payload())
	if err != nil {
		log.Printf("couldn't parse payload on %s: %v", msg.Topic(), err)
		return
	}

	to := time.NewTimer(c.Opts.InTimeout)
	select {
	case c.In <- ev:
	case <-to.C:
		log.Printf("not forwarding inbound event due to stall")
	}
	to.Stop()
}

// Start connects to the broker and subscribes.
func (c *Chat) Start(ctx context.Context) error {
	c.Logf("attempting to connect to broker")
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	c.Logf("connected to broker")

	if t := c.client.Subscribe(c.Opts.SubTopic, c.Opts.QoS, nil); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	c.Logf("subscribed to %s", c.Opts.SubTopic)

	return nil
}

// Stop terminates the broker session.
func (c *Chat) Stop(ctx context.Context) error {
	c.Logf("disconnecting")
	c.client.Disconnect(c.Opts.Quiesce)
	return nil
}

// Post publishes a reply to its channel's topic.
func (c *Chat) Post(ctx context.Context, r *event.Reply) error {
	js, err := json.Marshal(r)
	if err != nil {
		return err
	}
	topic := c.Opts.PubPrefix + r.ChannelID
	token := c.client.Publish(topic, c.Opts.QoS, false, js)
	token.Wait()
	return token.Error()
}

// AddParticipants publishes a membership control message.
func (c *Chat) AddParticipants(ctx context.Context, channelID string, ids []string) error {
	m := map[string]interface{}{
		"op":        "addParticipants",
		"channelId": channelID,
		"ids":       ids,
	}
	js, err := json.Marshal(m)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s%s/control", c.Opts.PubPrefix, channelID)
	token := c.client.Publish(topic, c.Opts.QoS, false, js)
	token.Wait()
	return token.Error()
}

// SetDirect marks a channel as a one-on-one conversation.
func (c *Chat) SetDirect(channelID string, direct bool) {
	c.mu.Lock()
	c.direct[channelID] = direct
	c.mu.Unlock()
}

// Direct reports whether a channel is a one-on-one conversation.
func (c *Chat) Direct(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.direct[channelID]
}

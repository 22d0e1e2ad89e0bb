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

// Package main runs a parley conversation service against an MQTT
// broker or a WebSocket chat gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Comcast/parley/chat/mqtt"
	"github.com/Comcast/parley/chat/ws"
	"github.com/Comcast/parley/event"
	"github.com/Comcast/parley/pipeline"
	"github.com/Comcast/parley/shell"
	"github.com/Comcast/parley/storage"
	"github.com/Comcast/parley/storage/bolt"

	yaml "gopkg.in/yaml.v2"
)

// Config is the service configuration, loaded from a YAML file and
// overridable by flags.
type Config struct {
	// Chat picks the collaborator: "mq" or "ws".
	Chat string `yaml:"chat"`

	BotID    string `yaml:"botId"`
	BotLabel string `yaml:"botLabel"`

	// Poll is each role's FIFO wait.
	Poll time.Duration `yaml:"poll"`

	// Render turns reply text into rich content.
	Render bool `yaml:"render"`

	// Store is an optional filename for the durable answer store.
	Store string `yaml:"store"`

	// AuditDir, when not empty, enables file-based audit sinks (one
	// JSON-lines file per channel).
	AuditDir string `yaml:"auditDir"`

	// MQTT configures the "mq" collaborator.
	MQTT *mqtt.Options `yaml:"mqtt"`

	// WSURL configures the "ws" collaborator.
	WSURL string `yaml:"wsUrl"`
}

func main() {
	var (
		configFile = flag.String("c", "", "Optional YAML config filename")
		coupling   = flag.String("io", "", `Chat collaborator: "mq" or "ws" (overrides config)`)
		botID      = flag.String("bot-id", "", "Bot id (overrides config)")
		verbose    = flag.Bool("v", false, "Verbose")
	)

	flag.Parse()

	conf := &Config{
		Chat: "mq",
		Poll: pipeline.DefaultPoll,
		MQTT: &mqtt.Options{Broker: "tcp://localhost:1883"},
	}
	if *configFile != "" {
		bs, err := ioutil.ReadFile(*configFile)
		if err != nil {
			log.Fatal(err)
		}
		if err := yaml.Unmarshal(bs, conf); err != nil {
			log.Fatal(err)
		}
	}
	if *coupling != "" {
		conf.Chat = *coupling
	}
	if *botID != "" {
		conf.BotID = *botID
	}
	if conf.Poll <= 0 {
		conf.Poll = pipeline.DefaultPoll
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sh := shell.NewShell()
	if err := shell.AddBuiltins(sh); err != nil {
		log.Fatal(err)
	}

	var (
		chat pipeline.Chat
		in   chan *event.Event
		stop func(context.Context) error
	)
	switch conf.Chat {
	case "mq", "mqtt":
		c := mqtt.NewChat(conf.MQTT)
		c.Verbose = *verbose
		if err := c.Start(ctx); err != nil {
			log.Fatal(err)
		}
		chat, in, stop = c, c.In, c.Stop
	case "ws":
		c := ws.NewChat(conf.WSURL)
		c.Verbose = *verbose
		if err := c.Start(ctx); err != nil {
			log.Fatal(err)
		}
		chat, in, stop = c, c.In, c.Stop
	default:
		log.Fatalf("unknown chat collaborator: '%s'", conf.Chat)
	}

	s := pipeline.NewService(sh, chat)
	s.Verbose = *verbose
	s.In = in
	s.BotID = conf.BotID
	s.BotLabel = conf.BotLabel
	s.Poll = conf.Poll
	s.Render = conf.Render

	if conf.Store != "" {
		store, err := bolt.NewStorage(conf.Store)
		if err != nil {
			log.Fatal(err)
		}
		if err := store.Open(); err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		s.Store = store
	} else {
		s.Store = &storage.Noop{}
	}

	if conf.AuditDir != "" {
		if err := os.MkdirAll(conf.AuditDir, 0755); err != nil {
			log.Fatal(err)
		}
		s.Sinks = func(channelID string) pipeline.AuditSink {
			return &fileSink{
				filename: filepath.Join(conf.AuditDir, channelID+".log"),
			}
		}
	}

	s.Start(ctx)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Printf("shutting down")
	case <-ctx.Done():
	}

	s.Stop()
	if err := stop(context.Background()); err != nil {
		log.Printf("error from chat stop: %v", err)
	}
}

// fileSink appends audited events to a JSON-lines file.
type fileSink struct {
	filename string
}

func (s *fileSink) Write(ctx context.Context, ev *event.Event) error {
	f, err := os.OpenFile(s.filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	js, err := event.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%s\n", js); err != nil {
		return err
	}
	return nil
}

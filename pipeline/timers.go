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

package pipeline

// ToDo: Timers.Suspend, Timers.Resume

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Comcast/parley/event"
	"github.com/gorhill/cronexpr"
)

// TimerEntry represents a pending timer.
type TimerEntry struct {
	Id string
	Ev *event.Event
	At time.Time

	// Expr, when not nil, reschedules the timer after each firing.
	Expr *cronexpr.Expression `json:"-"`

	Ctl chan bool `json:"-"`

	timers *Timers
}

// Timers injects events into the pipeline at appointed times.
//
// A one-shot timer fires once after a duration; a cron timer fires at
// each of its expression's activations until cancelled.  Fired events
// land on the inbound FIFO like any other event, so commands and
// machines can react to them.
type Timers struct {
	Verbose bool

	Map map[string]*TimerEntry

	sync.Mutex

	out chan<- *event.Event
}

// NewTimers creates a Timers that emits into the given FIFO
// (typically a Service's In).
func NewTimers(out chan<- *event.Event) *Timers {
	return &Timers{
		Map: make(map[string]*TimerEntry, 8),
		out: out,
	}
}

func (ts *Timers) Logf(format string, args ...interface{}) {
	if ts.Verbose {
		log.Printf(format, args...)
	}
}

// Add creates a one-shot timer that will emit the given event later
// (if the timer isn't cancelled first).
//
// Adding a timer with an existing id cancels the old timer.
func (ts *Timers) Add(id string, ev *event.Event, d time.Duration) error {
	ts.Logf("Timers.Add %s", id)

	e := &TimerEntry{
		Id: id,
		At: time.Now().UTC().Add(d),
		Ev: ev,
	}
	return ts.add(e)
}

// AddCron creates a recurring timer driven by a cron expression.
func (ts *Timers) AddCron(id string, ev *event.Event, schedule string) error {
	ts.Logf("Timers.AddCron %s %s", id, schedule)

	expr, err := cronexpr.Parse(schedule)
	if err != nil {
		return err
	}
	at := expr.Next(time.Now())
	if at.IsZero() {
		return fmt.Errorf("schedule '%s' never fires", schedule)
	}

	e := &TimerEntry{
		Id:   id,
		At:   at,
		Ev:   ev,
		Expr: expr,
	}
	return ts.add(e)
}

func (ts *Timers) add(e *TimerEntry) error {
	ts.Lock()
	defer ts.Unlock()

	if _, have := ts.Map[e.Id]; have {
		if err := ts.cancel(e.Id); err != nil {
			return err
		}
	}

	e.Ctl = make(chan bool)
	e.timers = ts
	ts.Map[e.Id] = e

	go e.run()

	return nil
}

// run waits for the appointed time and emits the entry's event, unless
// the entry is cancelled first.  A cron entry reschedules itself.
func (te *TimerEntry) run() {
	ts := te.timers
	ts.Logf("TimerEntry %s run", te.Id)

	for {
		t := time.NewTimer(time.Until(te.At))
		select {
		case <-t.C:
			ts.Logf("firing timer '%s'", te.Id)
			ts.out <- te.Ev

			if te.Expr != nil {
				next := te.Expr.Next(time.Now())
				if !next.IsZero() {
					te.At = next
					continue
				}
			}

			ts.Lock()
			// Only remove ourselves; the id might have been
			// replaced.
			if ts.Map[te.Id] == te {
				delete(ts.Map, te.Id)
			}
			ts.Unlock()
			return
		case <-te.Ctl:
			t.Stop()
			ts.Logf("cancelling timer '%s'", te.Id)
			return
		}
	}
}

func (ts *Timers) cancel(id string) error {
	t, have := ts.Map[id]
	if !have {
		return fmt.Errorf("timer '%s' doesn't exist", id)
	}
	delete(ts.Map, id)
	close(t.Ctl)
	return nil
}

// Cancel attempts to cancel the timer with the given id.
func (ts *Timers) Cancel(id string) error {
	ts.Logf("Timers.Cancel %s", id)

	ts.Lock()
	err := ts.cancel(id)
	ts.Unlock()
	return err
}

// Pending reports the ids of the timers that haven't fired.
func (ts *Timers) Pending() []string {
	ts.Lock()
	acc := make([]string, 0, len(ts.Map))
	for id := range ts.Map {
		acc = append(acc, id)
	}
	ts.Unlock()
	return acc
}

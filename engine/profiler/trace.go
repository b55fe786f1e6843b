//go:build profile

package profiler

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Init allocates room for capacity scope events. Older events are
// overwritten once the ring is full.
func Init(capacity int) {
	if capacity <= 0 {
		capacity = 1 << 16
	}
	ring.init(capacity)
}

// Start opens a scope and returns the func that closes it.
func Start(name string) func() {
	if !ring.ready.Load() {
		return func() {}
	}
	id := intern(name)
	at := time.Now().UnixNano()
	ring.push(event{at: at, frame: id, open: true})
	return func() {
		end := max(time.Now().UnixNano(), at)
		ring.push(event{at: end, frame: id})
	}
}

type event struct {
	at    int64
	frame int
	open  bool
}

type eventRing struct {
	ready atomic.Bool
	size  uint64
	write atomic.Uint64
	evs   []event
}

func (r *eventRing) init(n int) {
	r.size = uint64(n)
	r.evs = make([]event, n)
	r.write.Store(0)
	r.ready.Store(true)
}

func (r *eventRing) push(e event) {
	i := r.write.Add(1) - 1
	r.evs[i%r.size] = e
}

// snapshot returns the retained events in write order.
func (r *eventRing) snapshot() []event {
	n := r.write.Load()
	start := uint64(0)
	if n > r.size {
		start = n - r.size
	}
	out := make([]event, 0, n-start)
	for k := start; k < n; k++ {
		out = append(out, r.evs[k%r.size])
	}
	return out
}

var ring eventRing

var (
	namesMu sync.Mutex
	names   []string
	nameIDs = map[string]int{}
)

func intern(name string) int {
	namesMu.Lock()
	defer namesMu.Unlock()
	if id, ok := nameIDs[name]; ok {
		return id
	}
	nameIDs[name] = len(names)
	names = append(names, name)
	return len(names) - 1
}

type speedscope struct {
	Schema string `json:"$schema"`
	Shared struct {
		Frames []struct {
			Name string `json:"name"`
		} `json:"frames"`
	} `json:"shared"`
	Profiles []profile `json:"profiles"`
}

type profile struct {
	Type       string      `json:"type"`
	Name       string      `json:"name"`
	Unit       string      `json:"unit"`
	StartValue int64       `json:"startValue"`
	EndValue   int64       `json:"endValue"`
	Events     []scopeMark `json:"events"`
}

type scopeMark struct {
	Type  string `json:"type"`
	At    int64  `json:"at"`
	Frame int    `json:"frame"`
}

// Dump writes the retained scopes to path as an evented speedscope profile.
// Closes without a matching open are dropped and scopes still open at the
// end are closed at the last timestamp.
func Dump(path string) error {
	evs := ring.snapshot()
	if len(evs) == 0 {
		return errors.New("profiler: no events")
	}

	var doc speedscope
	doc.Schema = "https://www.speedscope.app/file-format-schema.json"
	namesMu.Lock()
	for _, n := range names {
		doc.Shared.Frames = append(doc.Shared.Frames, struct {
			Name string `json:"name"`
		}{n})
	}
	namesMu.Unlock()

	base := evs[0].at
	var (
		marks []scopeMark
		stack []int
		last  int64
	)
	for _, e := range evs {
		at := max((e.at-base)/1000, last)
		if e.open {
			stack = append(stack, e.frame)
			marks = append(marks, scopeMark{"O", at, e.frame})
		} else {
			if len(stack) == 0 || stack[len(stack)-1] != e.frame {
				continue
			}
			stack = stack[:len(stack)-1]
			marks = append(marks, scopeMark{"C", at, e.frame})
		}
		last = at
	}
	for i := len(stack) - 1; i >= 0; i-- {
		marks = append(marks, scopeMark{"C", last, stack[i]})
	}
	doc.Profiles = []profile{{
		Type: "evented", Name: "spot", Unit: "microseconds",
		EndValue: last, Events: marks,
	}}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(&doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

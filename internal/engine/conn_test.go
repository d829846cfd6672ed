package engine

import (
	"sync"

	"github.com/studio3d/scenesync/internal/models"
)

// fakeConn implements Connection for publisher/membership tests.
type fakeConn struct {
	mu         sync.Mutex
	connected  bool
	connID     string
	connectErr error
	emits      []emitRecord
}

type emitRecord struct {
	event string
	data  any
}

func newFakeConn() *fakeConn {
	return &fakeConn{connected: true, connID: "conn-1"}
}

func (f *fakeConn) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeConn) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConn) ConnectionID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connID
}

func (f *fakeConn) Emit(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return ErrNotConnected
	}
	f.emits = append(f.emits, emitRecord{event: event, data: data})
	return nil
}

func (f *fakeConn) setConnected(connected bool, connID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
	if connID != "" {
		f.connID = connID
	}
}

func (f *fakeConn) recorded() []emitRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitRecord(nil), f.emits...)
}

func (f *fakeConn) countEvent(event string) int {
	n := 0
	for _, e := range f.recorded() {
		if e.event == event {
			n++
		}
	}
	return n
}

func (f *fakeConn) lastEvent(event string) (emitRecord, bool) {
	records := f.recorded()
	for i := len(records) - 1; i >= 0; i-- {
		if records[i].event == event {
			return records[i], true
		}
	}
	return emitRecord{}, false
}

var _ Connection = (*fakeConn)(nil)

func transformOf(rec emitRecord) models.TransformMessage {
	return rec.data.(models.TransformMessage)
}

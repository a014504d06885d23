package hub

import (
	"encoding/json"
	"sync"

	"github.com/weiawesome/huddle-sync/internal/domain"
)

// fakeConn records frames and can be told to reject them.
type fakeConn struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
	fail   error
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) types() []domain.MsgType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.MsgType, 0, len(f.frames))
	for _, fr := range f.frames {
		var base domain.BaseMessage
		_ = json.Unmarshal(fr, &base)
		out = append(out, base.Type)
	}
	return out
}

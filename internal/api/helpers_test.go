package api

import (
	"context"
	"sync"

	"monolithgo/pkg/config"
	"monolithgo/pkg/pose"
	"monolithgo/pkg/tracker"
)

type mockStore struct {
	mu    sync.Mutex
	state map[string]string
}

func (m *mockStore) GetState(ctx context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.state[key]
	return val, ok
}

func (m *mockStore) SetState(ctx context.Context, key, val string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]string)
	}
	m.state[key] = val
	return nil
}

func (m *mockStore) DeleteState(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state, key)
	return nil
}

func newProvider(state map[string]string) (*config.UnifiedProvider, *mockStore) {
	st := &mockStore{state: state}
	return config.NewProvider(config.DefaultConfig(), st), st
}

type fakeSnapshots struct {
	mu   sync.Mutex
	snap tracker.Snapshot
}

func newSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snap: tracker.Snapshot{Head: pose.NewHead(), Wand: pose.NewWand(0)}}
}

func (f *fakeSnapshots) Snapshot() tracker.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

// trackHead places a tracked head at loc (mm) with identity orientation.
func (f *fakeSnapshots) trackHead(loc [3]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Head.Update(pose.Reading{Quality: 1, Loc: loc, Rot: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}})
	f.snap.Frame++
	f.snap.Updates++
}

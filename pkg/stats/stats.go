// Package stats keeps lock-free counters of tracking traffic per channel.
package stats

import (
	"sync"
	"sync/atomic"
)

// Channel names used by the service.
const (
	ChannelData    = "data"
	ChannelControl = "control"
)

// Stats tracks traffic statistics per channel.
type Stats struct {
	mu    sync.RWMutex
	chans map[string]*ChannelStats
}

// ChannelStats holds counters for one channel.
// Fields are accessed atomically.
type ChannelStats struct {
	Success        int64 `json:"success"`
	Timeouts       int64 `json:"timeouts"`
	ParseErrors    int64 `json:"parse_errors"`
	NetworkErrors  int64 `json:"network_errors"`
	ProtocolErrors int64 `json:"protocol_errors"`
	ServerErrors   int64 `json:"server_errors"`
}

// New creates an empty Stats.
func New() *Stats {
	return &Stats{
		chans: make(map[string]*ChannelStats),
	}
}

// get returns the counters of a channel, creating them if needed.
func (s *Stats) get(channel string) *ChannelStats {
	s.mu.RLock()
	c, ok := s.chans[channel]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double check
	if c, ok = s.chans[channel]; ok {
		return c
	}
	c = &ChannelStats{}
	s.chans[channel] = c
	return c
}

// TrackSuccess counts a committed frame or a completed exchange.
func (s *Stats) TrackSuccess(channel string) {
	atomic.AddInt64(&s.get(channel).Success, 1)
}

func (s *Stats) TrackTimeout(channel string) {
	atomic.AddInt64(&s.get(channel).Timeouts, 1)
}

func (s *Stats) TrackParseError(channel string) {
	atomic.AddInt64(&s.get(channel).ParseErrors, 1)
}

func (s *Stats) TrackNetworkError(channel string) {
	atomic.AddInt64(&s.get(channel).NetworkErrors, 1)
}

func (s *Stats) TrackProtocolError(channel string) {
	atomic.AddInt64(&s.get(channel).ProtocolErrors, 1)
}

func (s *Stats) TrackServerError(channel string) {
	atomic.AddInt64(&s.get(channel).ServerErrors, 1)
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() map[string]ChannelStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]ChannelStats, len(s.chans))
	for k, v := range s.chans {
		result[k] = ChannelStats{
			Success:        atomic.LoadInt64(&v.Success),
			Timeouts:       atomic.LoadInt64(&v.Timeouts),
			ParseErrors:    atomic.LoadInt64(&v.ParseErrors),
			NetworkErrors:  atomic.LoadInt64(&v.NetworkErrors),
			ProtocolErrors: atomic.LoadInt64(&v.ProtocolErrors),
			ServerErrors:   atomic.LoadInt64(&v.ServerErrors),
		}
	}
	return result
}

// Reset clears every counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chans = make(map[string]*ChannelStats)
}

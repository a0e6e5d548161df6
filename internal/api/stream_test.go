package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleStream(t *testing.T) {
	src := newSnapshots()
	src.trackHead([3]float64{0, 1524, 1524})
	h := NewStreamHandler(src, 5*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(h.HandleStream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first PoseResponse
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, uint64(1), first.Updates)
	assert.True(t, first.Head.Tracked)

	src.trackHead([3]float64{0, 1524, 3048})
	var second PoseResponse
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, uint64(2), second.Updates)
	assert.InDelta(t, 10.0, second.Head.Position[2], 1e-6)
}

package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogErrorWithOopsError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")

	err := oops.Code("STORE_FAILURE").With("user_id", "42").Errorf("lookup failed")
	LogError(logger, "authenticate failed", err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "authenticate failed", entry["msg"])
	assert.Equal(t, "STORE_FAILURE", entry["code"])
	assert.Equal(t, map[string]any{"user_id": "42"}, entry["context"])
}

func TestLogErrorWithPlainError(t *testing.T) {
	var buf bytes.Buffer
	LogError(NewWithWriter(&buf, "info"), "failed", errors.New("plain"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plain", entry["error"])
	assert.NotContains(t, entry, "code")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestLogstashWriterForwardsRecords(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		received <- line
	}()

	w, err := NewLogstashWriter(ln.Addr().String())
	require.NoError(t, err)
	defer w.Close()

	n, err := w.Write([]byte(`{"msg":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, len(`{"msg":"hello"}`), n)

	select {
	case line := <-received:
		assert.Equal(t, "{\"msg\":\"hello\"}\n", line)
	case <-time.After(2 * time.Second):
		t.Fatal("logstash listener received nothing")
	}
}

func TestLogstashWriterDropsDuringCooldown(t *testing.T) {
	dials := 0
	w, err := NewLogstashWriter("logstash:5000", WithRetryInterval(time.Minute))
	require.NoError(t, err)
	w.dial = func(network, addr string, timeout time.Duration) (net.Conn, error) {
		dials++
		return nil, errors.New("connection refused")
	}

	for i := 0; i < 3; i++ {
		n, err := w.Write([]byte("x"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, 1, dials)
	assert.Equal(t, uint64(3), w.Dropped())

	require.NoError(t, w.Close())
	_, err = w.Write([]byte("x"))
	assert.Error(t, err)
}

func TestNewLogstashWriterRequiresAddress(t *testing.T) {
	_, err := NewLogstashWriter("  ")
	assert.Error(t, err)
}

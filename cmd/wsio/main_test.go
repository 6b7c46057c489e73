package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/yingshulu/wsio/echo"
)

func newEchoAddr(t *testing.T) string {
	es := echo.NewServer()
	hs := httptest.NewServer(es)
	t.Cleanup(func() {
		es.Close()
		hs.Close()
	})
	return strings.TrimPrefix(hs.URL, "http://")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "wsio.json")
	data := `{"log_level": "debug", "close_timeout": "250ms", "read_limit": 1024, "text_messages": true}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err = loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, Duration(250*time.Millisecond), cfg.CloseTimeout)
	require.Equal(t, Duration(10*time.Second), cfg.HandshakeTimeout)
	require.Equal(t, int64(1024), cfg.ReadLimit)
	require.True(t, cfg.TextMessages)
	require.Len(t, cfg.streamOptions(), 4)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"close_timeout": "soon"}`), 0o644))
	_, err = loadConfig(path)
	require.Error(t, err)

	cfg := defaultConfig()
	cfg.LogLevel = "loud"
	require.Error(t, cfg.setupLog())
}

func TestEchoOptions(t *testing.T) {
	cfg := defaultConfig()
	cfg.ReadLimit = 64
	cfg.Compression = true
	require.Equal(t, echo.Options{ReadLimit: 64, Compression: true}, echo.NewServer(cfg.echoOptions()...).Options())
}

func TestDemo(t *testing.T) {
	addr := newEchoAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, runDemo(ctx, addr, &out, defaultConfig()))
	require.Equal(t, "[0 1 2 3 93]\n[42 34 93]\n[0 0 1 2 93]\n", out.String())
}

func TestCat(t *testing.T) {
	addr := newEchoAddr(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader("hello over websocket\n")
	require.NoError(t, runCat(ctx, addr, in, &out, defaultConfig()))
	// the echo is written before the peer answers the close frame
	require.Equal(t, "hello over websocket\n", out.String())
}

func TestCatPeerClosesFirst(t *testing.T) {
	up := websocket.Upgrader{}
	hs := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		conn, err := up.Upgrade(rw, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.BinaryMessage, []byte("bye"))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(hs.Close)

	// stdin stays open for the whole run
	in, stdin := io.Pipe()
	t.Cleanup(func() { stdin.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out bytes.Buffer
	require.NoError(t, runCat(ctx, strings.TrimPrefix(hs.URL, "http://"), in, &out, defaultConfig()))
	require.Equal(t, "bye", out.String())
	require.NoError(t, ctx.Err())
}

func TestRootCommand(t *testing.T) {
	addr := newEchoAddr(t)
	var out bytes.Buffer

	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"demo", addr, "--log-level", "warn"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "[42 34 93]")
}

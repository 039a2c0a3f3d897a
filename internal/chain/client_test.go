package chain

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/beaconmixer/beacon"
)

const testHash = "0x36270d5ab846e5e10f40f66aa843db60ac76ca21dc9d153142a77fec5fc31374"

type nodeRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  []any           `json:"params"`
}

type nodeError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type nodeResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *nodeError      `json:"error,omitempty"`
}

// fakeNode answers eth_getBlockByNumber for block 14497878 and latest, and
// fails block 2 with a node error.
func fakeNode() func(req nodeRequest) nodeResponse {
	return func(req nodeRequest) nodeResponse {
		resp := nodeResponse{JSONRPC: "2.0", ID: req.ID}
		if req.Method != "eth_getBlockByNumber" {
			resp.Error = &nodeError{Code: -32601, Message: "method not found"}
			return resp
		}

		param, _ := req.Params[0].(string)
		switch param {
		case "latest", "0xdd3856":
			resp.Result = json.RawMessage(`{"number":"0xdd3856","hash":"` + testHash + `"}`)
		case "0x2":
			resp.Error = &nodeError{Code: -32000, Message: "header not found"}
		default:
			resp.Result = json.RawMessage(`null`)
		}
		return resp
	}
}

func newHTTPNode(t *testing.T) *httptest.Server {
	handle := fakeNode()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req nodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handle(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newWSNode(t *testing.T) *httptest.Server {
	handle := fakeNode()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req nodeRequest
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			// A notification for an unknown subscription ahead of the answer.
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"method":  "eth_subscription",
				"params":  map[string]any{"subscription": "0x1", "result": nil},
			})
			if err := conn.WriteJSON(handle(req)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTest(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, Config{URL: url, Timeout: 5 * time.Second}, log.New(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientTransports(t *testing.T) {
	httpNode := newHTTPNode(t)
	wsNode := newWSNode(t)

	tests := []struct {
		name string
		url  string
	}{
		{name: "http", url: httpNode.URL},
		{name: "websocket", url: "ws" + strings.TrimPrefix(wsNode.URL, "http")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dialTest(t, tt.url)
			ctx := context.Background()

			block, err := c.BlockByRef(ctx, Number(14497878))
			require.NoError(t, err)
			assert.Equal(t, &Block{Number: 14497878, Hash: testHash}, block)

			latest, err := c.BlockByRef(ctx, Latest)
			require.NoError(t, err)
			assert.Equal(t, uint64(14497878), latest.Number)

			_, err = c.BlockByRef(ctx, Number(1))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBlockNotFound))
			assert.True(t, errors.Is(err, beacon.ErrSourceUnavailable))

			_, err = c.BlockByRef(ctx, Number(2))
			require.Error(t, err)
			assert.True(t, errors.Is(err, beacon.ErrSourceUnavailable))
			assert.False(t, errors.Is(err, ErrBlockNotFound))
			var rpcErr rpc.Error
			require.True(t, errors.As(err, &rpcErr))
			assert.Equal(t, -32000, rpcErr.ErrorCode())
		})
	}
}

func TestClientUnreachableNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := dialTest(t, srv.URL)
	_, err := c.BlockByRef(context.Background(), Latest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, beacon.ErrSourceUnavailable))
	assert.False(t, errors.Is(err, ErrBlockNotFound))
	assert.Contains(t, err.Error(), "502")
}

func TestDialRejectsUnknownScheme(t *testing.T) {
	_, err := Dial(context.Background(), Config{URL: "ftp://node", Timeout: time.Second}, log.New(io.Discard))
	assert.ErrorContains(t, err, "unsupported")

	_, err = Dial(context.Background(), Config{Timeout: time.Second}, log.New(io.Discard))
	assert.ErrorContains(t, err, "no node endpoint")
}

func TestParseBlockRef(t *testing.T) {
	tests := []struct {
		input   string
		want    BlockRef
		wantErr bool
	}{
		{input: "latest", want: Latest},
		{input: "14497878", want: Number(14497878)},
		{input: "0xdd3856", want: Number(14497878)},
		{input: " 42 ", want: Number(42)},
		{input: "-1", wantErr: true},
		{input: "0xzz", wantErr: true},
		{input: "0x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBlockRef(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "0xdd3856", Number(14497878).param())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("BEACON_RPC_URL", "wss://node.example")
	t.Setenv("BEACON_RPC_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "wss://node.example", cfg.URL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestStaticSource(t *testing.T) {
	s := &Static{Blocks: []Block{{Number: 10, Hash: "0xa"}, {Number: 12, Hash: "0xc"}}}

	b, err := s.BlockByRef(context.Background(), Latest)
	require.NoError(t, err)
	assert.Equal(t, "0xc", b.Hash)

	b, err = s.BlockByRef(context.Background(), Number(10))
	require.NoError(t, err)
	assert.Equal(t, "0xa", b.Hash)

	_, err = s.BlockByRef(context.Background(), Number(11))
	assert.True(t, errors.Is(err, beacon.ErrSourceUnavailable))
}

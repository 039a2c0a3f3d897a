// Package chain fetches block hashes from an Ethereum JSON-RPC node. The
// hash of a finalized block is the seed for a reveal stage.
package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/websocket"

	"github.com/lox/beaconmixer/beacon"
)

// ErrBlockNotFound is returned when the node has no block at the requested
// height. It is always wrapped together with beacon.ErrSourceUnavailable.
var ErrBlockNotFound = errors.New("block not found")

// Block is the part of a block record a reveal needs.
type Block struct {
	Number uint64
	Hash   string
}

// BlockRef selects a block by height, or the latest block when Latest is set.
type BlockRef struct {
	Number uint64
	Latest bool
}

// Latest refers to the chain head.
var Latest = BlockRef{Latest: true}

// Number refers to the block at height n.
func Number(n uint64) BlockRef {
	return BlockRef{Number: n}
}

// ParseBlockRef accepts "latest", a decimal height or a 0x-prefixed hex height.
func ParseBlockRef(s string) (BlockRef, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "latest":
		return Latest, nil
	case strings.HasPrefix(s, "0x"):
		n, err := hexutil.DecodeUint64(s)
		if err != nil {
			return BlockRef{}, fmt.Errorf("invalid block %q: %w", s, err)
		}
		return Number(n), nil
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return BlockRef{}, fmt.Errorf("invalid block %q: %w", s, err)
		}
		return Number(n), nil
	}
}

func (r BlockRef) String() string {
	if r.Latest {
		return "latest"
	}
	return strconv.FormatUint(r.Number, 10)
}

func (r BlockRef) param() string {
	if r.Latest {
		return "latest"
	}
	return hexutil.EncodeUint64(r.Number)
}

// Source supplies block records.
type Source interface {
	BlockByRef(ctx context.Context, ref BlockRef) (*Block, error)
}

// Client fetches blocks from a JSON-RPC node over HTTP or websocket.
type Client struct {
	rpc    *rpc.Client
	logger *log.Logger
}

// Dial connects to the node at cfg.URL. Websocket endpoints are connected
// immediately; HTTP endpoints on first use.
func Dial(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid node URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported node URL scheme %q", u.Scheme)
	}

	logger = logger.WithPrefix("chain")

	c, err := rpc.DialOptions(ctx, cfg.URL,
		rpc.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		rpc.WithWebsocketDialer(websocket.Dialer{HandshakeTimeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", beacon.ErrSourceUnavailable, err)
	}

	logger.Debug("Node client ready", "scheme", u.Scheme, "host", u.Host)
	return &Client{rpc: c, logger: logger}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.rpc.Close()
	return nil
}

type rpcBlock struct {
	Number hexutil.Uint64 `json:"number"`
	Hash   *common.Hash   `json:"hash"`
}

// BlockByRef fetches a block header. A missing block yields an error
// matching both ErrBlockNotFound and beacon.ErrSourceUnavailable.
func (c *Client) BlockByRef(ctx context.Context, ref BlockRef) (*Block, error) {
	var raw *rpcBlock
	if err := c.rpc.CallContext(ctx, &raw, "eth_getBlockByNumber", ref.param(), false); err != nil {
		return nil, fmt.Errorf("%w: fetching block %s: %w", beacon.ErrSourceUnavailable, ref, err)
	}
	if raw == nil || raw.Hash == nil {
		return nil, fmt.Errorf("%w: %w: %s", beacon.ErrSourceUnavailable, ErrBlockNotFound, ref)
	}

	block := &Block{Number: uint64(raw.Number), Hash: raw.Hash.Hex()}
	c.logger.Debug("Fetched block", "ref", ref, "number", block.Number, "hash", block.Hash)
	return block, nil
}

package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"nhooyr.io/websocket"

	platformerrors "github.com/louisbranch/deepspire/internal/platform/errors"
	"github.com/louisbranch/deepspire/internal/protocol"
)

// ErrBaseURLRequired indicates a missing engine base URL.
var ErrBaseURLRequired = errors.New("engine base url is required")

// Client talks to a remote engine. It satisfies the dispatcher's engine
// contract and provides the push stream for the connect loop.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logf       func(string, ...any)
}

// ClientConfig carries client dependencies.
type ClientConfig struct {
	// BaseURL is the engine's HTTP base, e.g. http://localhost:8080. Required.
	BaseURL string
	// HTTPClient overrides the HTTP client used for both transports.
	HTTPClient *http.Client
	// Logf overrides the destination for diagnostics.
	Logf func(string, ...any)
}

// NewClient creates an engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrBaseURLRequired
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Client{baseURL: base, httpClient: httpClient, logf: logf}, nil
}

// PerformAction posts one action and returns the authoritative batch.
func (c *Client) PerformAction(ctx context.Context, gameID protocol.GameID, playerID protocol.PlayerID, action protocol.GameAction) (protocol.CommandBatch, error) {
	encoded, err := protocol.MarshalAction(action)
	if err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("encode action: %w", err)
	}
	body, err := json.Marshal(actionRequest{PlayerID: playerID, Action: encoded})
	if err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("encode action request: %w", err)
	}

	// Actions with no game yet, such as creating one, go to the bare
	// collection route; everything else targets the game by id.
	url := c.baseURL + "/v1/games"
	if gameID != "" {
		url = fmt.Sprintf("%s/v1/games/%s/actions", c.baseURL, string(gameID))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("build action request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("perform action: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("read action response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var failure errorResponse
		if err := json.Unmarshal(payload, &failure); err == nil && failure.Error != "" {
			rejection := fmt.Errorf("engine rejected action: %s", failure.Error)
			if failure.Code == "" {
				return protocol.CommandBatch{}, rejection
			}
			return protocol.CommandBatch{}, platformerrors.Wrap(
				platformerrors.Code(failure.Code), rejection.Error(), rejection)
		}
		return protocol.CommandBatch{}, fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	var batch protocol.CommandBatch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return protocol.CommandBatch{}, fmt.Errorf("decode command batch: %w", err)
	}
	return batch, nil
}

// Connect opens the push stream for a game. The returned channel closes when
// the stream ends; the caller decides whether to reconnect.
func (c *Client) Connect(ctx context.Context, gameID protocol.GameID, playerID protocol.PlayerID) (<-chan protocol.CommandBatch, error) {
	url := fmt.Sprintf("%s/v1/games/%s/stream?player_id=%s", c.baseURL, string(gameID), string(playerID))
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: c.httpClient})
	if err != nil {
		return nil, fmt.Errorf("dial engine stream: %w", err)
	}

	batches := make(chan protocol.CommandBatch)
	go func() {
		defer close(batches)
		defer conn.Close(websocket.StatusNormalClosure, "done")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.logf("engine stream closed: %v", err)
				}
				return
			}
			var batch protocol.CommandBatch
			if err := json.Unmarshal(data, &batch); err != nil {
				c.logf("dropping malformed stream frame: %v", err)
				continue
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return batches, nil
}

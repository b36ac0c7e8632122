package ws

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"github.com/louisbranch/deepspire/internal/engine"
	platformerrors "github.com/louisbranch/deepspire/internal/platform/errors"
	"github.com/louisbranch/deepspire/internal/platform/errors/i18n"
	"github.com/louisbranch/deepspire/internal/platform/timeouts"
	"github.com/louisbranch/deepspire/internal/protocol"
)

// ErrEngineRequired indicates a missing engine.
var ErrEngineRequired = errors.New("engine is required")

// Server exposes an engine over the action and stream endpoints the client
// transport speaks. Action responses go to the requester; the same batch is
// mirrored to every other subscriber of the game.
type Server struct {
	engine *engine.Engine
	logf   func(string, ...any)

	mu      sync.Mutex
	streams map[protocol.GameID]map[*subscriber]struct{}
}

type subscriber struct {
	playerID protocol.PlayerID
	send     chan []byte
}

// ServerConfig carries server dependencies.
type ServerConfig struct {
	// Engine resolves actions. Required.
	Engine *engine.Engine
	// Logf overrides the destination for diagnostics.
	Logf func(string, ...any)
}

// NewServer creates an engine server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, ErrEngineRequired
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &Server{
		engine:  cfg.Engine,
		logf:    logf,
		streams: make(map[protocol.GameID]map[*subscriber]struct{}),
	}, nil
}

// Handler returns the HTTP handler serving both endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/games", s.handleCreate)
	mux.HandleFunc("POST /v1/games/{game}/actions", s.handleAction)
	mux.HandleFunc("GET /v1/games/{game}/stream", s.handleStream)
	return mux
}

// handleCreate resolves actions that exist before any game does, such as
// creating one. The engine assigns the id.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.resolveAction(w, r, "")
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	s.resolveAction(w, r, protocol.GameID(r.PathValue("game")))
}

func (s *Server) resolveAction(w http.ResponseWriter, r *http.Request, gameID protocol.GameID) {
	var request actionRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeBadRequest(w, "decode request: "+err.Error())
		return
	}
	action, err := protocol.UnmarshalAction(request.Action)
	if err != nil {
		writeBadRequest(w, "decode action: "+err.Error())
		return
	}

	batch, err := s.engine.PerformAction(r.Context(), gameID, request.PlayerID, action)
	if err != nil {
		writeEngineError(w, r.Header.Get("Accept-Language"), err)
		return
	}

	// New games register under the id the engine assigned, not the request
	// path. Extract it from the render so mirroring reaches subscribers.
	broadcastID := gameID
	for _, cmd := range batch.Commands {
		if render, ok := cmd.(protocol.RenderGame); ok {
			broadcastID = render.Game.GameID
		}
	}
	s.broadcast(broadcastID, request.PlayerID, batch)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(batch); err != nil {
		s.logf("encode action response: %v", err)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	gameID := protocol.GameID(r.PathValue("game"))
	playerID := protocol.PlayerID(r.URL.Query().Get("player_id"))

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	sub := &subscriber{playerID: playerID, send: make(chan []byte, 16)}
	s.subscribe(gameID, sub)
	defer s.unsubscribe(gameID, sub)
	s.logf("stream opened for game %s player %s", gameID, playerID)

	ctx := r.Context()
	ping := time.NewTicker(timeouts.StreamPing)
	defer ping.Stop()
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sub.send:
			if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.Ping(ctx); err != nil {
				return
			}
		}
	}
}

func (s *Server) subscribe(gameID protocol.GameID, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams[gameID] == nil {
		s.streams[gameID] = make(map[*subscriber]struct{})
	}
	s.streams[gameID][sub] = struct{}{}
}

func (s *Server) unsubscribe(gameID protocol.GameID, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.streams[gameID], sub)
	if len(s.streams[gameID]) == 0 {
		delete(s.streams, gameID)
	}
}

// broadcast mirrors a batch to every subscriber of the game except the
// acting player, who receives it as the action response. Slow subscribers
// drop frames rather than stall the action round trip.
func (s *Server) broadcast(gameID protocol.GameID, actor protocol.PlayerID, batch protocol.CommandBatch) {
	frame, err := json.Marshal(batch)
	if err != nil {
		s.logf("encode broadcast frame: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.streams[gameID] {
		if sub.playerID == actor {
			continue
		}
		select {
		case sub.send <- frame:
		default:
			s.logf("dropping frame for slow subscriber %s", sub.playerID)
		}
	}
}

// codeFor maps engine sentinels to wire error codes.
func codeFor(err error) platformerrors.Code {
	switch {
	case errors.Is(err, engine.ErrGameNotFound):
		return platformerrors.CodeGameNotFound
	case errors.Is(err, engine.ErrRoomTargetRequired):
		return platformerrors.CodeRoomTargetRequired
	case errors.Is(err, engine.ErrRoomNotFound):
		return platformerrors.CodeRoomNotFound
	case errors.Is(err, engine.ErrCardNotInHand):
		return platformerrors.CodeCardNotInHand
	case errors.Is(err, engine.ErrUnknownAction):
		return platformerrors.CodeUnknownAction
	case errors.Is(err, engine.ErrNoActionPoints):
		return platformerrors.CodeNoActionPoints
	case errors.Is(err, engine.ErrInsufficientMana):
		return platformerrors.CodeInsufficientMana
	case errors.Is(err, engine.ErrEmptyDeck):
		return platformerrors.CodeEmptyDeck
	case errors.Is(err, engine.ErrNotYourTurn):
		return platformerrors.CodeNotYourTurn
	case errors.Is(err, engine.ErrRaidInProgress):
		return platformerrors.CodeRaidInProgress
	case errors.Is(err, engine.ErrNoRaid):
		return platformerrors.CodeNoRaid
	default:
		return platformerrors.CodeUnknown
	}
}

func writeEngineError(w http.ResponseWriter, locale string, err error) {
	code := codeFor(err)
	status := code.HTTPStatus()
	if code == platformerrors.CodeUnknown {
		status = http.StatusUnprocessableEntity
	}
	var metadata map[string]string
	var domainErr *platformerrors.Error
	if errors.As(err, &domainErr) {
		metadata = domainErr.Metadata
	}
	message := i18n.GetCatalog(locale).Format(string(code), metadata)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:   err.Error(),
		Code:    string(code),
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

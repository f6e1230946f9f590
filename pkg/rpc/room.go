// Package rpc delivers structured events to connected clients over
// websocket. It models the room boundary: remote participants join with
// client-controlled attributes and metadata, and the agent addresses
// events to one resolved participant. Delivery is best-effort.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
)

// NotifyMethod is the client handler every event frame is addressed to.
const NotifyMethod = "client.showNotification"

// Control methods a client may send over the same connection to push
// identity context after join.
const (
	UpdateAttributesMethod = "participant.updateAttributes"
	UpdateMetadataMethod   = "participant.updateMetadata"
)

var ErrNoParticipant = errors.New("no reachable participant")

type Config struct {
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"5s"`
	ReadLimitBytes int64         `envconfig:"READ_LIMIT_BYTES" split_words:"true" default:"65536"`
	AllowAnyOrigin bool          `envconfig:"ALLOW_ANY_ORIGIN" split_words:"true" default:"true"`
}

// Participant is one connected remote peer.
type Participant struct {
	identity string

	mu         sync.RWMutex
	attributes map[string]string
	metadata   string

	writeMu sync.Mutex
	conn    *websocket.Conn
}

var _ contractx.Participant = (*Participant)(nil)

func (p *Participant) Identity() string {
	return p.identity
}

func (p *Participant) Attributes() map[string]string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]string, len(p.attributes))
	for k, v := range p.attributes {
		out[k] = v
	}
	return out
}

func (p *Participant) Metadata() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metadata
}

// frame is the wire envelope: a method name plus a JSON payload, matching
// the RPC the web client registers a handler for.
type frame struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload"`
}

// Room tracks connected participants and addresses events to them.
type Room struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu           sync.RWMutex
	participants map[string]*Participant
	order        []string

	dataHandler   func(p *Participant, message string)
	joinHandler   func(p *Participant)
	updateHandler func(p *Participant)
}

func NewRoom(cfg Config) *Room {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	r := &Room{
		cfg:          cfg,
		participants: make(map[string]*Participant),
	}
	r.upgrader = websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return cfg.AllowAnyOrigin },
	}
	return r
}

var _ contractx.Notifier = (*Room)(nil)

// OnData registers the handler for free-text data messages from a
// participant, e.g. welcome packets carrying a phone number.
func (r *Room) OnData(handler func(p *Participant, message string)) {
	r.dataHandler = handler
}

// OnJoin registers the handler invoked after a participant connects.
func (r *Room) OnJoin(handler func(p *Participant)) {
	r.joinHandler = handler
}

// OnUpdate registers the handler invoked after a participant pushes an
// attribute or metadata change over the connection.
func (r *Room) OnUpdate(handler func(p *Participant)) {
	r.updateHandler = handler
}

// LinkedParticipant resolves the participant the agent is talking to: the
// first remote participant still connected, in join order.
func (r *Room) LinkedParticipant() contractx.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if p, ok := r.participants[id]; ok {
			return p
		}
	}
	return nil
}

// Notify marshals payload and writes one frame to the resolved
// participant. Absence of a reachable participant is reported as an error
// for the caller to log; it is never a tool failure.
func (r *Room) Notify(ctx context.Context, payload any) error {
	target := r.LinkedParticipant()
	if target == nil {
		return ErrNoParticipant
	}
	p, ok := target.(*Participant)
	if !ok {
		return ErrNoParticipant
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	msg, err := json.Marshal(frame{Method: NotifyMethod, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal event frame: %w", err)
	}

	deadline := time.Now().Add(r.cfg.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return p.conn.WriteMessage(websocket.TextMessage, msg)
}

// ServeHTTP upgrades the connection and runs the participant read loop.
// Identity, attributes (JSON object), and metadata come from query
// parameters set by the client at join time.
func (r *Room) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	identity := req.URL.Query().Get("identity")
	if identity == "" {
		identity = uuid.NewString()
	}

	attrs := map[string]string{}
	if raw := req.URL.Query().Get("attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			log.Debug().Err(err).Str("identity", identity).Msg("ignoring malformed join attributes")
			attrs = map[string]string{}
		}
	}

	p := &Participant{
		identity:   identity,
		attributes: attrs,
		metadata:   req.URL.Query().Get("metadata"),
		conn:       conn,
	}
	r.join(p)
	defer r.leave(identity)

	if r.joinHandler != nil {
		r.joinHandler(p)
	}

	if r.cfg.ReadLimitBytes > 0 {
		conn.SetReadLimit(r.cfg.ReadLimitBytes)
	}
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Str("identity", identity).Msg("participant read loop ended")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if r.handleControl(p, data) {
			continue
		}
		if r.dataHandler != nil {
			r.dataHandler(p, string(data))
		}
	}
}

// handleControl applies a client control frame to the participant and
// reports whether the message was one. Anything that does not decode as a
// frame with a known method falls through to the data handler.
func (r *Room) handleControl(p *Participant, data []byte) bool {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil || f.Method == "" {
		return false
	}
	switch f.Method {
	case UpdateAttributesMethod:
		changed := map[string]string{}
		if err := json.Unmarshal(f.Payload, &changed); err != nil {
			log.Debug().Err(err).Str("identity", p.identity).Msg("ignoring malformed attribute update")
			return true
		}
		p.UpdateAttributes(changed)
	case UpdateMetadataMethod:
		var metadata string
		if err := json.Unmarshal(f.Payload, &metadata); err != nil {
			log.Debug().Err(err).Str("identity", p.identity).Msg("ignoring malformed metadata update")
			return true
		}
		p.UpdateMetadata(metadata)
	default:
		return false
	}
	if r.updateHandler != nil {
		r.updateHandler(p)
	}
	return true
}

func (r *Room) join(p *Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.participants[p.identity]; !exists {
		r.order = append(r.order, p.identity)
	}
	r.participants[p.identity] = p
	log.Info().Str("identity", p.identity).Msg("participant joined")
}

func (r *Room) leave(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[identity]
	if !ok {
		return
	}
	delete(r.participants, identity)
	for i, id := range r.order {
		if id == identity {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	_ = p.conn.Close()
	log.Info().Str("identity", identity).Msg("participant left")
}

// UpdateAttributes merges changed attributes into a participant, as a
// client would push over a side channel.
func (p *Participant) UpdateAttributes(changed map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.attributes == nil {
		p.attributes = make(map[string]string, len(changed))
	}
	for k, v := range changed {
		p.attributes[k] = v
	}
}

// UpdateMetadata replaces the participant metadata blob.
func (p *Participant) UpdateMetadata(metadata string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadata = metadata
}

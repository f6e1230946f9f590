package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/frontdeskai/frontdesk/agent/booking"
	contractx "github.com/frontdeskai/frontdesk/agent/contract"
	"github.com/frontdeskai/frontdesk/agent/gateway"
	"github.com/frontdeskai/frontdesk/agent/identity"
	"github.com/frontdeskai/frontdesk/agent/slots"
	statex "github.com/frontdeskai/frontdesk/agent/state"
	toolx "github.com/frontdeskai/frontdesk/agent/tool"
	configx "github.com/frontdeskai/frontdesk/pkg/config"
	_ "github.com/frontdeskai/frontdesk/pkg/logger/autoload"
	postgresx "github.com/frontdeskai/frontdesk/pkg/postgres"
	rpcx "github.com/frontdeskai/frontdesk/pkg/rpc"
)

type AppConfig struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" split_words:"true" default:":8080"`
}

type app struct {
	gateway  contractx.Gateway
	room     *rpcx.Room
	store    statex.Store
	slotsCfg slots.Config
	bookCfg  booking.Config
}

func main() {
	appCfg := configx.MustNew[AppConfig]("FRONTDESK")

	db := postgresx.MustConnect(*configx.MustNew[postgresx.Config]("POSTGRES"))
	if err := postgresx.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	a := &app{
		gateway:  gateway.NewPostgres(db),
		room:     rpcx.NewRoom(*configx.MustNew[rpcx.Config]("RPC")),
		store:    statex.NewStore(),
		slotsCfg: *configx.MustNew[slots.Config]("BOOKING"),
		bookCfg:  *configx.MustNew[booking.Config]("BOOKING"),
	}

	// Hydrate session identity from participant context at join time, again
	// on pushed attribute/metadata changes, and from free-text data packets.
	a.room.OnJoin(a.hydrateFromParticipant)
	a.room.OnUpdate(a.hydrateFromParticipant)
	a.room.OnData(func(p *rpcx.Participant, message string) {
		if ev, ok := identity.ExtractFromText(message); ok {
			session := a.store.GetOrCreate(p.Identity())
			session.FillIdentity(ev.Phone, ev.Name)
			a.notifyUserData(session, ev.Source)
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/rtc", a.room)
	mux.HandleFunc("/tools/", a.handleTool)

	log.Info().Str("addr", appCfg.ListenAddr).Msg("frontdesk agent listening")
	if err := http.ListenAndServe(appCfg.ListenAddr, mux); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
}

func (a *app) hydrateFromParticipant(p *rpcx.Participant) {
	a.hydrateSession(p, identity.AttributesProvider{Participant: p}, identity.MetadataProvider{Participant: p})
}

func (a *app) hydrateSession(p *rpcx.Participant, providers ...identity.Provider) {
	ev, err := identity.NewResolver(providers...).Resolve(context.Background())
	if err != nil {
		return
	}
	session := a.store.GetOrCreate(p.Identity())
	session.FillIdentity(ev.Phone, ev.Name)
	a.notifyUserData(session, ev.Source)
}

func (a *app) notifyUserData(session *statex.Session, source string) {
	contact, _ := session.Contact()
	err := a.room.Notify(context.Background(), contractx.ToolEvent{
		Type:   contractx.EventTypeUserData,
		Status: "updated",
		Data:   map[string]any{"phone": contact, "name": session.Name(), "source": source},
	})
	if err != nil {
		log.Warn().Err(err).Msg("user data notification failed")
	}
}

type toolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// handleTool runs one tool invocation for the session named in the path.
// This is the surface the conversational layer calls with arguments it has
// already extracted.
func (a *app) handleTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.URL.Path[len("/tools/"):]
	if sessionID == "" {
		http.Error(w, "session id is required", http.StatusBadRequest)
		return
	}

	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed tool request", http.StatusBadRequest)
		return
	}

	session := a.store.GetOrCreate(sessionID)
	orch, err := booking.New(
		a.gateway,
		a.room,
		slots.NewEngine(a.gateway, a.slotsCfg),
		session,
		a.bookCfg,
		booking.WithParticipant(a.room.LinkedParticipant()),
		booking.WithCloser(sessionCloser{store: a.store, sessionID: sessionID}),
	)
	if err != nil {
		http.Error(w, "orchestrator unavailable", http.StatusInternalServerError)
		return
	}

	_, executor := toolx.Build(orch)
	result, err := executor(r.Context(), req.Tool, req.Args)
	if err != nil {
		log.Error().Err(err).Str("tool", req.Tool).Msg("tool invocation failed")
		http.Error(w, "the action could not be completed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		log.Warn().Err(err).Msg("tool response encoding failed")
	}
}

// sessionCloser destroys the session record when the grace delay elapses.
type sessionCloser struct {
	store     statex.Store
	sessionID string
}

func (c sessionCloser) Shutdown() {
	c.store.Delete(c.sessionID)
	log.Info().Str("session", c.sessionID).Msg("session terminated")
}

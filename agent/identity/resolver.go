// Package identity merges identity evidence from session memory,
// client-supplied participant data, and explicit lookup, in a fixed
// priority order.
package identity

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	contractx "github.com/frontdeskai/frontdesk/agent/contract"
	"github.com/frontdeskai/frontdesk/agent/normalize"
	statex "github.com/frontdeskai/frontdesk/agent/state"
)

// Evidence is one provider's optional (phone, name) answer. Phone is
// canonical digits by the time it leaves a provider.
type Evidence struct {
	Phone  string
	Name   string
	Source string
}

// Provider yields identity evidence from one source. ok is false when the
// source has nothing usable; providers never fail the resolution.
type Provider interface {
	Lookup(ctx context.Context) (ev Evidence, ok bool)
}

// Resolver queries providers in priority order and short-circuits on the
// first one that yields a phone number.
type Resolver struct {
	providers []Provider
}

func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

func (r *Resolver) Resolve(ctx context.Context) (Evidence, error) {
	for _, p := range r.providers {
		if p == nil {
			continue
		}
		if ev, ok := p.Lookup(ctx); ok && ev.Phone != "" {
			return ev, nil
		}
	}
	return Evidence{}, contractx.ErrIdentityRequired
}

/* ------------------------------ providers ------------------------------ */

var (
	phoneKeys = []string{"user.phone", "user_phone", "phone"}
	nameKeys  = []string{"user.name", "user_name", "name"}
)

// SessionProvider answers from state already established this conversation.
type SessionProvider struct {
	Session *statex.Session
}

func (p SessionProvider) Lookup(context.Context) (Evidence, bool) {
	if p.Session == nil {
		return Evidence{}, false
	}
	contact, ok := p.Session.Contact()
	if !ok {
		return Evidence{}, false
	}
	return Evidence{Phone: contact, Name: p.Session.Name(), Source: "session"}, true
}

// AttributesProvider reads the connected participant's structured
// attributes. Values are client-controlled: an unparseable phone is
// discarded rather than trusted.
type AttributesProvider struct {
	Participant contractx.Participant
}

func (p AttributesProvider) Lookup(context.Context) (Evidence, bool) {
	if p.Participant == nil {
		return Evidence{}, false
	}
	attrs := p.Participant.Attributes()
	if len(attrs) == 0 {
		return Evidence{}, false
	}
	return fromKeyed(func(key string) string { return attrs[key] }, "participant_attributes")
}

// MetadataProvider reads the participant's metadata as a JSON object.
type MetadataProvider struct {
	Participant contractx.Participant
}

func (p MetadataProvider) Lookup(context.Context) (Evidence, bool) {
	if p.Participant == nil {
		return Evidence{}, false
	}
	raw := p.Participant.Metadata()
	if raw == "" {
		return Evidence{}, false
	}
	var parsed map[string]string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		log.Debug().Err(err).Msg("participant metadata is not a JSON object, skipping")
		return Evidence{}, false
	}
	return fromKeyed(func(key string) string { return parsed[key] }, "participant_metadata")
}

func fromKeyed(get func(string) string, source string) (Evidence, bool) {
	var rawPhone, rawName string
	for _, key := range phoneKeys {
		if v := get(key); v != "" {
			rawPhone = v
			break
		}
	}
	for _, key := range nameKeys {
		if v := get(key); v != "" {
			rawName = v
			break
		}
	}
	if rawPhone == "" {
		return Evidence{}, false
	}
	phone, err := normalize.Phone(rawPhone)
	if err != nil {
		log.Warn().Str("source", source).Msg("discarding unparseable participant phone")
		return Evidence{}, false
	}
	return Evidence{Phone: phone, Name: rawName, Source: source}, true
}

// LookupProvider resolves an explicit phone argument against the
// persistence gateway. The phone itself is enough evidence even when no
// user row exists yet; a matching row contributes the stored name.
type LookupProvider struct {
	Gateway     contractx.Gateway
	PhoneInput  string
	RequireUser bool
}

func (p LookupProvider) Lookup(ctx context.Context) (Evidence, bool) {
	if p.PhoneInput == "" {
		return Evidence{}, false
	}
	phone, err := normalize.Phone(p.PhoneInput)
	if err != nil {
		return Evidence{}, false
	}
	ev := Evidence{Phone: phone, Source: "lookup"}
	if p.Gateway == nil {
		return ev, !p.RequireUser
	}
	user, err := p.Gateway.UserByPhone(ctx, phone)
	switch {
	case err == nil:
		ev.Name = user.Name
		return ev, true
	case errors.Is(err, contractx.ErrNotFound):
		return ev, !p.RequireUser
	default:
		log.Error().Err(err).Msg("user lookup failed, continuing without record")
		return ev, !p.RequireUser
	}
}

// Package actor carries the identity of whoever issues a request.
// The identity is always supplied by the caller, never defaulted.
package actor

import (
	"context"
	"net/http"
	"strings"
)

const (
	HeaderActorID = "X-Actor-ID"
	HeaderAuth    = "Authorization"
)

// Actor is the authenticated principal on whose behalf calls are made.
type Actor struct {
	ID    string
	Token string
}

// Valid reports whether the actor can authorize a mutating call.
func (a Actor) Valid() bool {
	return strings.TrimSpace(a.ID) != "" || strings.TrimSpace(a.Token) != ""
}

type ctxKey struct{}

// NewContext returns ctx carrying a.
func NewContext(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored in ctx.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	if !ok || !a.Valid() {
		return Actor{}, false
	}
	return a, true
}

// FromRequest reads the actor headers set by the auth proxy.
func FromRequest(r *http.Request) Actor {
	a := Actor{ID: strings.TrimSpace(r.Header.Get(HeaderActorID))}
	if auth := r.Header.Get(HeaderAuth); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			a.Token = strings.TrimSpace(token)
		}
	}
	return a
}

// Apply sets the actor headers on an outbound request.
func (a Actor) Apply(req *http.Request) {
	if a.ID != "" {
		req.Header.Set(HeaderActorID, a.ID)
	}
	if a.Token != "" {
		req.Header.Set(HeaderAuth, "Bearer "+a.Token)
	}
}

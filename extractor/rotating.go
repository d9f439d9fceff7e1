package extractor

import (
	"context"
	"errors"
	"strings"

	"github.com/vidsan-cli/vidsan/domain"
	"github.com/vidsan-cli/vidsan/errs"
	"github.com/vidsan-cli/vidsan/key"
	"github.com/vidsan-cli/vidsan/network"
)

// Rotating is implemented by strategies whose site keeps moving to new
// domains. Their address is owned by a domain.Tracker.
type Rotating interface {
	Provider() domain.Provider
}

// site returns the provider's current state and a client whose redirects
// are reported back to the tracker.
func site(ctx context.Context, env Env, p domain.Provider) (domain.State, *network.Client, error) {
	if env.Tracker == nil {
		return domain.State{BaseURL: slash(p.Default), Phase: domain.Ready}, env.Client, nil
	}

	env.Tracker.Register(p)
	state, err := env.Tracker.Get(ctx, p.Name)
	if err != nil {
		return domain.State{}, nil, err
	}
	return state, env.Tracker.Client(p.Name), nil
}

// stale invalidates the address a request failed against when the host did
// not answer at all, so the next call runs discovery again.
func stale(env Env, state domain.State, name string, err error) {
	if env.Tracker == nil || errs.IsTLSValidation(err) {
		return
	}

	var netErr *errs.NetworkError
	if errors.As(err, &netErr) && netErr.Status == 0 {
		env.Tracker.Invalidate(name, state.Generation)
	}
}

// rotatingIdentity reports the tracked address as the main URL and keeps
// the default as an alias.
func rotatingIdentity(env Env, p domain.Provider) Identity {
	id := Identity{Name: p.Name, MainURL: slash(p.Default)}
	if env.Tracker == nil {
		return id
	}

	state, err := env.Tracker.Peek(p.Name)
	if err != nil || state.BaseURL == "" || Host(state.BaseURL) == Host(id.MainURL) {
		return id
	}
	return Identity{Name: p.Name, MainURL: state.BaseURL, AliasURLs: []string{id.MainURL}}
}

func slash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func autoupdate(env Env) bool {
	return env.setting(key.ProvidersAutoupdate, "true") != "false"
}

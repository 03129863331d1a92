package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// originPolicy decides which Origin headers may open a websocket. It can
// be swapped at runtime when the config file changes.
type originPolicy struct {
	allowed atomic.Pointer[string] // nil allows any origin
}

func newOriginPolicy(origin string) (*originPolicy, error) {
	p := &originPolicy{}
	if err := p.set(origin); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *originPolicy) set(origin string) error {
	normalized, anyOrigin, err := normalizeOrigin(origin)
	if err != nil {
		return err
	}
	if anyOrigin {
		p.allowed.Store(nil)
		return nil
	}
	p.allowed.Store(&normalized)
	return nil
}

// check is a websocket.Upgrader CheckOrigin func. Requests without an
// Origin header are desktop clients and are always allowed.
func (p *originPolicy) check(r *http.Request) bool {
	allowed := p.allowed.Load()
	if allowed == nil {
		return true
	}
	header := r.Header.Get("Origin")
	if header == "" {
		return true
	}
	got, _, err := normalizeOrigin(header)
	return err == nil && got == *allowed
}

// normalizeOrigin lowercases scheme://host[:port]. Empty and "*" mean any
// origin.
func normalizeOrigin(origin string) (normalized string, anyOrigin bool, err error) {
	origin = strings.TrimSpace(origin)
	if origin == "" || origin == "*" {
		return "", true, nil
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false, fmt.Errorf("invalid origin %q: want scheme://host[:port]", origin)
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), false, nil
}

package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mentor-miniapp/internal/model"
)

const (
	KeyID   = "mentor_webapp_id"
	KeyUser = "mentor_webapp_user"

	DefaultHeaderColor     = "#07101f"
	DefaultBackgroundColor = "#0f172a"
)

// KV is the local persistent store the fallback identity lives in.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Host is the embedding platform's mini-app surface. Every call is idempotent.
type Host interface {
	Ready()
	Expand()
	SetHeaderColor(color string)
	SetBackgroundColor(color string)
}

// HostContext is what the platform hands to the page on launch.
type HostContext struct {
	User    model.Identity
	HasUser bool
}

// ParseInitData reads the platform's launch query string (user=<json>&auth_date=...).
// A missing or empty string is not an error: it yields a context without a user.
func ParseInitData(raw string) (HostContext, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return HostContext{}, nil
	}
	q, err := url.ParseQuery(raw)
	if err != nil {
		return HostContext{}, fmt.Errorf("identity: parse init data: %w", err)
	}
	userJSON := strings.TrimSpace(q.Get("user"))
	if userJSON == "" {
		return HostContext{}, nil
	}
	var u model.Identity
	if err := json.Unmarshal([]byte(userJSON), &u); err != nil {
		return HostContext{}, fmt.Errorf("identity: parse init data user: %w", err)
	}
	if u.IsZero() {
		return HostContext{}, nil
	}
	return HostContext{User: u, HasUser: true}, nil
}

type Colors struct {
	Header     string
	Background string
}

type Resolver struct {
	kv     KV
	colors Colors
	now    func() time.Time
	log    *slog.Logger
}

type ResolverOption func(*Resolver)

func WithColors(c Colors) ResolverOption {
	return func(r *Resolver) {
		if strings.TrimSpace(c.Header) != "" {
			r.colors.Header = c.Header
		}
		if strings.TrimSpace(c.Background) != "" {
			r.colors.Background = c.Background
		}
	}
}

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

func NewResolver(kv KV, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		kv:     kv,
		colors: Colors{Header: DefaultHeaderColor, Background: DefaultBackgroundColor},
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the acting identity. A host context carrying a user wins (after
// the host setup calls); otherwise the locally persisted fallback is used,
// synthesizing and persisting one on first run.
func (r *Resolver) Resolve(ctx context.Context, host Host, hc HostContext) (model.Identity, error) {
	if host != nil {
		host.Ready()
		host.Expand()
		host.SetHeaderColor(r.colors.Header)
		host.SetBackgroundColor(r.colors.Background)
	}
	if hc.HasUser && !hc.User.IsZero() {
		return hc.User, nil
	}
	return r.fallback(ctx)
}

// Stored returns the persisted fallback identity without synthesizing one.
func (r *Resolver) Stored(ctx context.Context) (model.Identity, bool, error) {
	if r.kv == nil {
		return model.Identity{}, false, errors.New("identity: no local store")
	}
	raw, ok, err := r.kv.Get(ctx, KeyUser)
	if err != nil || !ok {
		return model.Identity{}, false, err
	}
	var id model.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.IsZero() {
		return model.Identity{}, false, nil
	}
	return id, true, nil
}

// Reset forgets the persisted fallback identity.
func (r *Resolver) Reset(ctx context.Context) error {
	if r.kv == nil {
		return errors.New("identity: no local store")
	}
	return r.kv.Delete(ctx, KeyUser, KeyID)
}

func (r *Resolver) fallback(ctx context.Context) (model.Identity, error) {
	if id, ok, err := r.Stored(ctx); err != nil {
		return model.Identity{}, err
	} else if ok {
		return id, nil
	}

	var n int64
	if raw, ok, err := r.kv.Get(ctx, KeyID); err != nil {
		return model.Identity{}, err
	} else if ok {
		n, _ = strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	}
	if n <= 0 {
		n = r.now().UnixMilli()
	}
	if err := r.kv.Set(ctx, KeyID, strconv.FormatInt(n, 10)); err != nil {
		return model.Identity{}, fmt.Errorf("identity: persist id: %w", err)
	}

	id := model.Identity{ID: n, Username: "webapp_dev", FirstName: "Web", LastName: "User"}
	b, err := json.Marshal(id)
	if err != nil {
		return model.Identity{}, err
	}
	if err := r.kv.Set(ctx, KeyUser, string(b)); err != nil {
		return model.Identity{}, fmt.Errorf("identity: persist user: %w", err)
	}
	r.log.Info("synthesized fallback identity", "id", n)
	return id, nil
}

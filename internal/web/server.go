package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"mentor-miniapp/internal/engine"
	"mentor-miniapp/internal/identity"
	"mentor-miniapp/internal/render"

	"github.com/starfederation/datastar-go/datastar"
)

//go:embed templates/*.html static/*.css
var assetsFS embed.FS

const (
	DefaultDatastarURL = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"
	DefaultSessionTTL  = 30 * 24 * time.Hour
	DefaultIdleTimeout = 2 * time.Hour

	maxFormBytes    = 1 << 20
	streamKeepAlive = 25 * time.Second
)

type ServerConfig struct {
	Addr string
	// StateDir holds the cookie signing key. Empty means a key per process.
	StateDir    string
	DatastarURL string
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

type Server struct {
	cfg      ServerConfig
	tmpl     *template.Template
	render   *render.Renderer
	sessions *sessionManager
	log      *slog.Logger

	keepAlive time.Duration
}

func NewServer(cfg ServerConfig, factory SessionFactory) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.DatastarURL = strings.TrimSpace(cfg.DatastarURL)
	if cfg.DatastarURL == "" {
		cfg.DatastarURL = DefaultDatastarURL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if factory == nil {
		return nil, errors.New("web: session factory is nil")
	}

	secret, err := loadOrInitSecretKey(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("web: signing key: %w", err)
	}
	tmpl, err := template.New("base").ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r, err := render.New()
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:       cfg,
		tmpl:      tmpl,
		render:    r,
		sessions:  newSessionManager(secret, cfg.SessionTTL, cfg.IdleTimeout, factory, cfg.Logger),
		log:       cfg.Logger,
		keepAlive: streamKeepAlive,
	}, nil
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /static/app.css", s.handleAppCSS)
	mux.HandleFunc("GET /stream", s.handleStream)
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("POST /intent/{surface}/{event}", s.handleIntent)
	mux.HandleFunc("GET /{$}", s.handleHome)
	return mux
}

// Serve runs the HTTP server on ln until ctx is cancelled, sweeping idle
// sessions in the background.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = hs.Shutdown(shutdownCtx)
				cancel()
				return
			case <-t.C:
				if n := s.sessions.sweep(); n > 0 {
					s.log.Info("idle sessions closed", "count", n)
				}
			}
		}
	}()

	err := hs.Serve(ln)
	<-done
	s.sessions.closeAll()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleAppCSS(w http.ResponseWriter, r *http.Request) {
	b, err := assetsFS.ReadFile("static/app.css")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(b)
}

type pageVM struct {
	DatastarURL    string
	Tab            render.Tab
	Regions        map[string]template.HTML
	Priorities     []string
	Difficulties   []string
	ResourceTypes  []string
	CleanupPeriods []string
	DefaultPeriod  string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.ensure(w, r)
	if err != nil {
		s.log.Error("session", "err", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	v := sess.View()
	frags, err := s.render.RenderAll(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	regions := make(map[string]template.HTML, len(frags))
	for _, f := range frags {
		// Fragments come out of html/template already escaped.
		regions[string(f.Region)] = template.HTML(f.HTML)
	}
	s.writeHTMLTemplate(w, "page.html", pageVM{
		DatastarURL:    s.cfg.DatastarURL,
		Tab:            v.Tab,
		Regions:        regions,
		Priorities:     []string{"medium", "low", "high", "critical"},
		Difficulties:   []string{"medium", "easy", "hard"},
		ResourceTypes:  []string{"article", "video", "course", "book", "other"},
		CleanupPeriods: engine.CleanupPeriods,
		DefaultPeriod:  engine.DefaultCleanupPeriod,
	})
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, b.String())
}

type sessionSignals struct {
	InitData string `json:"initData"`
}

// handleSession starts (or restarts) the browser's engine session. The page
// posts the platform's launch data as the initData signal.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var sig sessionSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		s.log.Debug("read signals", "err", err)
	}
	hc, err := identity.ParseInitData(sig.InitData)
	if err != nil {
		s.log.Warn("ignoring init data", "err", err)
		hc = identity.HostContext{}
	}

	sess, err := s.sessions.ensure(w, r)
	if err != nil {
		s.log.Error("session", "err", err)
		http.Error(w, "session unavailable", http.StatusInternalServerError)
		return
	}
	sess.SetHostContext(hc)
	host := &identity.ScriptHost{}
	if err := sess.Start(r.Context(), host); err != nil {
		s.log.Warn("session start", "err", err)
	}

	sse := datastar.NewSSE(w, r)
	if script := host.Script(); script != "" {
		_ = sse.ExecuteScript(script)
	}
	s.patchView(sse, sess)
}

func (s *Server) handleIntent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		// Swept or never opened: start over on the stored identity.
		var err error
		sess, err = s.sessions.ensure(w, r)
		if err != nil {
			s.log.Error("session", "err", err)
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if err := sess.Start(r.Context(), nil); err != nil {
			s.log.Warn("session start", "err", err)
		}
	}
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	in := engine.Intent{
		Surface: engine.Surface(r.PathValue("surface")),
		Event:   engine.EventKind(r.PathValue("event")),
		Values:  r.Form,
	}
	if err := sess.Dispatch(r.Context(), in); err != nil {
		s.log.Debug("intent", "surface", in.Surface, "event", in.Event, "err", err)
	}

	sse := datastar.NewSSE(w, r)
	s.patchView(sse, sess)
}

// handleStream pushes the whole view whenever the session notifies (toast
// expiry, delayed restarts, other tabs of the same browser).
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.lookup(r)
	if !ok {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}
	ch, cancel := sess.Hub().Subscribe()
	defer cancel()

	sse := datastar.NewSSE(w, r)

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			// An open page counts as activity; a swept session ends the stream.
			if _, ok := s.sessions.lookup(r); !ok {
				return
			}
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.patchView(sse, sess)
		}
	}
}

func (s *Server) patchView(sse *datastar.ServerSentEventGenerator, sess *engine.Session) {
	v := sess.View()
	frags, err := s.render.RenderAll(v)
	if err != nil {
		_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
		return
	}
	for _, f := range frags {
		if err := sse.PatchElements(f.HTML, datastar.WithSelector("#"+f.ID), datastar.WithMode(datastar.ElementPatchModeOuter)); err != nil {
			return
		}
	}
	_ = sse.MarshalAndPatchSignals(map[string]any{"tab": string(v.Tab)})
}

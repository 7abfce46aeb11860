// Package dashboard serves the operator console: the navigation shell, the
// live agent list and the task and metric pages.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"agentdash/pkg/platform"
	"agentdash/pkg/render"
	"agentdash/services/audit"
	"agentdash/services/dashboard/agentlist"
)

// ServiceName identifies the dashboard in traces and logs.
const ServiceName = "agentdash"

// Platform is the set of backend operations the dashboard uses.
type Platform interface {
	agentlist.Service
	GetAgent(ctx context.Context, id uint) (platform.Agent, error)
	CreateTask(ctx context.Context, params platform.CreateTaskParams) (platform.Task, error)
	ListTasks(ctx context.Context, agentID string) ([]platform.Task, error)
	GetTask(ctx context.Context, id uint) (platform.Task, error)
	QueryMetrics(ctx context.Context, q platform.MetricQuery) ([]platform.Metric, error)
}

// Options configures a Server.
type Options struct {
	Platform        Platform
	Engine          *render.Engine
	Audit           audit.Recorder
	Logger          zerolog.Logger
	Location        *time.Location
	RefreshInterval time.Duration
	AllowedOrigins  []string
	ActionRateLimit int
	// NewTicker overrides the polling ticker of every mounted view.
	NewTicker func(time.Duration) agentlist.Ticker
}

// Server holds the dashboard handlers and the views mounted by open streams.
type Server struct {
	platform  Platform
	engine    *render.Engine
	audit     audit.Recorder
	log       zerolog.Logger
	loc       *time.Location
	interval  time.Duration
	origins   []string
	rateLimit int
	newTicker func(time.Duration) agentlist.Ticker
	views     *registry
}

// New validates opts and returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Platform == nil {
		return nil, errors.New("dashboard: platform client is required")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Engine == nil {
		engine, err := render.New(render.WithLocation(opts.Location))
		if err != nil {
			return nil, err
		}
		opts.Engine = engine
	}
	if opts.Audit == nil {
		opts.Audit = audit.Nop{}
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = agentlist.DefaultInterval
	}
	if opts.ActionRateLimit <= 0 {
		opts.ActionRateLimit = 60
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	return &Server{
		platform:  opts.Platform,
		engine:    opts.Engine,
		audit:     opts.Audit,
		log:       opts.Logger,
		loc:       opts.Location,
		interval:  opts.RefreshInterval,
		origins:   opts.AllowedOrigins,
		rateLimit: opts.ActionRateLimit,
		newTicker: opts.NewTicker,
		views:     newRegistry(),
	}, nil
}

// MountedViews reports how many agent list streams are open.
func (s *Server) MountedViews() int {
	return s.views.len()
}

func (s *Server) renderPage(w http.ResponseWriter, status int, name string, page Page) {
	out, err := s.engine.RenderPage(name, page)
	if err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(out))
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	page := newPage(Route{Path: r.URL.Path}, title, detail)
	s.renderPage(w, status, "error", page)
}

func (s *Server) record(r *http.Request, action, resource string, err error, details map[string]any) {
	entry := audit.Entry{
		Action:    action,
		Resource:  resource,
		Status:    audit.StatusSuccess,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetReqID(r.Context()),
	}
	if err != nil {
		entry.Status = audit.StatusFailure
		if details == nil {
			details = map[string]any{}
		}
		details["error"] = err.Error()
	}
	if len(details) > 0 {
		if raw, mErr := json.Marshal(details); mErr == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("record audit entry")
	}
}

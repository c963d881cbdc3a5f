package server

import (
	"BookingInsight/src/charts"
	"BookingInsight/src/metrics"
	"BookingInsight/src/processor"
	"BookingInsight/src/session"
	"BookingInsight/src/storage"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Server 酒店预订看板的HTTP接口
type Server struct {
	dash     *session.Dashboard
	renderer *charts.Renderer
	logger   *storage.Logger
	metrics  *metrics.Metrics
	sheet    string
}

func New(dash *session.Dashboard, renderer *charts.Renderer, logger *storage.Logger, m *metrics.Metrics) *Server {
	return &Server{
		dash:     dash,
		renderer: renderer,
		logger:   logger,
		metrics:  m,
		sheet:    "bookings",
	}
}

// Routes 注册所有路由
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/status", s.handleStatus)
		r.Get("/options", s.handleOptions)
		r.Get("/head", s.handleHead)
		r.Get("/bookings", s.handleBookings)
		r.Get("/describe", s.handleDescribe)
		r.Get("/view", s.handleView)
		r.Get("/counts/{dim}", s.handleCounts)
		r.Get("/histogram/{col}", s.handleHistogram)
		r.Get("/charts/{name}.png", s.handleChart)
		r.Get("/export.xlsx", s.handleExportXLSX)
		r.Get("/export.csv", s.handleExportCSV)
		r.Post("/reload", s.handleReload)
	})

	r.Get("/logs", s.handleLogs)
	r.Handle("/metrics", s.metrics.Handler())
	return r
}

// instrument 按路由模板统计请求
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

// ErrResponse 错误响应
type ErrResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	render.Status(r, status)
	render.JSON(w, r, ErrResponse{Error: err.Error()})
}

// snapshot 未加载时返回503
func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (*session.Snapshot, bool) {
	snap, err := s.dash.Snapshot()
	if err != nil {
		s.fail(w, r, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return snap, true
}

// filtered 按查询参数筛选当前快照
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) (*session.Snapshot, processor.Table, bool) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return nil, processor.Table{}, false
	}
	table, err := processor.FilterE(snap.Table, parseSelection(r))
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return nil, processor.Table{}, false
	}
	return snap, table, true
}

// parseSelection month/hotel 可重复出现, 也可以逗号分隔; 月份统一为首字母大写
func parseSelection(r *http.Request) processor.Selection {
	q := r.URL.Query()
	caser := cases.Title(language.English)

	var sel processor.Selection
	for _, m := range splitValues(q["month"]) {
		sel.Months = append(sel.Months, caser.String(m))
	}
	sel.Hotels = splitValues(q["hotel"])
	return sel
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var errBadParam = errors.New("invalid parameter")

func parseDisplay(r *http.Request) (session.Display, error) {
	var d session.Display
	flags := []struct {
		name string
		dst  *bool
	}{
		{"cumulative", &d.Cumulative},
		{"custom_color", &d.CustomColor},
		{"extra_scatter", &d.ExtraScatter},
		{"describe", &d.Describe},
	}
	for _, f := range flags {
		v, err := parseBool(r, f.name)
		if err != nil {
			return d, err
		}
		*f.dst = v
	}
	return d, nil
}

func parseBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", errBadParam, name, raw)
	}
	return v, nil
}

// parseInt 空值返回 def, 负数视为非法
func parseInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadParam, name, raw)
	}
	return v, nil
}

package server

import (
	"BookingInsight/src/processor"
	"BookingInsight/src/session"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

const defaultHeadRows = 5

type statusResponse struct {
	ID       uuid.UUID        `json:"id"`
	Source   string           `json:"source"`
	LoadedAt time.Time        `json:"loaded_at"`
	Rows     int              `json:"rows"`
	Columns  []string         `json:"columns"`
	Report   processor.Report `json:"report"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, statusResponse{
		ID:       snap.ID,
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Rows:     snap.Table.Nrow(),
		Columns:  snap.Table.Names(),
		Report:   snap.Report,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	choices, err := processor.Selectable(snap.Table)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, choices)
}

type rowsResponse struct {
	Total int                      `json:"total"`
	Rows  []map[string]interface{} `json:"rows"`
}

// handleHead 清洗后整表的前n行, 不受筛选影响
func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	n, err := parseInt(r, "n", defaultHeadRows)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, rowsResponse{
		Total: snap.Table.Nrow(),
		Rows:  processor.Head(snap.Table, n).Rows(),
	})
}

// handleBookings 筛选后的行, limit=0 表示全部
func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	limit, err := parseInt(r, "limit", 0)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}
	rows := table
	if limit > 0 {
		rows = processor.Head(table, limit)
	}
	render.JSON(w, r, rowsResponse{Total: table.Nrow(), Rows: rows.Rows()})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, processor.Describe(table))
}

// handleView 一次返回筛选视图的全部投影
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	disp, err := parseDisplay(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	bins, err := parseInt(r, "bins", s.dash.Bins())
	if err != nil || bins == 0 || bins > processor.MaxBins {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: bins 取值 1..%d", errBadParam, processor.MaxBins))
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	v, err := session.NewView(snap, parseSelection(r), disp, bins)
	if err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, v)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	dim := chi.URLParam(r, "dim")
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}
	counts, err := processor.GroupCounts(table, dim)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	render.JSON(w, r, counts)
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	col := chi.URLParam(r, "col")
	bins, err := parseInt(r, "bins", s.dash.Bins())
	if err != nil || bins == 0 || bins > processor.MaxBins {
		s.fail(w, r, http.StatusBadRequest, fmt.Errorf("%w: bins 取值 1..%d", errBadParam, processor.MaxBins))
		return
	}
	cumulative, err := parseBool(r, "cumulative")
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}
	h, err := processor.NewHistogram(table, col, bins, cumulative)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}
	render.JSON(w, r, h)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.dash.Reload(r.Context()); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	s.handleStatus(w, r)
}

// statusFor 投影错误对应的HTTP状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, processor.ErrMissingColumn):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrNotNumeric), errors.Is(err, processor.ErrBadBins), errors.Is(err, errBadParam):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

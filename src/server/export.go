package server

import (
	"BookingInsight/src/processor"
	"BookingInsight/src/utils"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/xuri/excelize/v2"
)

var errUnknownChart = errors.New("unknown chart")

// handleChart 渲染筛选后的图表
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	disp, err := parseDisplay(r)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.drawChart(&buf, name, table, disp.Cumulative, disp.CustomColor); err != nil {
		switch {
		case errors.Is(err, errUnknownChart):
			s.fail(w, r, http.StatusNotFound, err)
		default:
			s.fail(w, r, statusFor(err), err)
		}
		return
	}
	s.metrics.ChartsRender.WithLabelValues(name).Inc()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) drawChart(buf *bytes.Buffer, name string, table processor.Table, cumulative, custom bool) error {
	bins := s.dash.Bins()
	switch name {
	case "lead-time":
		h, err := processor.NewHistogram(table, processor.ColLeadTime, bins, cumulative)
		if err != nil {
			return err
		}
		return s.renderer.LeadTimeHistogram(buf, h)
	case "adr-by-month":
		fh, err := processor.NewFacetHistogram(table, processor.ColADR, processor.ColArrivalMonth, bins)
		if err != nil {
			return err
		}
		return s.renderer.FacetHistogram(buf, "ADR Distribution by Arrival Month", fh)
	case "lead-time-by-hotel":
		fh, err := processor.NewFacetHistogram(table, processor.ColLeadTime, processor.ColHotel, bins)
		if err != nil {
			return err
		}
		return s.renderer.FacetHistogram(buf, "Lead Time Distribution by Hotel Type", fh)
	case "lead-time-vs-adr":
		sc, err := processor.NewScatter(table, processor.ColLeadTime, processor.ColADR)
		if err != nil {
			return err
		}
		return s.renderer.LeadTimeVsADR(buf, sc, custom)
	case "guests-vs-week-nights":
		sc, err := processor.NewScatter(table, processor.ColTotalGuests, processor.ColWeekNights)
		if err != nil {
			return err
		}
		return s.renderer.GuestsVsWeekNights(buf, sc)
	default:
		return fmt.Errorf("%w: %s", errUnknownChart, name)
	}
}

// handleExportXLSX 筛选后的表导出为xlsx
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := utils.WriteSheet(f, table.Frame(), s.sheet); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	// 导出只保留数据表
	if err := utils.DropDefaultSheet(f, s.sheet); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		s.fail(w, r, http.StatusInternalServerError, fmt.Errorf("生成xlsx失败: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment("xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	_, table, ok := s.filtered(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment("csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func attachment(ext string) string {
	return fmt.Sprintf(`attachment; filename="hotel_booking_%s.%s"`, time.Now().Format("20060102150405"), ext)
}

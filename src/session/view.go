package session

import (
	"BookingInsight/src/processor"
	"fmt"

	"github.com/google/uuid"
)

// Display 可选展示项
type Display struct {
	Cumulative   bool `json:"cumulative"`    // lead_time 直方图显示累计
	CustomColor  bool `json:"custom_color"`  // 散点图使用自定义颜色
	ExtraScatter bool `json:"extra_scatter"` // 额外显示 total_guests vs stays_in_week_nights
	Describe     bool `json:"describe"`      // 显示描述统计
}

// View 一次交互的结果, 全部从筛选后的表计算
type View struct {
	SnapshotID uuid.UUID           `json:"snapshot_id"`
	Selection  processor.Selection `json:"selection"`
	Display    Display             `json:"display"`
	Table      processor.Table     `json:"-"`

	LeadTime        processor.Histogram       `json:"lead_time"`
	ADRByMonth      processor.FacetHistogram  `json:"adr_by_month"`
	LeadTimeByHotel processor.FacetHistogram  `json:"lead_time_by_hotel"`
	LeadTimeVsADR   processor.Scatter         `json:"lead_time_vs_adr"`
	GuestsVsNights  *processor.Scatter        `json:"guests_vs_week_nights,omitempty"`
	Summary         []processor.ColumnSummary `json:"summary,omitempty"`
}

// View 按筛选条件和展示项计算视图, 不修改快照
func (d *Dashboard) View(sel processor.Selection, disp Display) (*View, error) {
	snap, err := d.Snapshot()
	if err != nil {
		return nil, err
	}
	return NewView(snap, sel, disp, d.bins)
}

// NewView 从快照计算视图
func NewView(snap *Snapshot, sel processor.Selection, disp Display, bins int) (*View, error) {
	table, err := processor.FilterE(snap.Table, sel)
	if err != nil {
		return nil, err
	}

	v := &View{
		SnapshotID: snap.ID,
		Selection:  sel,
		Display:    disp,
		Table:      table,
	}

	if v.LeadTime, err = processor.NewHistogram(table, processor.ColLeadTime, bins, disp.Cumulative); err != nil {
		return nil, fmt.Errorf("lead_time 直方图: %w", err)
	}
	if v.ADRByMonth, err = processor.NewFacetHistogram(table, processor.ColADR, processor.ColArrivalMonth, bins); err != nil {
		return nil, fmt.Errorf("adr 分月直方图: %w", err)
	}
	if v.LeadTimeByHotel, err = processor.NewFacetHistogram(table, processor.ColLeadTime, processor.ColHotel, bins); err != nil {
		return nil, fmt.Errorf("lead_time 分酒店直方图: %w", err)
	}
	if v.LeadTimeVsADR, err = processor.NewScatter(table, processor.ColLeadTime, processor.ColADR); err != nil {
		return nil, fmt.Errorf("lead_time/adr 散点: %w", err)
	}

	if disp.ExtraScatter {
		sc, err := processor.NewScatter(table, processor.ColTotalGuests, processor.ColWeekNights)
		if err != nil {
			return nil, fmt.Errorf("total_guests/stays_in_week_nights 散点: %w", err)
		}
		v.GuestsVsNights = &sc
	}
	if disp.Describe {
		v.Summary = processor.Describe(table)
	}
	return v, nil
}

package datapush

import (
	"BookingInsight/src/charts"
	"BookingInsight/src/metrics"
	"BookingInsight/src/processor"
	"BookingInsight/src/session"
	"BookingInsight/src/storage"
	"BookingInsight/src/utils"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Summary 推送给 webhook 的报表摘要
type Summary struct {
	GeneratedAt time.Time                 `json:"generated_at"`
	SnapshotID  uuid.UUID                 `json:"snapshot_id"`
	Source      string                    `json:"source"`
	Rows        int                       `json:"rows"`
	Report      processor.Report          `json:"report"`
	Hotels      []processor.GroupCount    `json:"hotels"`
	Months      []processor.GroupCount    `json:"months"`
	Describe    []processor.ColumnSummary `json:"describe"`
}

// BuildSummary 汇总当前快照
func BuildSummary(snap *session.Snapshot, now time.Time) (Summary, error) {
	hotels, err := processor.GroupCounts(snap.Table, processor.ColHotel)
	if err != nil {
		return Summary{}, err
	}
	months, err := processor.GroupCounts(snap.Table, processor.ColArrivalMonth)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		GeneratedAt: now,
		SnapshotID:  snap.ID,
		Source:      snap.Source,
		Rows:        snap.Table.Nrow(),
		Report:      snap.Report,
		Hotels:      hotels,
		Months:      months,
		Describe:    processor.Describe(snap.Table),
	}, nil
}

// Text 邮件正文
func (s Summary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "酒店预订数据报表 %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "数据源: %s\n", s.Source)
	fmt.Fprintf(&b, "清洗前 %d 行, 清洗后 %d 行\n", s.Report.InputRows, s.Rows)
	fmt.Fprintf(&b, "丢弃: 无人入住 %d, 日期无法解析 %d, adr无效 %d\n",
		s.Report.DroppedEmptyParty, s.Report.UnparseableDates, s.Report.DroppedInvalidADR)
	for _, h := range s.Hotels {
		fmt.Fprintf(&b, "  %s: %d\n", h.Key, h.Count)
	}
	return b.String()
}

// Mailer 发送带附件的报表邮件
type Mailer func(body string, attachments ...string) error

// Job 定时报表: 导出xlsx, 推送 webhook, 可选发邮件
type Job struct {
	Dash      *session.Dashboard
	Renderer  *charts.Renderer
	Pusher    *Pusher // 为空时不推送
	Mailer    Mailer  // 为空时不发邮件
	ExportDir string
	Sheet     string

	Logger  *storage.Logger
	Metrics *metrics.Metrics
	Now     func() time.Time
}

// Run 执行一次报表任务, 返回导出的xlsx路径
func (j *Job) Run(ctx context.Context) (string, error) {
	path, err := j.run(ctx)
	result := "ok"
	if err != nil {
		result = "error"
		j.Logger.Error("报表任务失败: " + err.Error())
	} else {
		j.Logger.Info("报表任务完成: " + path)
	}
	if j.Metrics != nil {
		j.Metrics.ReportPushes.WithLabelValues(result).Inc()
	}
	return path, err
}

func (j *Job) run(ctx context.Context) (string, error) {
	snap, err := j.Dash.Snapshot()
	if err != nil {
		return "", err
	}
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}

	summary, err := BuildSummary(snap, now)
	if err != nil {
		return "", fmt.Errorf("汇总失败: %w", err)
	}

	path, err := j.export(snap, now)
	if err != nil {
		return "", err
	}

	if j.Pusher != nil {
		hist, err := processor.NewHistogram(snap.Table, processor.ColLeadTime, j.Dash.Bins(), false)
		if err != nil {
			return path, fmt.Errorf("生成直方图失败: %w", err)
		}
		var png bytes.Buffer
		if err := j.Renderer.LeadTimeHistogram(&png, hist); err != nil {
			return path, fmt.Errorf("渲染图表失败: %w", err)
		}
		if err := j.Pusher.Push(ctx, summary, png.Bytes()); err != nil {
			return path, fmt.Errorf("推送失败: %w", err)
		}
	}

	if j.Mailer != nil {
		if err := j.Mailer(summary.Text(), path); err != nil {
			return path, err
		}
	}
	return path, nil
}

func (j *Job) export(snap *session.Snapshot, now time.Time) (string, error) {
	dir := j.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建导出目录失败: %w", err)
	}
	sheet := j.Sheet
	if sheet == "" {
		sheet = "bookings"
	}
	path := filepath.Join(dir, fmt.Sprintf("hotel_booking_%s.xlsx", now.Format("20060102150405")))
	if err := utils.SaveToExcel(snap.Table.Frame(), path, sheet); err != nil {
		return "", err
	}
	return path, nil
}

package session

import (
	"BookingInsight/src/datasource/file"
	"BookingInsight/src/metrics"
	"BookingInsight/src/processor"
	"BookingInsight/src/storage"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
)

// ErrNotLoaded 还没有成功加载过数据集
var ErrNotLoaded = errors.New("dataset not loaded")

// Loader 读取原始数据集
type Loader func(path string, opts file.LoadOptions) (dataframe.DataFrame, error)

// Options Dashboard 参数
type Options struct {
	Path   string
	Load   file.LoadOptions
	Clean  processor.Options
	Bins   int    // 直方图分箱数
	Loader Loader // 为空时使用 file.Load
}

// Snapshot 一次成功加载的结果, 创建后不再修改
type Snapshot struct {
	ID       uuid.UUID        `json:"id"`
	LoadedAt time.Time        `json:"loaded_at"`
	Source   string           `json:"source"`
	Table    processor.Table  `json:"-"`
	Report   processor.Report `json:"report"`
}

// Dashboard 持有当前的清洗结果, 所有视图都从它派生
type Dashboard struct {
	path    string
	opts    file.LoadOptions
	loader  Loader
	cleaner *processor.Cleaner
	bins    int

	logger  *storage.Logger
	metrics *metrics.Metrics

	loadMu  sync.Mutex // 同一时间只做一次加载
	mu      sync.RWMutex
	current *Snapshot
}

func NewDashboard(opts Options, logger *storage.Logger, m *metrics.Metrics) *Dashboard {
	if opts.Bins <= 0 {
		opts.Bins = 50
	}
	if opts.Bins > processor.MaxBins {
		opts.Bins = processor.MaxBins
	}
	if opts.Loader == nil {
		opts.Loader = file.Load
	}
	return &Dashboard{
		path:    opts.Path,
		opts:    opts.Load,
		loader:  opts.Loader,
		cleaner: processor.NewCleaner(opts.Clean),
		bins:    opts.Bins,
		logger:  logger,
		metrics: m,
	}
}

// Bins 直方图默认分箱数
func (d *Dashboard) Bins() int { return d.bins }

// Path 数据集路径
func (d *Dashboard) Path() string { return d.path }

// Load 读取并清洗数据集, 成功后替换当前快照
func (d *Dashboard) Load(ctx context.Context) (*Snapshot, error) {
	d.loadMu.Lock()
	defer d.loadMu.Unlock()

	snap, err := d.build(ctx)
	if err != nil {
		d.metrics.Reloads.WithLabelValues("error").Inc()
		return nil, err
	}

	d.mu.Lock()
	d.current = snap
	d.mu.Unlock()

	d.record(snap)
	return snap, nil
}

// Reload 重新加载, 失败时保留上一次的快照
func (d *Dashboard) Reload(ctx context.Context) error {
	snap, err := d.Load(ctx)
	if err != nil {
		d.logger.Error(fmt.Sprintf("重新加载数据集失败, 继续使用上一版本: %v", err))
		return err
	}
	d.logger.Info(fmt.Sprintf("数据集已重新加载: %s (%s)", snap.Source, snap.ID))
	return nil
}

func (d *Dashboard) build(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t1 := time.Now()

	raw, err := d.loader(d.path, d.opts)
	if err != nil {
		return nil, fmt.Errorf("读取数据集失败: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, report, err := d.cleaner.Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("清洗数据集失败: %w", err)
	}

	d.logger.Info(fmt.Sprintf("数据处理时间：%v, 输入 %d 行, 输出 %d 行",
		time.Since(t1), report.InputRows, report.OutputRows))
	return &Snapshot{
		ID:       uuid.New(),
		LoadedAt: time.Now(),
		Source:   d.path,
		Table:    table,
		Report:   report,
	}, nil
}

func (d *Dashboard) record(snap *Snapshot) {
	r := snap.Report
	if r.UnparseableDates > 0 {
		d.logger.Warning(fmt.Sprintf("%d 行 reservation_status_date 无法解析, 已丢弃", r.UnparseableDates))
	}
	if r.DroppedEmptyParty > 0 {
		d.logger.Info(fmt.Sprintf("%d 行 adults+children 为0, 已丢弃", r.DroppedEmptyParty))
	}
	if r.DroppedInvalidADR > 0 {
		d.logger.Info(fmt.Sprintf("%d 行 adr<=0, 已丢弃", r.DroppedInvalidADR))
	}

	d.metrics.Reloads.WithLabelValues("ok").Inc()
	d.metrics.CleanedRows.Set(float64(r.OutputRows))
	d.metrics.DroppedRows.WithLabelValues("empty_party").Set(float64(r.DroppedEmptyParty))
	d.metrics.DroppedRows.WithLabelValues("unparseable_date").Set(float64(r.UnparseableDates))
	d.metrics.DroppedRows.WithLabelValues("invalid_adr").Set(float64(r.DroppedInvalidADR))
}

// Snapshot 当前快照
func (d *Dashboard) Snapshot() (*Snapshot, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.current == nil {
		return nil, ErrNotLoaded
	}
	return d.current, nil
}

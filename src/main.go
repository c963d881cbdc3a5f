package main

import (
	"BookingInsight/src/charts"
	"BookingInsight/src/config"
	"BookingInsight/src/datapush"
	"BookingInsight/src/datasource/email"
	"BookingInsight/src/datasource/file"
	"BookingInsight/src/metrics"
	"BookingInsight/src/processor"
	"BookingInsight/src/server"
	"BookingInsight/src/session"
	"BookingInsight/src/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMailInterval = 10 * time.Minute
	shutdownTimeout     = 10 * time.Second
	rotateSpec          = "@every 1m"
)

// app 进程内共享的组件
type app struct {
	cfg      *config.Config
	dcfg     *config.DataConfig
	logger   *storage.Logger
	metrics  *metrics.Metrics
	dash     *session.Dashboard
	renderer *charts.Renderer
}

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	a := newApp(cfg, dcfg, logger, metrics.New())

	// 数据集加载失败直接退出
	if _, err := a.dash.Load(context.Background()); err != nil {
		logger.Fatal("加载数据集失败: " + err.Error())
		log.Fatal("加载数据集失败: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.run(ctx); err != nil {
		logger.Error("服务异常退出: " + err.Error())
		logger.Close()
		os.Exit(1)
	}
	logger.Info("服务已退出")
}

func newApp(cfg *config.Config, dcfg *config.DataConfig, logger *storage.Logger, m *metrics.Metrics) *app {
	dash := session.NewDashboard(session.Options{
		Path: cfg.DataFile,
		Load: file.LoadOptions{
			SheetName:     cfg.SheetName,
			MissingValues: dcfg.MissingValues,
		},
		Clean: processor.Options{
			CategoricalColumns: dcfg.GetCategoricalColumns(),
			DateLayouts:        dcfg.DateLayouts,
			UnknownCountry:     dcfg.UnknownCountry,
		},
		Bins: dcfg.HistogramBins,
	}, logger, m)

	return &app{
		cfg:      cfg,
		dcfg:     dcfg,
		logger:   logger,
		metrics:  m,
		dash:     dash,
		renderer: charts.NewRenderer(dcfg.ChartWidth, dcfg.ChartHeight),
	}
}

// run 启动HTTP服务、文件监控和定时任务, ctx 结束后全部退出
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           server.New(a.dash, a.renderer, a.logger, a.metrics).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		a.logger.Info("HTTP服务启动: " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP服务失败: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Watch.Enabled {
		monitor, err := file.NewFileMonitor(a.cfg.DataFile, a.logger)
		if err != nil {
			return fmt.Errorf("创建文件监控失败: %w", err)
		}
		g.Go(func() error {
			defer monitor.Close()
			a.logger.Info("开始监控数据集: " + a.cfg.DataFile)
			return monitor.Watch(ctx, func(path string) {
				a.logger.Info("数据集已变化: " + path)
				_ = a.dash.Reload(ctx)
			})
		})
	}

	c, err := a.schedule(ctx)
	if err != nil {
		return err
	}
	c.Start()
	g.Go(func() error {
		<-ctx.Done()
		c.Stop()
		return nil
	})

	g.Go(func() error {
		return a.reopenOnHUP(ctx)
	})

	return g.Wait()
}

// schedule 注册日志轮转、邮箱检查和报表推送
func (a *app) schedule(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()

	if err := c.AddFunc(rotateSpec, func() {
		if err := a.logger.CheckRotate(a.cfg); err != nil {
			a.logger.Error("日志轮转失败: " + err.Error())
		}
	}); err != nil {
		return nil, fmt.Errorf("创建日志轮转任务失败: %w", err)
	}

	if a.cfg.Email.Enabled {
		interval := time.Duration(a.cfg.Email.CheckInterval)
		if interval <= 0 {
			interval = defaultMailInterval
		}
		cronSpec := fmt.Sprintf("@every %s", interval)

		client := email.NewEmailClient(a.cfg.Email.Server, a.cfg.Email.Username, a.cfg.Email.Password, a.logger)
		handler := email.NewDatasetHandler(a.cfg.Email.TargetSubject, a.cfg.DataDir, a.logger)
		if err := c.AddFunc(cronSpec, func() {
			jobCtx, cancel := context.WithTimeout(ctx, interval)
			defer cancel()
			a.checkMail(jobCtx, client, handler)
		}); err != nil {
			return nil, fmt.Errorf("创建邮箱检查任务失败: %w", err)
		}
		a.logger.Info(fmt.Sprintf("邮件监控已启动(检查间隔: %v)", interval))
	}

	if job := a.reportJob(); job != nil {
		if err := c.AddFunc(a.cfg.Report.Cron, func() {
			_, _ = job.Run(ctx)
		}); err != nil {
			return nil, fmt.Errorf("创建报表任务失败: %w", err)
		}
	}
	return c, nil
}

// checkMail 保存新附件; 没开文件监控时, 覆盖了数据集就主动重新加载
func (a *app) checkMail(ctx context.Context, svc email.MailService, handler email.EmailHandler) {
	saved, err := email.CheckAndProcessEmails(ctx, svc, handler, a.logger)
	if err != nil {
		a.logger.Error("检查处理邮件失败: " + err.Error())
	}
	a.metrics.MailFetched.Add(float64(len(saved)))

	if !a.cfg.Watch.Enabled && touchesDataset(saved, a.cfg.DataFile) {
		_ = a.dash.Reload(ctx)
	}
}

// reportJob 没有配置任何推送渠道时返回 nil
func (a *app) reportJob() *datapush.Job {
	if a.cfg.Report.Cron == "" {
		return nil
	}
	if a.cfg.Report.WebhookURL == "" && !a.cfg.SendEmail.Enabled {
		return nil
	}

	job := &datapush.Job{
		Dash:      a.dash,
		Renderer:  a.renderer,
		ExportDir: a.cfg.Report.ExportDir,
		Sheet:     a.cfg.SheetName,
		Logger:    a.logger,
		Metrics:   a.metrics,
	}
	if a.cfg.Report.WebhookURL != "" {
		job.Pusher = datapush.NewPusher(a.cfg.Report.WebhookURL)
	}
	if a.cfg.SendEmail.Enabled {
		settings := email.SMTPSettings{
			Server:   a.cfg.SendEmail.Server,
			Username: a.cfg.SendEmail.Username,
			Password: a.cfg.SendEmail.Password,
			To:       a.cfg.SendEmail.To,
			Subject:  a.cfg.SendEmail.Subject,
		}
		job.Mailer = func(body string, attachments ...string) error {
			return email.SendReport(settings, body, attachments...)
		}
	}
	return job
}

// reopenOnHUP 收到 SIGHUP 时重新打开日志文件, 配合外部 logrotate
func (a *app) reopenOnHUP(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := a.logger.Reopen(a.cfg.LogName); err != nil {
				return fmt.Errorf("重新打开日志失败: %w", err)
			}
			a.logger.Info("收到 SIGHUP, 日志文件已重新打开")
		}
	}
}

func touchesDataset(saved []string, dataFile string) bool {
	target, err := filepath.Abs(dataFile)
	if err != nil {
		return false
	}
	for _, p := range saved {
		if abs, err := filepath.Abs(p); err == nil && abs == target {
			return true
		}
	}
	return false
}

package datapush

import (
	"BookingInsight/src/charts"
	"BookingInsight/src/metrics"
	"BookingInsight/src/processor"
	"BookingInsight/src/session"
	"BookingInsight/src/storage"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const bookingsCSV = `hotel,arrival_date_month,adults,children,babies,country,adr,lead_time,stays_in_week_nights,reservation_status_date,company,agent
Resort Hotel,July,2,0,0,PRT,75.0,342,0,2015-07-01,,
Resort Hotel,July,0,0,2,PRT,100.0,10,2,2015-07-02,,
City Hotel,August,1,1,1,,120.0,9,3,2015-08-04,,240
City Hotel,December,2,2,0,DEU,150.25,50,5,2015-12-01,,9
`

func newJob(t *testing.T, load bool) (*Job, *metrics.Metrics) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hotel_booking.csv")
	require.NoError(t, os.WriteFile(path, []byte(bookingsCSV), 0644))

	logger, err := storage.NewLogger(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })

	m := metrics.New()
	dash := session.NewDashboard(session.Options{Path: path, Bins: 10}, logger, m)
	if load {
		_, err := dash.Load(context.Background())
		require.NoError(t, err)
	}
	return &Job{
		Dash:      dash,
		Renderer:  charts.NewRenderer(320, 240),
		ExportDir: filepath.Join(dir, "exports"),
		Logger:    logger,
		Metrics:   m,
		Now:       func() time.Time { return time.Date(2015, 12, 31, 8, 0, 0, 0, time.UTC) },
	}, m
}

func counterValue(t *testing.T, m *metrics.Metrics, result string) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.ReportPushes.WithLabelValues(result).Write(&out))
	return out.GetCounter().GetValue()
}

func TestBuildSummary(t *testing.T) {
	job, _ := newJob(t, true)
	snap, err := job.Dash.Snapshot()
	require.NoError(t, err)

	now := time.Now()
	s, err := BuildSummary(snap, now)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, s.SnapshotID)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 4, s.Report.InputRows)
	assert.Equal(t, []processor.GroupCount{{Key: "City Hotel", Count: 2}, {Key: "Resort Hotel", Count: 1}}, s.Hotels)
	assert.Equal(t, []processor.GroupCount{{Key: "July", Count: 1}, {Key: "August", Count: 1}, {Key: "December", Count: 1}}, s.Months)
	assert.NotEmpty(t, s.Describe)

	text := s.Text()
	assert.Contains(t, text, "清洗前 4 行, 清洗后 3 行")
	assert.Contains(t, text, "City Hotel: 2")
}

func TestJobRun(t *testing.T) {
	job, m := newJob(t, true)
	hook := &webhook{}
	srv := httptest.NewServer(hook)
	defer srv.Close()
	job.Pusher = NewPusher(srv.URL).WithRetry(1, 0)

	var mailed []string
	var body string
	job.Mailer = func(text string, attachments ...string) error {
		body = text
		mailed = attachments
		return nil
	}

	path, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(job.ExportDir, "hotel_booking_20151231080000.xlsx"), path)
	assert.Equal(t, []string{path}, mailed)
	assert.Contains(t, body, "Resort Hotel: 1")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"bookings"}, f.GetSheetList())
	rows, err := f.GetRows("bookings")
	require.NoError(t, err)
	assert.Len(t, rows, 4) // 表头 + 3行

	summary, chart := hook.received()
	assert.Equal(t, 3, summary.Rows)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), chart[:8])
	assert.Equal(t, 1.0, counterValue(t, m, "ok"))
}

func TestJobRunFailures(t *testing.T) {
	job, m := newJob(t, false)
	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, session.ErrNotLoaded)
	assert.Equal(t, 1.0, counterValue(t, m, "error"))

	job, m = newJob(t, true)
	job.Mailer = func(string, ...string) error { return errors.New("smtp down") }
	path, err := job.Run(context.Background())
	require.Error(t, err)
	assert.FileExists(t, path, "邮件失败不影响导出")
	assert.Equal(t, 1.0, counterValue(t, m, "error"))
	assert.Equal(t, 0.0, counterValue(t, m, "ok"))
}

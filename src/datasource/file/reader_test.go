package file

import (
	"BookingInsight/src/processor"
	"BookingInsight/src/storage"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const sampleCSV = `hotel,arrival_date_month,adults,children,babies,country,adr,lead_time,stays_in_week_nights,reservation_status_date,company,agent,name
Resort Hotel,July,2,,0,PRT,75.5,342,0,2015-07-01,,,Ernest Barnes
City Hotel,August,1,1,0,NA,120,10,3,2015-08-03,,9,Andrea Baker
City Hotel,August,2,0,1, ,-4,5,2,2015-08-05,40,,Rebecca Parker
`

func TestReadCSV(t *testing.T) {
	df, err := ReadCSV(strings.NewReader(sampleCSV), LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, series.Int, df.Col("adults").Type())
	assert.Equal(t, series.Int, df.Col("children").Type())
	assert.Equal(t, series.Float, df.Col("adr").Type())
	assert.Equal(t, series.String, df.Col("hotel").Type())

	// 空值/哨兵值都按缺失处理
	assert.True(t, df.Col("children").Elem(0).IsNA())
	assert.False(t, df.Col("children").Elem(1).IsNA())
	assert.False(t, df.Col("country").Elem(0).IsNA())
	assert.True(t, df.Col("country").Elem(1).IsNA(), "NA")
	assert.True(t, df.Col("country").Elem(2).IsNA(), "空白")
}

func TestReadCSVIntegralFloats(t *testing.T) {
	const exported = `hotel,arrival_date_month,adults,children,babies,country,adr,lead_time,stays_in_week_nights,reservation_status_date
Resort Hotel,July,0,2.0,0,PRT,75,10,1,2015-07-01
City Hotel,August,2,1.0,1,GBR,80.5,5,2,2015-08-01
City Hotel,August,1,NA,0.0,GBR,90,5,2,2015-08-02
`
	df, err := ReadCSV(strings.NewReader(exported), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, series.Int, df.Col("children").Type())
	assert.Equal(t, []string{"2", "1", "NaN"}, df.Col("children").Records())
	assert.Equal(t, []string{"0", "1", "0"}, df.Col("babies").Records())

	table, report, err := processor.Clean(df)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Nrow())
	assert.Zero(t, report.DroppedEmptyParty)
	assert.Equal(t, []string{"2", "1", "0"}, table.Frame().Col(processor.ColChildren).Records())
	assert.Equal(t, []string{"2", "4", "1"}, table.Frame().Col(processor.ColTotalGuests).Records())
}

func TestReadCSVRejectsBadNumbers(t *testing.T) {
	header := "hotel,children,adr\n"
	for _, row := range []string{"City Hotel,1.5,80\n", "City Hotel,two,80\n", "City Hotel,1,cheap\n"} {
		_, err := ReadCSV(strings.NewReader(header+row), LoadOptions{})
		assert.Error(t, err, row)
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	df, err := ReadCSV(strings.NewReader("hotel,adults,adr\n"), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"hotel", "adults", "adr"}, df.Names())
	assert.Equal(t, series.Int, df.Col("adults").Type())
	assert.Equal(t, series.Float, df.Col("adr").Type())
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), LoadOptions{})
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b\n1,2,3\n"), LoadOptions{})
	assert.Error(t, err)

	_, err = ReadCSVFile(filepath.Join(t.TempDir(), "missing.csv"), LoadOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDispatch(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "hotel_booking.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0644))

	df, err := Load(csvPath, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())

	_, err = Load(filepath.Join(dir, "hotel_booking.json"), LoadOptions{})
	assert.Error(t, err)
}

func TestReadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hotel_booking.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"hotel", "arrival_date_month", "adults", "children", "adr", "reservation_status_date"},
		{"Resort Hotel", "July", 2, nil, 75.5, 42186},
		{nil, nil, nil, nil, nil, nil},
		{"City Hotel", "August", 1, 1, 120, "2015-08-03"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	df, err := ReadXLSX(path, LoadOptions{SheetName: "missing sheet"})
	require.NoError(t, err)

	require.Equal(t, 2, df.Nrow(), "空行被跳过")
	assert.Equal(t, "Resort Hotel", df.Col("hotel").Elem(0).String())
	assert.True(t, df.Col("children").Elem(0).IsNA())
	assert.InDelta(t, 75.5, df.Col("adr").Elem(0).Float(), 1e-9)
	assert.Equal(t, "2015-07-01 00:00:00", df.Col("reservation_status_date").Elem(0).String())
	assert.Equal(t, "2015-08-03", df.Col("reservation_status_date").Elem(1).String())
}

func TestExcelToTime(t *testing.T) {
	got, ok := excelToTime("42186")
	require.True(t, ok)
	assert.Equal(t, "2015-07-01 00:00:00", got)

	got, ok = excelToTime("42186.5")
	require.True(t, ok)
	assert.Equal(t, "2015-07-01 12:00:00", got)

	_, ok = excelToTime("2015-07-01")
	assert.False(t, ok)
}

func TestFileMonitor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hotel_booking.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	logPath := filepath.Join(t.TempDir(), "app.log")
	logger, err := storage.NewLogger(logPath)
	require.NoError(t, err)
	defer logger.Close()

	monitor, err := NewFileMonitor(path, logger)
	require.NoError(t, err)
	defer monitor.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- monitor.Watch(ctx, func(name string) { changed <- name })
	}()

	// watcher 报错后继续监控
	monitor.watcher.Errors <- fsnotify.ErrEventOverflow

	// 其他文件的变化不触发
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV+"City Hotel,May,1,0,0,DEU,80,1,1,2015-05-01,,,X\n"), 0644))

	select {
	case name := <-changed:
		assert.Equal(t, filepath.Base(path), filepath.Base(name))
	case <-time.After(3 * time.Second):
		t.Fatal("没有检测到文件变化")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch 没有随 ctx 退出")
	}

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), fsnotify.ErrEventOverflow.Error())
}

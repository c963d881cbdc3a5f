package processor

import (
	"errors"

	"github.com/go-gota/gota/series"
)

// 数据集中用到的列名
const (
	ColHotel             = "hotel"
	ColArrivalMonth      = "arrival_date_month"
	ColAdults            = "adults"
	ColChildren          = "children"
	ColBabies            = "babies"
	ColCountry           = "country"
	ColADR               = "adr"
	ColWeekNights        = "stays_in_week_nights"
	ColLeadTime          = "lead_time"
	ColReservationStatus = "reservation_status_date"
	ColCompany           = "company"
	ColAgent             = "agent"
	ColTotalGuests       = "total_guests"
)

// TimeLayout 时间列清洗后的统一格式
const TimeLayout = "2006-01-02 15:04:05"

// MaxBins 直方图分箱数上限
const MaxBins = 1000

var (
	// ErrMissingColumn 输入缺少清洗所需的列
	ErrMissingColumn = errors.New("missing required column")
	// ErrNotNumeric 对非数值列做数值投影
	ErrNotNumeric = errors.New("column is not numeric")
	// ErrBadBins 分箱数超出范围
	ErrBadBins = errors.New("bins out of range")
)

// Months 按日历顺序排列的月份
var Months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// LowValueColumns 无分析价值的列
var LowValueColumns = []string{ColCompany, ColAgent}

// SensitiveColumns 身份/隐私相关的列
var SensitiveColumns = []string{"name", "email", "phone-number", "credit_card"}

// DefaultCategorical 默认标记为分类变量的列
var DefaultCategorical = []string{
	ColHotel, ColArrivalMonth, ColCountry, "meal", "market_segment",
	"distribution_channel", "reserved_room_type", "assigned_room_type",
	"deposit_type", "customer_type", "reservation_status",
}

// DefaultDateLayouts reservation_status_date 可接受的格式
var DefaultDateLayouts = []string{
	TimeLayout,
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006 15:04:05",
}

// DefaultMissingValues 读取时视为缺失的取值
var DefaultMissingValues = []string{"", "NA", "NaN", "NULL", "null", "<nil>"}

// requiredColumns 清洗前必须存在的列, babies 单独处理
var requiredColumns = []string{
	ColHotel, ColArrivalMonth, ColAdults, ColChildren, ColCountry,
	ColADR, ColLeadTime, ColWeekNights, ColReservationStatus,
}

// ColumnTypes 读取数据集时各列的类型, 未列出的按字符串读取
var ColumnTypes = map[string]series.Type{
	"is_canceled":                    series.Int,
	ColLeadTime:                      series.Int,
	"arrival_date_year":              series.Int,
	"arrival_date_week_number":       series.Int,
	"arrival_date_day_of_month":      series.Int,
	"stays_in_weekend_nights":        series.Int,
	ColWeekNights:                    series.Int,
	ColAdults:                        series.Int,
	ColChildren:                      series.Int,
	ColBabies:                        series.Int,
	"is_repeated_guest":              series.Int,
	"previous_cancellations":         series.Int,
	"previous_bookings_not_canceled": series.Int,
	"booking_changes":                series.Int,
	"days_in_waiting_list":           series.Int,
	"required_car_parking_spaces":    series.Int,
	"total_of_special_requests":      series.Int,
	ColTotalGuests:                   series.Int,
	ColADR:                           series.Float,
}

// monthIndex 月份名到日历序号, 非月份返回-1
func monthIndex(name string) int {
	for i, m := range Months {
		if m == name {
			return i
		}
	}
	return -1
}

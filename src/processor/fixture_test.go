package processor

import (
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/require"
)

// rawBookings 覆盖各清洗分支的样例:
//
//	1 正常; 2 adults+children==0 但有婴儿; 3 children缺失且adr<0; 4 country缺失, 日期用斜杠;
//	5 adr==0; 6 日期无法解析; 7 日期缺失; 8 babies缺失
const rawBookings = `id,hotel,arrival_date_month,adults,children,babies,country,adr,lead_time,stays_in_week_nights,reservation_status_date,company,agent,name,email,phone-number,credit_card,meal
1,Resort Hotel,July,2,0,0,PRT,75.0,342,0,2015-07-01,NA,NA,Ernest Barnes,ernest@example.com,669-792-1661,************4322,BB
2,Resort Hotel,July,0,0,2,PRT,100.0,10,2,2015-07-02,NA,NA,Andrea Baker,andrea@example.com,858-637-6955,************9157,BB
3,City Hotel,August,2,NA,0,GBR,-5.0,13,1,2015-07-03,NA,304,Rebecca Parker,rebecca@example.com,652-885-2745,************3734,HB
4,City Hotel,August,1,1,1,NA,120.0,9,3,2015/08/04,NA,240,Laura Murray,laura@example.com,364-656-8427,************5677,BB
5,City Hotel,July,2,0,0,ESP,0,5,1,2015-07-05,NA,NA,Linda Hines,linda@example.com,713-226-5883,************5498,SC
6,Resort Hotel,December,1,NA,0,FRA,80.5,100,4,not-a-date,NA,NA,Jasmine Fletcher,jasmine@example.com,190-271-6743,************9263,BB
7,City Hotel,December,2,2,0,DEU,150.25,50,5,NA,NA,9,Dylan Rangel,dylan@example.com,420-332-5209,************6994,FB
8,Resort Hotel,January,1,0,NA,USA,60.0,1,1,01/15/2016,NA,NA,William Velez,william@example.com,286-669-4333,************9486,BB
`

// loadRaw 与数据集读取使用相同的列类型和缺失值规则
func loadRaw(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	df := dataframe.ReadCSV(strings.NewReader(csv),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(ColumnTypes),
		dataframe.NaNValues(DefaultMissingValues),
	)
	require.NoError(t, df.Err)
	return df
}

func cleanFixture(t *testing.T) Table {
	t.Helper()
	table, _, err := Clean(loadRaw(t, rawBookings))
	require.NoError(t, err)
	return table
}

// column 取一列的字符串值, 缺失值为 "NaN"
func column(t *testing.T, table Table, name string) []string {
	t.Helper()
	s := table.Frame().Col(name)
	require.NoError(t, s.Err)
	return s.Records()
}

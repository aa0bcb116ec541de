// reader.go
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"

	"PostsAnalytics/src/utils"
)

// 源数据列名
const (
	ColTimestamp = "timestamp"
	ColUsername  = "username"
	ColFollowers = "followers_count"
	ColMedia     = "media_count"
)

// 派生的日历列名
const (
	ColYear    = "year"
	ColMonth   = "month"
	ColDay     = "day"
	ColHour    = "hour"
	ColWeekday = "weekday"
	ColDate    = "date"
)

// MinValidYear 早于2010年的记录视为坏时间戳
const MinValidYear = 2010

// ErrNoValidRows 文件可读但清洗后一行有效数据都不剩
var ErrNoValidRows = errors.New("清洗后没有有效数据行")

// 时间戳解析格式，从严到宽依次尝试：先试带时区的ISO格式，
// 避免宽松推断把日/月顺序猜错
var timestampFormats = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// 兜底格式，全部失败时的宽松推断
var fallbackFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01-02-2006 15:04:05",
	"01/02/2006 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp 解析时间戳字符串，按格式列表顺序尝试，第一个成功的生效
// 返回false表示所有格式都失败，该行应被丢弃
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == ColTimestamp {
		return time.Time{}, false
	}

	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range fallbackFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ReadCSVToDataFrame 读取CSV文件为原始DataFrame
// 四个已知列强制按字符串读取，清洗阶段再做类型转换
func ReadCSVToDataFrame(filePath string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("打开数据文件失败: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.WithTypes(map[string]series.Type{
			ColTimestamp: series.String,
			ColUsername:  series.String,
			ColFollowers: series.String,
			ColMedia:     series.String,
		}),
	)
	if df.Err != nil {
		return df, fmt.Errorf("解析CSV结构失败: %w", df.Err)
	}
	return df, nil
}

// ReadXLSXToDataFrame 读取xlsx导出文件为原始DataFrame
// 部分平台的导出是xlsx而不是csv，表结构一致
func ReadXLSXToDataFrame(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.New(), fmt.Errorf("打开xlsx文件失败: %w", err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.New(), fmt.Errorf("xlsx文件中没有工作表")
	}
	sheet, ok := xlFile.Sheet[sheetName]
	if !ok {
		// 没有指定工作表名时取第一个
		sheet = xlFile.Sheets[0]
	}

	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame
// 第一行是标题行
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) < 2 {
		return dataframe.New(), fmt.Errorf("工作表没有数据行")
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, cell.Value)
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		for i := range headers {
			val := ""
			if i < len(row.Cells) {
				val = row.Cells[i].Value
			}
			columns[i] = append(columns[i], val)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return df, fmt.Errorf("转换为dataframe失败: %w", df.Err)
	}
	return df, nil
}

// CleanPosts 清洗原始数据，返回规范化后的DataFrame
// 清洗策略:
//   - timestamp等于字面量"timestamp"的行是拼接导出时混入的重复表头，直接丢弃
//   - 时间戳按格式列表解析，全部失败的行丢弃(不做默认值)
//   - followers_count/media_count解析失败时置0，保行弃值
//   - 解析出的时间统一转为UTC存储，日历字段按原时区推导
//   - 年份超出[2010, 当前年+1]的行丢弃
func CleanPosts(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, ErrNoValidRows
	}
	if !utils.HasColumn(df, ColTimestamp) || !utils.HasColumn(df, ColUsername) {
		return dataframe.DataFrame{}, fmt.Errorf("数据缺少必需列: %s/%s", ColTimestamp, ColUsername)
	}

	n := df.Nrow()
	rawTimestamps := df.Col(ColTimestamp).Records()
	rawUsernames := df.Col(ColUsername).Records()

	var rawFollowers, rawMedia []string
	if utils.HasColumn(df, ColFollowers) {
		rawFollowers = df.Col(ColFollowers).Records()
	}
	if utils.HasColumn(df, ColMedia) {
		rawMedia = df.Col(ColMedia).Records()
	}

	maxValidYear := time.Now().Year() + 1

	timestamps := make([]string, 0, n)
	usernames := make([]string, 0, n)
	followers := make([]float64, 0, n)
	media := make([]float64, 0, n)
	years := make([]int, 0, n)
	months := make([]int, 0, n)
	days := make([]int, 0, n)
	hours := make([]int, 0, n)
	weekdays := make([]string, 0, n)
	dates := make([]string, 0, n)

	for i := 0; i < n; i++ {
		// 重复表头行
		if rawTimestamps[i] == ColTimestamp {
			continue
		}

		t, ok := ParseTimestamp(rawTimestamps[i])
		if !ok {
			continue
		}
		if t.Year() < MinValidYear || t.Year() > maxValidYear {
			continue
		}

		timestamps = append(timestamps, t.UTC().Format(time.RFC3339))
		usernames = append(usernames, rawUsernames[i])
		followers = append(followers, utils.ParseNumericOrDefault(recordAt(rawFollowers, i)))
		media = append(media, utils.ParseNumericOrDefault(recordAt(rawMedia, i)))

		// 日历字段按解析出的时区推导
		years = append(years, t.Year())
		months = append(months, int(t.Month()))
		days = append(days, t.Day())
		hours = append(hours, t.Hour())
		weekdays = append(weekdays, t.Weekday().String())
		dates = append(dates, t.Format("2006-01-02"))
	}

	if len(timestamps) == 0 {
		return dataframe.DataFrame{}, ErrNoValidRows
	}

	cleaned := dataframe.New(
		series.New(timestamps, series.String, ColTimestamp),
		series.New(usernames, series.String, ColUsername),
		series.New(followers, series.Float, ColFollowers),
		series.New(media, series.Float, ColMedia),
		series.New(years, series.Int, ColYear),
		series.New(months, series.Int, ColMonth),
		series.New(days, series.Int, ColDay),
		series.New(hours, series.Int, ColHour),
		series.New(weekdays, series.String, ColWeekday),
		series.New(dates, series.String, ColDate),
	)
	if cleaned.Err != nil {
		return cleaned, fmt.Errorf("构建清洗结果失败: %w", cleaned.Err)
	}
	return cleaned, nil
}

// LoadPosts 读取并清洗数据文件，按扩展名选择读取方式
func LoadPosts(filePath, sheetName string) (dataframe.DataFrame, error) {
	var (
		raw dataframe.DataFrame
		err error
	)

	if strings.EqualFold(filepath.Ext(filePath), ".xlsx") {
		raw, err = ReadXLSXToDataFrame(filePath, sheetName)
	} else {
		raw, err = ReadCSVToDataFrame(filePath)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	return CleanPosts(raw)
}

func recordAt(records []string, i int) string {
	if records == nil || i >= len(records) {
		return ""
	}
	return records[i]
}

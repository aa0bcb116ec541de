// aggregate.go
package processor

import (
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"PostsAnalytics/src/datasource/file"
	"PostsAnalytics/src/utils"
)

// ErrInsufficientData 输入为空或不足以生成该图表
// 单个图表的失败只影响自己的区域，不中断其它聚合
var ErrInsufficientData = errors.New("数据不足，无法生成该图表")

// 疫情时段边界，固定的日历常量，不随数据变化
var (
	PandemicStart = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	PandemicEnd   = time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)
)

// weekdayOrder 星期的规范顺序(周一在前)
var weekdayOrder = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

type YearCount struct {
	Year  int `json:"year"`
	Posts int `json:"posts"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Posts int `json:"posts"`
}

type WeekdayCount struct {
	Weekday string `json:"weekday"`
	Posts   int    `json:"posts"`
}

// HeatmapMatrix 月×年透视矩阵
// 行列索引只包含数据中出现过的月份/年份(空缺单元格补0)，
// 因此2020年3月的十字标记只在两个索引都存在时激活
type HeatmapMatrix struct {
	Years        []int   `json:"years"`
	Months       []int   `json:"months"`
	Cells        [][]int `json:"cells"` // Cells[i][j] = Months[i] × Years[j] 的发帖数
	PandemicMark bool    `json:"pandemic_mark"`
}

// MonthlyPoint 月度序列的一个点
// MovingAvg为居中3个月滑动平均，序列太短或位于端点时为null
type MonthlyPoint struct {
	Date      time.Time `json:"date"`
	Posts     int       `json:"posts"`
	MovingAvg *float64  `json:"moving_avg,omitempty"`
}

// MonthlySeries 月度发帖趋势，附带疫情时段覆盖区间
type MonthlySeries struct {
	Points        []MonthlyPoint `json:"points"`
	PandemicStart time.Time      `json:"pandemic_start"`
	PandemicEnd   time.Time      `json:"pandemic_end"`
}

// PandemicSplit 疫情前后发帖数对比
type PandemicSplit struct {
	Pre  int `json:"pre"`
	Post int `json:"post"`
}

// FilterYears 按年份选择器过滤出派生视图，不修改原表
// years为空时返回原表
func FilterYears(df dataframe.DataFrame, years []int) dataframe.DataFrame {
	if len(years) == 0 || df.Nrow() == 0 {
		return df
	}
	return df.Filter(dataframe.F{
		Colname:    file.ColYear,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			y, err := el.Int()
			if err != nil {
				return false
			}
			return utils.Contains(years, y)
		},
	})
}

// AvailableYears 数据中出现过的年份，升序
func AvailableYears(df dataframe.DataFrame) []int {
	if df.Nrow() == 0 {
		return nil
	}
	return sortedIntKeys(countByIntCol(df, file.ColYear))
}

// DefaultYears 年份选择器的默认值：最近的三个年份
func DefaultYears(df dataframe.DataFrame) []int {
	years := AvailableYears(df)
	if len(years) > 3 {
		return years[len(years)-3:]
	}
	return years
}

// YearlyCounts 按年统计发帖数，年份升序
func YearlyCounts(df dataframe.DataFrame) ([]YearCount, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	counts := countByIntCol(df, file.ColYear)
	out := make([]YearCount, 0, len(counts))
	for _, y := range sortedIntKeys(counts) {
		out = append(out, YearCount{Year: y, Posts: counts[y]})
	}
	return out, nil
}

// HourlyCounts 按小时统计发帖数，0-23稠密填充
// 渲染端需要固定的24格横轴，没有发帖的小时补0
func HourlyCounts(df dataframe.DataFrame) ([]HourCount, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	counts := countByIntCol(df, file.ColHour)
	out := make([]HourCount, 24)
	for h := 0; h < 24; h++ {
		out[h] = HourCount{Hour: h, Posts: counts[h]}
	}
	return out, nil
}

// Heatmap 按(年,月)分组计数并透视为矩阵
func Heatmap(df dataframe.DataFrame) (*HeatmapMatrix, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	yearRecs := df.Col(file.ColYear).Records()
	monthRecs := df.Col(file.ColMonth).Records()

	type cell struct{ year, month int }
	counts := make(map[cell]int)
	yearSet := make(map[int]int)
	monthSet := make(map[int]int)

	for i := range yearRecs {
		y, err1 := strconv.Atoi(yearRecs[i])
		m, err2 := strconv.Atoi(monthRecs[i])
		if err1 != nil || err2 != nil {
			continue
		}
		counts[cell{y, m}]++
		yearSet[y]++
		monthSet[m]++
	}
	if len(counts) == 0 {
		return nil, ErrInsufficientData
	}

	years := sortedIntKeys(yearSet)
	months := sortedIntKeys(monthSet)

	cells := make([][]int, len(months))
	for i, m := range months {
		cells[i] = make([]int, len(years))
		for j, y := range years {
			cells[i][j] = counts[cell{y, m}]
		}
	}

	return &HeatmapMatrix{
		Years:        years,
		Months:       months,
		Cells:        cells,
		PandemicMark: utils.Contains(years, PandemicStart.Year()) && utils.Contains(months, int(PandemicStart.Month())),
	}, nil
}

// Monthly 月度发帖趋势(总表，不受年份选择器影响)
// 序列超过3个点时计算居中3个月滑动平均，端点不定义
func Monthly(df dataframe.DataFrame) (*MonthlySeries, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	yearRecs := df.Col(file.ColYear).Records()
	monthRecs := df.Col(file.ColMonth).Records()

	counts := make(map[int]int) // 周期键 year*100+month
	for i := range yearRecs {
		y, err1 := strconv.Atoi(yearRecs[i])
		m, err2 := strconv.Atoi(monthRecs[i])
		if err1 != nil || err2 != nil {
			continue
		}
		counts[y*100+m]++
	}
	if len(counts) == 0 {
		return nil, ErrInsufficientData
	}

	points := make([]MonthlyPoint, 0, len(counts))
	for _, key := range sortedIntKeys(counts) {
		points = append(points, MonthlyPoint{
			Date:  time.Date(key/100, time.Month(key%100), 1, 0, 0, 0, 0, time.UTC),
			Posts: counts[key],
		})
	}

	// 序列不超过3个点时滑动平均整体不计算，避免短窗口出错
	if len(points) > 3 {
		for i := 1; i < len(points)-1; i++ {
			avg := float64(points[i-1].Posts+points[i].Posts+points[i+1].Posts) / 3
			points[i].MovingAvg = &avg
		}
	}

	return &MonthlySeries{
		Points:        points,
		PandemicStart: PandemicStart,
		PandemicEnd:   PandemicEnd,
	}, nil
}

// SplitByPandemic 以疫情起点把全部记录分成前后两桶(总表，不受年份选择器影响)
// 边界时刻2020-03-01T00:00:00Z本身计入"后"
func SplitByPandemic(df dataframe.DataFrame) (*PandemicSplit, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	var split PandemicSplit
	for _, rec := range df.Col(file.ColTimestamp).Records() {
		t, err := time.Parse(time.RFC3339, rec)
		if err != nil {
			continue
		}
		if t.Before(PandemicStart) {
			split.Pre++
		} else {
			split.Post++
		}
	}

	if split.Pre+split.Post == 0 {
		return nil, ErrInsufficientData
	}
	return &split, nil
}

// WeekdayCounts 按星期统计发帖数，固定周一到周日顺序，缺的星期补0
func WeekdayCounts(df dataframe.DataFrame) ([]WeekdayCount, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	counts := make(map[string]int)
	for _, rec := range df.Col(file.ColWeekday).Records() {
		counts[rec]++
	}

	out := make([]WeekdayCount, 0, len(weekdayOrder))
	for _, wd := range weekdayOrder {
		out = append(out, WeekdayCount{Weekday: wd, Posts: counts[wd]})
	}
	return out, nil
}

// countByIntCol 对整型列做分组计数
func countByIntCol(df dataframe.DataFrame, col string) map[int]int {
	counts := make(map[int]int)
	for _, rec := range df.Col(col).Records() {
		v, err := strconv.Atoi(rec)
		if err != nil {
			continue
		}
		counts[v]++
	}
	return counts
}

func sortedIntKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

package processor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"

	"PostsAnalytics/src/datasource/file"
)

// cleanFromCSV 走真实的加载清洗路径构造测试用数据表
func cleanFromCSV(t *testing.T, csv string) dataframe.DataFrame {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posts.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatalf("写入测试CSV失败: %v", err)
	}
	df, err := file.LoadPosts(path, "")
	if err != nil {
		t.Fatalf("加载测试数据失败: %v", err)
	}
	return df
}

func TestSplitByPandemicBoundary(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2019-01-01,alice
2020-02-15,bob
2020-03-01,carol
2021-06-01,dave`)

	split, err := SplitByPandemic(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	// 边界时刻2020-03-01T00:00:00Z本身算"后"
	if split.Pre != 2 || split.Post != 2 {
		t.Errorf("split = %+v, want pre=2 post=2", split)
	}
}

func TestWeekdayCountsReindex(t *testing.T) {
	// 2022-05-09是周一，2022-05-10是周二，数据中没有周日
	df := cleanFromCSV(t, `timestamp,username
2022-05-09,alice
2022-05-09,bob
2022-05-10,carol`)

	counts, err := WeekdayCounts(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	if len(counts) != 7 {
		t.Fatalf("星期条目数 = %d, want 7", len(counts))
	}
	if counts[0].Weekday != "Monday" || counts[0].Posts != 2 {
		t.Errorf("周一 = %+v, want Monday/2", counts[0])
	}
	// 周日没有发帖也必须出现，且在第7位
	if counts[6].Weekday != "Sunday" || counts[6].Posts != 0 {
		t.Errorf("周日 = %+v, want Sunday/0", counts[6])
	}
}

func TestMonthlyMovingAverageShortSeries(t *testing.T) {
	// 只有3个月份周期，滑动平均整体不计算
	df := cleanFromCSV(t, `timestamp,username
2022-01-10,a
2022-02-10,b
2022-03-10,c`)

	ms, err := Monthly(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	if len(ms.Points) != 3 {
		t.Fatalf("周期数 = %d, want 3", len(ms.Points))
	}
	for i, p := range ms.Points {
		if p.MovingAvg != nil {
			t.Errorf("短序列第%d个点不应有滑动平均", i)
		}
	}
}

func TestMonthlyMovingAverage(t *testing.T) {
	// 4个月份周期，计数1/2/3/4
	df := cleanFromCSV(t, `timestamp,username
2022-01-10,a
2022-02-10,a
2022-02-11,b
2022-03-10,a
2022-03-11,b
2022-03-12,c
2022-04-10,a
2022-04-11,b
2022-04-12,c
2022-04-13,d`)

	ms, err := Monthly(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	if len(ms.Points) != 4 {
		t.Fatalf("周期数 = %d, want 4", len(ms.Points))
	}

	// 居中窗口：端点不定义
	if ms.Points[0].MovingAvg != nil || ms.Points[3].MovingAvg != nil {
		t.Error("端点不应有滑动平均值")
	}
	if ms.Points[1].MovingAvg == nil || *ms.Points[1].MovingAvg != 2 {
		t.Errorf("第2个点滑动平均 = %v, want 2", ms.Points[1].MovingAvg)
	}
	if ms.Points[2].MovingAvg == nil || *ms.Points[2].MovingAvg != 3 {
		t.Errorf("第3个点滑动平均 = %v, want 3", ms.Points[2].MovingAvg)
	}

	// 疫情覆盖区间随序列返回
	if !ms.PandemicStart.Equal(PandemicStart) || !ms.PandemicEnd.Equal(PandemicEnd) {
		t.Error("月度序列应携带固定的疫情区间")
	}
}

func TestHeatmapPivotAndMark(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2019-05-01,a
2019-05-02,b
2020-03-01,c`)

	hm, err := Heatmap(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}

	wantYears := []int{2019, 2020}
	wantMonths := []int{3, 5}
	if len(hm.Years) != 2 || hm.Years[0] != wantYears[0] || hm.Years[1] != wantYears[1] {
		t.Errorf("years = %v, want %v", hm.Years, wantYears)
	}
	if len(hm.Months) != 2 || hm.Months[0] != wantMonths[0] || hm.Months[1] != wantMonths[1] {
		t.Errorf("months = %v, want %v", hm.Months, wantMonths)
	}

	// 矩阵：出现过的两个单元格有计数，其余为0
	if hm.Cells[0][1] != 1 { // 3月×2020
		t.Errorf("cells[3月][2020] = %d, want 1", hm.Cells[0][1])
	}
	if hm.Cells[1][0] != 2 { // 5月×2019
		t.Errorf("cells[5月][2019] = %d, want 2", hm.Cells[1][0])
	}
	if hm.Cells[0][0] != 0 || hm.Cells[1][1] != 0 {
		t.Error("没有数据的单元格应为0")
	}

	// 2020和3月都在索引中，十字标记激活
	if !hm.PandemicMark {
		t.Error("2020年与3月均存在时应激活疫情标记")
	}
}

func TestHeatmapMarkRequiresBothIndices(t *testing.T) {
	// 有2020年但没有3月
	df := cleanFromCSV(t, `timestamp,username
2020-04-01,a
2019-05-01,b`)
	hm, err := Heatmap(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	if hm.PandemicMark {
		t.Error("缺少3月索引时不应激活疫情标记")
	}

	// 有3月但没有2020年
	df = cleanFromCSV(t, `timestamp,username
2019-03-01,a`)
	hm, err = Heatmap(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	if hm.PandemicMark {
		t.Error("缺少2020年索引时不应激活疫情标记")
	}
}

func TestHourlyCountsDense(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2022-05-10T08:30:00,a
2022-05-10T08:45:00,b
2022-05-10T23:10:00,c`)

	counts, err := HourlyCounts(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	if len(counts) != 24 {
		t.Fatalf("小时条目数 = %d, want 24", len(counts))
	}
	if counts[8].Posts != 2 || counts[23].Posts != 1 {
		t.Errorf("8点=%d 23点=%d, want 2/1", counts[8].Posts, counts[23].Posts)
	}
	if counts[0].Posts != 0 {
		t.Errorf("0点应为0，实际 %d", counts[0].Posts)
	}
}

func TestYearlyCountsSorted(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2023-01-01,a
2021-01-01,b
2022-01-01,c
2021-06-01,d`)

	counts, err := YearlyCounts(df)
	if err != nil {
		t.Fatalf("聚合失败: %v", err)
	}
	wantYears := []int{2021, 2022, 2023}
	wantPosts := []int{2, 1, 1}
	if len(counts) != 3 {
		t.Fatalf("年份条目数 = %d, want 3", len(counts))
	}
	for i := range counts {
		if counts[i].Year != wantYears[i] || counts[i].Posts != wantPosts[i] {
			t.Errorf("counts[%d] = %+v, want %d/%d", i, counts[i], wantYears[i], wantPosts[i])
		}
	}
}

func TestFilterYears(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2021-01-01,a
2022-01-01,b
2023-01-01,c`)

	filtered := FilterYears(df, []int{2022, 2023})
	if filtered.Nrow() != 2 {
		t.Errorf("过滤后行数 = %d, want 2", filtered.Nrow())
	}

	// 空选择返回原表
	if FilterYears(df, nil).Nrow() != 3 {
		t.Error("空的年份选择应返回原表")
	}

	// 原表不被修改
	if df.Nrow() != 3 {
		t.Error("FilterYears不应修改输入表")
	}

	// 没有匹配行时各聚合返回ErrInsufficientData而不是退化结果
	empty := FilterYears(df, []int{1999})
	if _, err := YearlyCounts(empty); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("空视图的年度聚合err = %v, want ErrInsufficientData", err)
	}
	if _, err := Heatmap(empty); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("空视图的热力图err = %v, want ErrInsufficientData", err)
	}
	if _, err := SplitByPandemic(empty); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("空视图的疫情对比err = %v, want ErrInsufficientData", err)
	}
}

func TestDefaultYears(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2019-01-01,a
2020-01-01,b
2021-01-01,c
2022-01-01,d
2023-01-01,e`)

	got := DefaultYears(df)
	want := []int{2021, 2022, 2023}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Errorf("DefaultYears = %v, want %v", got, want)
	}

	// 年份不足3个时全部返回
	small := cleanFromCSV(t, `timestamp,username
2022-01-01,a`)
	if got := DefaultYears(small); len(got) != 1 || got[0] != 2022 {
		t.Errorf("DefaultYears = %v, want [2022]", got)
	}
}

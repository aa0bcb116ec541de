// summary.go
package processor

import (
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"PostsAnalytics/src/datasource/file"
)

// Summary dashboard顶部的指标卡数据
// Label字段是带千分位分隔符的展示文本
type Summary struct {
	TotalPosts        int     `json:"total_posts"`
	TotalPostsLabel   string  `json:"total_posts_label"`
	UniqueUsers       int     `json:"unique_users"`
	UniqueUsersLabel  string  `json:"unique_users_label"`
	YearSpan          int     `json:"year_span"`
	AvgFollowers      float64 `json:"avg_followers"`
	AvgFollowersLabel string  `json:"avg_followers_label"`
}

var metricPrinter = message.NewPrinter(language.English)

// Summarize 汇总指标：总帖数、独立用户数、年份跨度(max-min+1)、平均粉丝数
// 作用于年份选择器过滤后的视图
func Summarize(df dataframe.DataFrame) (*Summary, error) {
	if df.Nrow() == 0 {
		return nil, ErrInsufficientData
	}

	users := make(map[string]struct{})
	for _, u := range df.Col(file.ColUsername).Records() {
		users[u] = struct{}{}
	}

	minYear, maxYear := 0, 0
	for _, rec := range df.Col(file.ColYear).Records() {
		y, err := strconv.Atoi(rec)
		if err != nil {
			continue
		}
		if minYear == 0 || y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}

	avgFollowers := df.Col(file.ColFollowers).Mean()

	s := &Summary{
		TotalPosts:   df.Nrow(),
		UniqueUsers:  len(users),
		YearSpan:     maxYear - minYear + 1,
		AvgFollowers: avgFollowers,
	}
	s.TotalPostsLabel = metricPrinter.Sprintf("%d", s.TotalPosts)
	s.UniqueUsersLabel = metricPrinter.Sprintf("%d", s.UniqueUsers)
	s.AvgFollowersLabel = metricPrinter.Sprintf("%.0f", s.AvgFollowers)
	return s, nil
}

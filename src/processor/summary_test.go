package processor

import (
	"errors"
	"testing"
)

func TestSummarize(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username,followers_count
2021-01-01,alice,1000
2022-01-01,alice,1000
2023-01-01,bob,2000
2023-06-01,carol,2000`)

	s, err := Summarize(df)
	if err != nil {
		t.Fatalf("汇总失败: %v", err)
	}

	if s.TotalPosts != 4 {
		t.Errorf("TotalPosts = %d, want 4", s.TotalPosts)
	}
	if s.UniqueUsers != 3 {
		t.Errorf("UniqueUsers = %d, want 3", s.UniqueUsers)
	}
	if s.YearSpan != 3 { // 2023-2021+1
		t.Errorf("YearSpan = %d, want 3", s.YearSpan)
	}
	if s.AvgFollowers != 1500 {
		t.Errorf("AvgFollowers = %v, want 1500", s.AvgFollowers)
	}
	// 展示文本带千分位分隔符
	if s.AvgFollowersLabel != "1,500" {
		t.Errorf("AvgFollowersLabel = %q, want \"1,500\"", s.AvgFollowersLabel)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	df := cleanFromCSV(t, `timestamp,username
2022-01-01,a`)
	empty := FilterYears(df, []int{1999})

	if _, err := Summarize(empty); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

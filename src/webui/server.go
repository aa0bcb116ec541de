// server.go
package webui

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-gota/gota/dataframe"

	"PostsAnalytics/src/datasource/file"
	"PostsAnalytics/src/processor"
	"PostsAnalytics/src/storage"
	"PostsAnalytics/src/utils"
)

// Server 仪表盘HTTP服务
// 所有接口按需从缓存读取清洗后的数据，文件更新由监控一侧负责失效
type Server struct {
	cache    *file.PostsCache
	dataPath string
	logger   *storage.Logger
	engine   *gin.Engine
}

func NewServer(cache *file.PostsCache, dataPath string, logger *storage.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cache:    cache,
		dataPath: dataPath,
		logger:   logger,
		engine:   gin.New(),
	}
	s.engine.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/years", s.handleYears)
		api.GET("/summary", s.handleSummary)
		api.GET("/export", s.handleExport)

		charts := api.Group("/charts")
		{
			charts.GET("/yearly", s.chartHandler(func(df dataframe.DataFrame) (interface{}, error) {
				return processor.YearlyCounts(df)
			}))
			charts.GET("/hourly", s.chartHandler(func(df dataframe.DataFrame) (interface{}, error) {
				return processor.HourlyCounts(df)
			}))
			charts.GET("/heatmap", s.chartHandler(func(df dataframe.DataFrame) (interface{}, error) {
				return processor.Heatmap(df)
			}))
			charts.GET("/weekday", s.chartHandler(func(df dataframe.DataFrame) (interface{}, error) {
				return processor.WeekdayCounts(df)
			}))
			// 月度趋势和疫情对比始终基于全量数据，不受年份筛选影响
			charts.GET("/monthly", s.fullTableHandler(func(df dataframe.DataFrame) (interface{}, error) {
				return processor.Monthly(df)
			}))
			charts.GET("/pandemic", s.fullTableHandler(func(df dataframe.DataFrame) (interface{}, error) {
				return processor.SplitByPandemic(df)
			}))
		}
	}

	s.engine.GET("/logs", s.handleLogs)
}

// Handler 暴露给测试和外层服务器
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Run(addr string) error {
	s.logger.Info("仪表盘服务启动，监听 " + addr)
	return s.engine.Run(addr)
}

// loadData 从缓存取清洗后的数据
func (s *Server) loadData(c *gin.Context) (dataframe.DataFrame, bool) {
	df, err := s.cache.Load(s.dataPath)
	if err != nil {
		s.logger.Error("加载数据失败: " + err.Error())
		if errors.Is(err, file.ErrNoValidRows) {
			respondError(c, http.StatusServiceUnavailable, "数据文件没有有效行")
		} else {
			respondError(c, http.StatusServiceUnavailable, "数据文件不可用")
		}
		return dataframe.DataFrame{}, false
	}
	return df, true
}

// filteredData 按years参数筛选，缺省取最近三年
func (s *Server) filteredData(c *gin.Context) (dataframe.DataFrame, bool) {
	df, ok := s.loadData(c)
	if !ok {
		return df, false
	}

	years, err := parseYears(c.Query("years"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "years参数格式错误")
		return df, false
	}
	if years == nil {
		years = processor.DefaultYears(df)
	}
	return processor.FilterYears(df, years), true
}

// chartHandler 年份筛选视图上的图表接口
func (s *Server) chartHandler(build func(dataframe.DataFrame) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		df, ok := s.filteredData(c)
		if !ok {
			return
		}
		s.respondChart(c, df, build)
	}
}

// fullTableHandler 全量数据上的图表接口
func (s *Server) fullTableHandler(build func(dataframe.DataFrame) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		df, ok := s.loadData(c)
		if !ok {
			return
		}
		s.respondChart(c, df, build)
	}
}

func (s *Server) respondChart(c *gin.Context, df dataframe.DataFrame, build func(dataframe.DataFrame) (interface{}, error)) {
	payload, err := build(df)
	if err != nil {
		if errors.Is(err, processor.ErrInsufficientData) {
			respondError(c, http.StatusUnprocessableEntity, "筛选结果没有数据")
			return
		}
		s.logger.Error("聚合计算失败: " + err.Error())
		respondError(c, http.StatusInternalServerError, "聚合计算失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": payload})
}

func (s *Server) handleYears(c *gin.Context) {
	df, ok := s.loadData(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"years":   processor.AvailableYears(df),
		"default": processor.DefaultYears(df),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	df, ok := s.filteredData(c)
	if !ok {
		return
	}
	summary, err := processor.Summarize(df)
	if err != nil {
		if errors.Is(err, processor.ErrInsufficientData) {
			respondError(c, http.StatusUnprocessableEntity, "筛选结果没有数据")
			return
		}
		respondError(c, http.StatusInternalServerError, "汇总计算失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// handleExport 导出清洗后的数据为xlsx
func (s *Server) handleExport(c *gin.Context) {
	df, ok := s.filteredData(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", `attachment; filename="posts_cleaned.xlsx"`)
	if err := utils.ExportExcel(df, c.Writer); err != nil {
		s.logger.Error("导出xlsx失败: " + err.Error())
	}
}

// handleLogs 实时日志流，逐行推送
func (s *Server) handleLogs(c *gin.Context) {
	ch := s.logger.Subscribe()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Writer.Flush()

	for {
		select {
		case line, ok := <-ch:
			if !ok {
				return
			}
			c.Writer.WriteString(line + "\n")
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

// parseYears 解析逗号分隔的年份参数，空串表示未提供
func parseYears(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, nil
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

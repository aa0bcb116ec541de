package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"

	"PostsAnalytics/src/config"
	"PostsAnalytics/src/datapush"
	"PostsAnalytics/src/datasource/email"
	"PostsAnalytics/src/datasource/file"
	"PostsAnalytics/src/storage"
	"PostsAnalytics/src/webui"
)

func main() {
	// .env不存在不算错误，敏感配置也可以直接走环境变量
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("./config", "config.json")
	if err != nil {
		log.Fatal("加载配置失败:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("初始化日志失败:", err)
	}

	cache := file.NewPostsCache(cfg.Data.SheetName)

	var renderClient *datapush.RenderClient
	if cfg.Render.Enabled {
		renderClient = datapush.NewRenderClient(cfg.Render.Endpoint, cfg.Render.Token)
	}

	// 数据加载成功后推送渲染端，日志轮转顺带在这里检查
	reload := func(reason string) {
		if cfg.LogMaxSize > 0 {
			if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
				logger.Warning("日志轮转失败: " + err.Error())
			}
		}

		t1 := time.Now()
		df, err := cache.Load(cfg.DataPath())
		if err != nil {
			// 启动时数据文件可能还没到(等邮件送达)，只记日志不退出
			logger.Warning(fmt.Sprintf("加载数据失败(%s): %v", reason, err))
			return
		}
		logger.Info(fmt.Sprintf("数据已加载(%s): %d行, 耗时%v", reason, df.Nrow(), time.Since(t1)))

		if renderClient != nil {
			pushCharts(renderClient, df, logger)
		}
	}

	reload("启动")

	// 监控数据目录，文件被覆盖后失效缓存并重载
	monitor, err := file.NewFileMonitor(cfg.Data.Dir)
	if err != nil {
		logger.Error("启动文件监控失败: " + err.Error())
	} else {
		defer monitor.Close()
		go func() {
			err := monitor.Watch(cfg.Data.File, func(path string) {
				logger.Info("检测到数据文件更新: " + path)
				cache.Invalidate()
				reload("文件更新")
			})
			if err != nil {
				logger.Error("文件监控异常退出: " + err.Error())
			}
		}()
	}

	// 定时收取导出邮件
	if cfg.Email.Enabled {
		if err := startMailSchedule(cfg, logger); err != nil {
			logger.Error("创建定时任务失败: " + err.Error())
			return
		}
	}

	server := webui.NewServer(cache, cfg.DataPath(), logger)
	go func() {
		if err := server.Run(cfg.Server.Listen); err != nil {
			logger.Error("dashboard服务异常退出: " + err.Error())
			os.Exit(1)
		}
	}()

	waitForShutdown(logger)
}

// pushCharts 推送各图表序列到渲染服务
func pushCharts(c *datapush.RenderClient, df dataframe.DataFrame, logger *storage.Logger) {
	t1 := time.Now()
	datapush.PushAll(c, df, logger)
	logger.Info(fmt.Sprintf("图表推送完成, 耗时%v", time.Since(t1)))
}

// startMailSchedule 按配置间隔检查邮箱里的posts导出邮件
// 附件落盘后由文件监控触发重载，这里不直接操作缓存
func startMailSchedule(cfg *config.Config, logger *storage.Logger) error {
	mailClient := email.NewMailClient(
		cfg.Email.Server,
		cfg.Email.Username,
		cfg.Email.Password)

	handler := email.NewCSVAttachmentHandler(cfg.Email.TargetSubject, cfg.Data.Dir)

	c := cron.New()
	interval := time.Duration(cfg.Email.CheckInterval).String()
	cronSpec := fmt.Sprintf("@every %s", interval)

	err := c.AddFunc(cronSpec, func() {
		target, err := email.CheckForExport(mailClient, cfg.Email.TargetSubject, logger)
		if err != nil {
			logger.Error("检查邮件失败: " + err.Error())
			return
		}
		if target == nil {
			return
		}

		if err := handler.Handle(target, logger); err != nil {
			logger.Error(fmt.Sprintf("处理导出邮件失败(UID:%d): %v", target.UID, err))
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	logger.Info(fmt.Sprintf("邮件监控已启动(检查间隔: %v)", interval))
	return nil
}

func waitForShutdown(logger *storage.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info("收到信号: " + sig.String() + ", 正在退出...")
	logger.Close()
	os.Exit(0)
}

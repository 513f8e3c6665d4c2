package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/blobhub/blobhub/internal/cache"
	"github.com/blobhub/blobhub/internal/config"
	"github.com/blobhub/blobhub/internal/logging"
	"github.com/blobhub/blobhub/internal/server"
	"github.com/blobhub/blobhub/internal/server/routes"
	"github.com/blobhub/blobhub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		fmt.Fprintln(stdOut, version.Full())
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	// 启动遵循“配置 → 磁盘存储（目录锁 + 扫描重建索引）→ Fiber server”顺序，
	// 索引重建完成前不接受任何请求。
	blobs, err := openCache(cfg, logger)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}
	defer func() {
		if err := blobs.Close(); err != nil {
			logger.WithError(err).Warn("cache_close_failed")
		}
	}()

	fields := logging.BaseFields("startup", opts.configPath)
	fields["storage_path"] = cfg.Global.StoragePath
	fields["entries"] = blobs.Len()
	fields["version"] = version.Full()

	if opts.checkOnly {
		fields["action"] = "check_config"
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	fields["listen_port"] = cfg.Global.ListenPort
	fields["cors"] = cfg.Global.CORSEnabled()
	logger.WithFields(fields).Info("配置加载完成")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := startHTTPServer(ctx, cfg, blobs, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("blobhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 BLOBHUB_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "校验配置并扫描缓存目录后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("BLOBHUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func openCache(cfg *config.Config, logger *logrus.Logger) (*cache.Cache, error) {
	store, err := cache.NewStore(cfg.Global.StoragePath, logger)
	if err != nil {
		return nil, err
	}
	blobs, err := cache.New(context.Background(), store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return blobs, nil
}

func startHTTPServer(ctx context.Context, cfg *config.Config, blobs *cache.Cache, logger *logrus.Logger) error {
	g := cfg.Global
	app, err := server.NewApp(server.AppOptions{
		Logger:       logger,
		BodyLimit:    g.JSONRequestLimit,
		StaticPath:   g.StaticPath,
		AllowOrigins: g.AllowOrigins,
		ReadTimeout:  g.ReadTimeout.DurationValue(),
		WriteTimeout: g.WriteTimeout.DurationValue(),
	})
	if err != nil {
		return err
	}
	routes.Register(app, blobs, routes.Options{
		Logger:       logger,
		WaitForStore: g.WaitForStore,
	})

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   g.ListenPort,
	}).Info("Fiber 服务启动")

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(fmt.Sprintf(":%d", g.ListenPort))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.WithField("action", "shutdown").Warn("收到退出信号，正在关闭 HTTP 服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), g.ShutdownTimeout.DurationValue())
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

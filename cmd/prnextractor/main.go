package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PoorvaU/prn-extractor/internal/config"
	"github.com/PoorvaU/prn-extractor/internal/logger"
	"github.com/PoorvaU/prn-extractor/internal/server"
	"github.com/PoorvaU/prn-extractor/internal/util"
)

var (
	configPath string
	port       int
	devMode    bool
	dataDir    string
	noBrowser  bool

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:               "prnextractor",
	Short:             "PRN 名单导入、比对与报表工具",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "配置文件路径 (默认为可执行文件同目录下的 config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "数据目录 (覆盖配置文件)")

	rootCmd.Flags().IntVar(&port, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	rootCmd.Flags().BoolVar(&devMode, "dev", false, "开发模式")
	rootCmd.Flags().BoolVar(&noBrowser, "no-browser", false, "启动后不打开浏览器")

	rootCmd.AddCommand(exportCmd, dseAppendCmd, initConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志，命令行参数覆盖配置
func loadConfig(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}
	loaded, info, err := config.LoadConfigWithInfo(configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if port > 0 && !info.PortSpecified {
		loaded.Server.Port = port
	}
	if devMode {
		loaded.Server.DevMode = true
	}
	if dataDir != "" {
		loaded.Data.DataDir = dataDir
	}

	logger.Init(loaded.Logger)
	if !info.Found {
		logger.Debug().Str("path", info.Path).Msg("config file not found, using defaults")
	}
	cfg = loaded
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	fmt.Println("==========================================")
	fmt.Println("  PRN Extractor - 学生名单管理工具")
	fmt.Println("==========================================")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Printf("数据目录: %s\n", config.ResolveDataDir(cfg))

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("服务启动中，监听端口 %d ...\n", cfg.Server.Port)
		errCh <- srv.Run()
	}()

	url := fmt.Sprintf("http://localhost:%d/api/status", cfg.Server.Port)
	switch {
	case cfg.Server.DevMode:
		fmt.Printf("开发模式: 请访问 %s\n", url)
	case !noBrowser:
		fmt.Printf("正在打开浏览器: %s\n", url)
		if err := util.OpenBrowserWithFallback(url); err != nil {
			fmt.Printf("无法自动打开浏览器，请手动访问: %s\n", url)
		}
	}

	fmt.Println("\n按 Ctrl+C 停止服务...")

	select {
	case err := <-errCh:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	fmt.Println("\n正在关闭服务...")
	return srv.Shutdown(context.Background())
}

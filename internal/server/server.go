package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PoorvaU/prn-extractor/internal/api"
	"github.com/PoorvaU/prn-extractor/internal/config"
	"github.com/PoorvaU/prn-extractor/internal/logger"
	"github.com/PoorvaU/prn-extractor/internal/service/workflow"
	"github.com/PoorvaU/prn-extractor/internal/store"
)

const shutdownTimeout = 5 * time.Second

// Server HTTP服务器
type Server struct {
	router *gin.Engine
	store  *store.Store
	http   *http.Server
}

// OpenService 按配置打开数据库并创建业务服务，调用方负责关闭 Store
func OpenService(ctx context.Context, cfg *config.AppConfig) (*store.Store, *workflow.Service, error) {
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, cfg.Database, dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	svc := workflow.New(st, workflow.Options{
		Threshold:       cfg.Matching.Threshold,
		AcademicYear:    cfg.Academic.Year,
		YearDepartments: cfg.Academic.Departments,
	})
	return st, svc, nil
}

// NewServer 创建服务器
func NewServer(ctx context.Context, cfg *config.AppConfig) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	st, svc, err := OpenService(ctx, cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), api.RequestIDMiddleware(), api.LoggingMiddleware(), api.CORSMiddleware())

	handler := api.NewHandler(st, svc)
	handler.RegisterRoutes(router.Group("/api"))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return &Server{
		router: router,
		store:  st,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler 路由（用于测试）
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 监听地址
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run 启动服务器，正常关闭时返回 nil
func (s *Server) Run() error {
	logger.Info().Str("addr", s.http.Addr).Str("database", string(s.store.Dialect())).Msg("server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收请求并关闭数据库
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(ctx)
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// AppConfig 应用配置
type AppConfig struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Data     DataConfig     `toml:"data"`
	Matching MatchingConfig `toml:"matching"`
	Academic AcademicConfig `toml:"academic"`
	Logger   LoggerConfig   `toml:"logger"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port    int  `toml:"port" validate:"gte=1,lte=65535"`
	DevMode bool `toml:"dev_mode"`
}

// DatabaseConfig 数据库连接配置
// DSN 非空时直接使用；否则按 driver 由 host/port/user/password/name（或 sqlite 的 path）拼接
type DatabaseConfig struct {
	Driver   string `toml:"driver" validate:"required,oneof=sqlite3 mysql pgx"`
	DSN      string `toml:"dsn"`
	Path     string `toml:"path"` // sqlite 文件（相对数据目录）
	Host     string `toml:"host"`
	Port     int    `toml:"port" validate:"gte=0,lte=65535"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// DataConfig 数据目录配置
type DataConfig struct {
	DataDir string `toml:"data_dir"`
}

// MatchingConfig 模糊匹配配置（所有页面共用同一阈值）
type MatchingConfig struct {
	Threshold int `toml:"threshold" validate:"gte=0,lte=100"`
}

// AcademicConfig 学年相关配置
type AcademicConfig struct {
	Year        string   `toml:"year" validate:"required"`        // 入学年份列写入值，例如 2023-24
	Departments []string `toml:"departments" validate:"required"` // 按院系分年级导出时的院系简称
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level       string `toml:"level"`       // trace/debug/info/warn/error
	Environment string `toml:"environment"` // production 输出 JSON，其余输出控制台格式
}

// LoadConfigInfo 配置加载元信息
type LoadConfigInfo struct {
	Path          string
	Found         bool
	PortSpecified bool
}

// DefaultConfig 默认配置
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:    20261,
			DevMode: false,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			Path:   "university.db",
			Port:   0,
		},
		Data: DataConfig{
			DataDir: "data",
		},
		Matching: MatchingConfig{
			Threshold: 70,
		},
		Academic: AcademicConfig{
			Year:        "2023-24",
			Departments: []string{"auto", "comps", "ecs", "extc", "it", "mech"},
		},
		Logger: LoggerConfig{
			Level:       "info",
			Environment: "development",
		},
	}
}

func isPortSpecifiedInToml(data []byte) bool {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return false
	}

	serverAny, ok := raw["server"]
	if !ok {
		return false
	}

	serverMap, ok := serverAny.(map[string]any)
	if !ok {
		return false
	}

	_, ok = serverMap["port"]
	return ok
}

// GetExeDir 获取可执行文件所在目录
func GetExeDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

// DefaultConfigPath 可执行文件同目录下的 config.toml
func DefaultConfigPath() string {
	exeDir, err := GetExeDir()
	if err != nil {
		// 无法获取可执行文件目录，使用当前目录
		exeDir = "."
	}
	return filepath.Join(exeDir, "config.toml")
}

// LoadConfigWithInfo 从 configPath 加载配置并返回元信息，configPath 为空时使用默认路径
func LoadConfigWithInfo(configPath string) (*AppConfig, LoadConfigInfo, error) {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	info := LoadConfigInfo{Path: configPath}
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		info.Found = true
		info.PortSpecified = isPortSpecifiedInToml(data)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, info, err
		}
	case os.IsNotExist(err):
		// 配置文件不存在，使用默认配置
	default:
		return nil, info, err
	}

	applyEnv(config)

	if err := Validate(config); err != nil {
		return nil, info, err
	}
	return config, info, nil
}

// applyEnv 环境变量覆盖（数据库凭据不写入配置文件时使用）
func applyEnv(config *AppConfig) {
	if v := os.Getenv("PRN_DB_DRIVER"); v != "" {
		config.Database.Driver = v
	}
	if v := os.Getenv("PRN_DB_DSN"); v != "" {
		config.Database.DSN = v
	}
	if v := os.Getenv("PRN_DB_HOST"); v != "" {
		config.Database.Host = v
	}
	if v := os.Getenv("PRN_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Database.Port = port
		}
	}
	if v := os.Getenv("PRN_DB_USER"); v != "" {
		config.Database.User = v
	}
	if v := os.Getenv("PRN_DB_PASSWORD"); v != "" {
		config.Database.Password = v
	}
	if v := os.Getenv("PRN_DB_NAME"); v != "" {
		config.Database.Name = v
	}
	if v := os.Getenv("PRN_LOG_LEVEL"); v != "" {
		config.Logger.Level = v
	}
}

var validate = validator.New()

// Validate 校验配置取值
func Validate(config *AppConfig) error {
	return validate.Struct(config)
}

// SaveConfig 保存配置到 configPath
func SaveConfig(config *AppConfig, configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// ExportsDir 数据目录下保存导出报表的子目录
const ExportsDir = "exports"

// EnsureDataDir 确保数据目录存在
// 相对路径的数据目录位于可执行文件同目录下
func EnsureDataDir(config *AppConfig) (string, error) {
	dataDir := ResolveDataDir(config)

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	// 导出文件目录
	if err := os.MkdirAll(filepath.Join(dataDir, ExportsDir), 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// ResolveDataDir 数据目录绝对路径
func ResolveDataDir(config *AppConfig) string {
	if filepath.IsAbs(config.Data.DataDir) {
		return config.Data.DataDir
	}
	exeDir, err := GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return filepath.Join(exeDir, config.Data.DataDir)
}

// GetDataPath 获取数据文件路径
func GetDataPath(config *AppConfig, subdir, filename string) string {
	return filepath.Join(ResolveDataDir(config), subdir, filename)
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"room-editor/backend/internal/world"
)

// Переменные окружения, переопределяющие файл конфигурации
const (
	EnvConfigPath = "ROOM_EDITOR_CONFIG"
	EnvListen     = "ROOM_EDITOR_LISTEN"
	EnvDBPath     = "ROOM_EDITOR_DB"
	EnvMaxHistory = "ROOM_EDITOR_MAX_HISTORY"
)

// StorageDriver хранилище слота автосохранения
type StorageDriver string

const (
	StorageSQLite StorageDriver = "sqlite"
	StorageMemory StorageDriver = "memory"
)

// Config конфигурация сервера редактора
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Editor    EditorConfig    `yaml:"editor"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig HTTP-сервер
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	StaticDir       string        `yaml:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig слот автосохранения
type StorageConfig struct {
	Driver StorageDriver `yaml:"driver"`
	Path   string        `yaml:"path"` // файл базы sqlite
}

// EditorConfig параметры сессии редактора
type EditorConfig struct {
	MaxHistory        int           `yaml:"max_history"`
	AutoSaveInterval  time.Duration `yaml:"autosave_interval"`
	InitialStateDelay time.Duration `yaml:"initial_state_delay"`
	SampleScene       bool          `yaml:"sample_scene"`
	LoadAutoSave      bool          `yaml:"load_autosave"`

	SnapEnabled bool    `yaml:"snap_enabled"`
	SnapSize    float64 `yaml:"snap_size"`

	// RotationSnapDeg шаг привязки поворота в градусах
	RotationSnapDeg float64 `yaml:"rotation_snap_deg"`
}

// TelemetryConfig журнал операций
type TelemetryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	SummaryInterval time.Duration `yaml:"summary_interval"`
}

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	editor := world.DefaultEditorConfig()
	return &Config{
		Server: ServerConfig{
			Listen:          ":8080",
			StaticDir:       "dist",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   "room-editor.db",
		},
		Editor: EditorConfig{
			MaxHistory:        editor.MaxHistory,
			AutoSaveInterval:  30 * time.Second,
			InitialStateDelay: 100 * time.Millisecond,
			SampleScene:       true,
			SnapEnabled:       editor.Snap.Enabled,
			SnapSize:          editor.Snap.Size,
			RotationSnapDeg:   editor.Snap.RotationSnap,
		},
		Telemetry: TelemetryConfig{
			Enabled:         true,
			SummaryInterval: 30 * time.Second,
		},
	}
}

// LoadFile читает YAML поверх значений по умолчанию. Неизвестные ключи
// считаются ошибкой.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv применяет переопределения из окружения
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvListen); v != "" {
		c.Server.Listen = v
	}
	if v := getenv(EnvDBPath); v != "" {
		c.Storage.Path = v
	}
	if v := getenv(EnvMaxHistory); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxHistory, err)
		}
		c.Editor.MaxHistory = n
	}
	return nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("config: пустой адрес сервера")
	}
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: не задан путь к базе sqlite")
		}
	default:
		return fmt.Errorf("config: неизвестное хранилище %q", c.Storage.Driver)
	}
	if c.Editor.MaxHistory < 1 {
		return fmt.Errorf("config: max_history должен быть положительным, получено %d", c.Editor.MaxHistory)
	}
	if c.Editor.AutoSaveInterval <= 0 {
		return fmt.Errorf("config: autosave_interval должен быть положительным, получено %v", c.Editor.AutoSaveInterval)
	}
	if c.Editor.RotationSnapDeg <= 0 || c.Editor.RotationSnapDeg > 180 {
		return fmt.Errorf("config: rotation_snap_deg вне диапазона (0, 180]: %v", c.Editor.RotationSnapDeg)
	}
	return nil
}

// EditorSettings переносит параметры редактора в настройки мира
func (c *Config) EditorSettings() world.EditorConfig {
	editor := world.DefaultEditorConfig()
	editor.MaxHistory = c.Editor.MaxHistory
	editor.Snap.Enabled = c.Editor.SnapEnabled
	editor.Snap.RotationSnap = c.Editor.RotationSnapDeg
	if c.Editor.SnapSize > 0 {
		editor.Snap.Size = c.Editor.SnapSize
	}
	return editor
}

// Flags флаги командной строки сервера
type Flags struct {
	set *pflag.FlagSet

	configPath string
	listen     string
	dbPath     string
	storage    string
	staticDir  string
	maxHistory int
	autoSave   time.Duration
	sample     bool
	restore    bool
}

// NewFlags регистрирует флаги сервера
func NewFlags(name string) *Flags {
	f := &Flags{set: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.set.StringVarP(&f.configPath, "config", "c", "", "путь к YAML-файлу конфигурации (или "+EnvConfigPath+")")
	f.set.StringVar(&f.listen, "listen", "", "адрес HTTP-сервера, например :8080")
	f.set.StringVar(&f.dbPath, "db", "", "файл базы sqlite для автосохранения")
	f.set.StringVar(&f.storage, "storage", "", "хранилище автосохранения: sqlite или memory")
	f.set.StringVar(&f.staticDir, "static", "", "каталог статических файлов клиента")
	f.set.IntVar(&f.maxHistory, "max-history", 0, "глубина истории отмены")
	f.set.DurationVar(&f.autoSave, "autosave-interval", 0, "интервал автосохранения")
	f.set.BoolVar(&f.sample, "sample", true, "расставить демонстрационную мебель при старте")
	f.set.BoolVar(&f.restore, "restore", false, "загрузить автосохранение при старте")
	return f
}

// FlagSet возвращает набор флагов для вывода справки
func (f *Flags) FlagSet() *pflag.FlagSet {
	return f.set
}

// Load разбирает аргументы и собирает конфигурацию: значения по умолчанию,
// затем файл, окружение и явно заданные флаги
func (f *Flags) Load(args []string, getenv func(string) string) (*Config, error) {
	if err := f.set.Parse(args); err != nil {
		return nil, err
	}

	path := f.configPath
	if path == "" {
		path = getenv(EnvConfigPath)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}

	if f.set.Changed("listen") {
		cfg.Server.Listen = f.listen
	}
	if f.set.Changed("db") {
		cfg.Storage.Path = f.dbPath
	}
	if f.set.Changed("storage") {
		cfg.Storage.Driver = StorageDriver(f.storage)
	}
	if f.set.Changed("static") {
		cfg.Server.StaticDir = f.staticDir
	}
	if f.set.Changed("max-history") {
		cfg.Editor.MaxHistory = f.maxHistory
	}
	if f.set.Changed("autosave-interval") {
		cfg.Editor.AutoSaveInterval = f.autoSave
	}
	if f.set.Changed("sample") {
		cfg.Editor.SampleScene = f.sample
	}
	if f.set.Changed("restore") {
		cfg.Editor.LoadAutoSave = f.restore
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

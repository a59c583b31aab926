package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/intelligence"
	"github.com/Armpjsf/wms-360-pro-sub001/internal/sheets"
)

type Config struct {
	Server       ServerConfig
	Log          LogConfig
	Source       SourceConfig
	Storage      StorageConfig
	Cache        CacheConfig
	Intelligence IntelligenceConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SourceConfig selects where snapshots are read from.
// Kind is one of sheets, drive, object or file.
type SourceConfig struct {
	Kind            string
	SpreadsheetID   string
	DriveFileID     string
	DriveFolderID   string
	ObjectKey       string
	WorkbookPath    string
	CredentialsJSON string
	CredentialsFile string
	Timezone        string
	LoadTimeout     int
	SnapshotTTL     int
	RefreshInterval int
	Tabs            sheets.Tabs
}

type StorageConfig struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	UseSSL       bool
	ReportPrefix string
}

// Configured reports whether enough is set to build a storage client.
func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
	KeyPrefix        string
}

type IntelligenceConfig struct {
	LeadTimeDays             int
	ServiceLevelZ            float64
	TargetDays               int
	ClassABoundary           float64
	ClassBBoundary           float64
	AllocationMethod         string
	UsageWindowDays          int
	VelocityWindowDays       int
	TrendSlopeThreshold      float64
	MinConfidence            float64
	VarianceThresholdPercent float64
	VarianceMinSystemQty     int
	FutureToleranceDays      int
	ReconcileTolerance       int
	SlowMovingDays           int
	DeadStockDays            int
	ZoneOrder                []string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = FromViper(viper.GetViper())
	})

	return instance
}

// FromViper applies defaults to v, binds the environment and builds a Config.
func FromViper(v *viper.Viper) *Config {
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Source: SourceConfig{
			Kind:            strings.ToLower(v.GetString("SOURCE_KIND")),
			SpreadsheetID:   v.GetString("SHEETS_SPREADSHEET_ID"),
			DriveFileID:     v.GetString("DRIVE_FILE_ID"),
			DriveFolderID:   v.GetString("DRIVE_FOLDER_ID"),
			ObjectKey:       v.GetString("SOURCE_OBJECT_KEY"),
			WorkbookPath:    v.GetString("SOURCE_WORKBOOK_PATH"),
			CredentialsJSON: v.GetString("GOOGLE_CREDENTIALS_JSON"),
			CredentialsFile: v.GetString("GOOGLE_CREDENTIALS_FILE"),
			Timezone:        v.GetString("SOURCE_TIMEZONE"),
			LoadTimeout:     v.GetInt("SOURCE_LOAD_TIMEOUT_SECONDS"),
			SnapshotTTL:     v.GetInt("SOURCE_SNAPSHOT_TTL_SECONDS"),
			RefreshInterval: v.GetInt("SOURCE_REFRESH_INTERVAL_SECONDS"),
			Tabs: sheets.Tabs{
				Products:     v.GetString("SHEETS_PRODUCTS_TAB"),
				Transactions: v.GetString("SHEETS_TRANSACTIONS_TAB"),
				Damages:      v.GetString("SHEETS_DAMAGES_TAB"),
				CycleCounts:  v.GetString("SHEETS_CYCLE_COUNTS_TAB"),
			},
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("STORAGE_ENDPOINT"),
			AccessKey:    v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey:    v.GetString("STORAGE_SECRET_KEY"),
			Bucket:       v.GetString("STORAGE_BUCKET"),
			Region:       v.GetString("STORAGE_REGION"),
			UseSSL:       v.GetBool("STORAGE_USE_SSL"),
			ReportPrefix: v.GetString("STORAGE_REPORT_PREFIX"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
			KeyPrefix:        v.GetString("CACHE_KEY_PREFIX"),
		},
		Intelligence: IntelligenceConfig{
			LeadTimeDays:             v.GetInt("INTEL_LEAD_TIME_DAYS"),
			ServiceLevelZ:            v.GetFloat64("INTEL_SERVICE_LEVEL_Z"),
			TargetDays:               v.GetInt("INTEL_TARGET_DAYS"),
			ClassABoundary:           v.GetFloat64("INTEL_CLASS_A_BOUNDARY"),
			ClassBBoundary:           v.GetFloat64("INTEL_CLASS_B_BOUNDARY"),
			AllocationMethod:         v.GetString("INTEL_ALLOCATION_METHOD"),
			UsageWindowDays:          v.GetInt("INTEL_USAGE_WINDOW_DAYS"),
			VelocityWindowDays:       v.GetInt("INTEL_VELOCITY_WINDOW_DAYS"),
			TrendSlopeThreshold:      v.GetFloat64("INTEL_TREND_SLOPE_THRESHOLD"),
			MinConfidence:            v.GetFloat64("INTEL_MIN_CONFIDENCE"),
			VarianceThresholdPercent: v.GetFloat64("INTEL_VARIANCE_THRESHOLD_PERCENT"),
			VarianceMinSystemQty:     v.GetInt("INTEL_VARIANCE_MIN_SYSTEM_QTY"),
			FutureToleranceDays:      v.GetInt("INTEL_FUTURE_TOLERANCE_DAYS"),
			ReconcileTolerance:       v.GetInt("INTEL_RECONCILE_TOLERANCE"),
			SlowMovingDays:           v.GetInt("INTEL_SLOW_MOVING_DAYS"),
			DeadStockDays:            v.GetInt("INTEL_DEAD_STOCK_DAYS"),
			ZoneOrder:                splitList(v.GetStringSlice("INTEL_ZONE_ORDER")),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("SOURCE_KIND", "file")
	v.SetDefault("SOURCE_WORKBOOK_PATH", "./data/inventory.xlsx")
	v.SetDefault("SOURCE_OBJECT_KEY", "exports/")
	v.SetDefault("SOURCE_TIMEZONE", "UTC")
	v.SetDefault("SOURCE_LOAD_TIMEOUT_SECONDS", 30)
	v.SetDefault("SOURCE_SNAPSHOT_TTL_SECONDS", 30)
	v.SetDefault("SOURCE_REFRESH_INTERVAL_SECONDS", 0)
	tabs := sheets.DefaultTabs()
	v.SetDefault("SHEETS_PRODUCTS_TAB", tabs.Products)
	v.SetDefault("SHEETS_TRANSACTIONS_TAB", tabs.Transactions)
	v.SetDefault("SHEETS_DAMAGES_TAB", tabs.Damages)
	v.SetDefault("SHEETS_CYCLE_COUNTS_TAB", tabs.CycleCounts)

	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_REPORT_PREFIX", "reports/")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 60)
	v.SetDefault("CACHE_KEY_PREFIX", "")

	d := intelligence.DefaultParams()
	v.SetDefault("INTEL_LEAD_TIME_DAYS", d.LeadTimeDays)
	v.SetDefault("INTEL_SERVICE_LEVEL_Z", d.ServiceLevelZ)
	v.SetDefault("INTEL_TARGET_DAYS", d.TargetDays)
	v.SetDefault("INTEL_CLASS_A_BOUNDARY", d.ClassABoundaryPercent)
	v.SetDefault("INTEL_CLASS_B_BOUNDARY", d.ClassBBoundaryPercent)
	v.SetDefault("INTEL_ALLOCATION_METHOD", string(d.AllocationMethod))
	v.SetDefault("INTEL_USAGE_WINDOW_DAYS", d.UsageWindowDays)
	v.SetDefault("INTEL_VELOCITY_WINDOW_DAYS", d.VelocityWindowDays)
	v.SetDefault("INTEL_TREND_SLOPE_THRESHOLD", d.TrendSlopeThreshold)
	v.SetDefault("INTEL_MIN_CONFIDENCE", d.MinConfidence)
	v.SetDefault("INTEL_VARIANCE_THRESHOLD_PERCENT", d.VarianceThresholdPercent)
	v.SetDefault("INTEL_VARIANCE_MIN_SYSTEM_QTY", d.VarianceMinSystemQty)
	v.SetDefault("INTEL_FUTURE_TOLERANCE_DAYS", d.FutureToleranceDays)
	v.SetDefault("INTEL_RECONCILE_TOLERANCE", d.ReconcileTolerance)
	v.SetDefault("INTEL_SLOW_MOVING_DAYS", d.SlowMovingDays)
	v.SetDefault("INTEL_DEAD_STOCK_DAYS", d.DeadStockDays)
	v.SetDefault("INTEL_ZONE_ORDER", []string{})
}

// IntelligenceParams converts the configured thresholds into engine parameters.
func (c *Config) IntelligenceParams() (intelligence.Params, error) {
	ic := c.Intelligence
	method, err := intelligence.ParseAllocationMethod(ic.AllocationMethod)
	if err != nil {
		return intelligence.Params{}, err
	}
	p := intelligence.Params{
		LeadTimeDays:             ic.LeadTimeDays,
		ServiceLevelZ:            ic.ServiceLevelZ,
		TargetDays:               ic.TargetDays,
		ClassABoundaryPercent:    ic.ClassABoundary,
		ClassBBoundaryPercent:    ic.ClassBBoundary,
		AllocationMethod:         method,
		UsageWindowDays:          ic.UsageWindowDays,
		VelocityWindowDays:       ic.VelocityWindowDays,
		TrendSlopeThreshold:      ic.TrendSlopeThreshold,
		MinConfidence:            ic.MinConfidence,
		VarianceThresholdPercent: ic.VarianceThresholdPercent,
		VarianceMinSystemQty:     ic.VarianceMinSystemQty,
		FutureToleranceDays:      ic.FutureToleranceDays,
		ReconcileTolerance:       ic.ReconcileTolerance,
		SlowMovingDays:           ic.SlowMovingDays,
		DeadStockDays:            ic.DeadStockDays,
	}.WithDefaults()
	return p, p.Validate()
}

// ZoneOrder returns the configured zone layout, or alphabetical order when none is set.
func (c *Config) ZoneOrder() intelligence.ZoneOrder {
	if len(c.Intelligence.ZoneOrder) == 0 {
		return intelligence.AlphabeticalZones
	}
	return intelligence.ZoneList(c.Intelligence.ZoneOrder...)
}

// Location resolves the configured source timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Source.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadTimeout bounds a single snapshot load.
func (c *Config) LoadTimeout() time.Duration {
	if c.Source.LoadTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Source.LoadTimeout) * time.Second
}

// splitList accepts both space and comma separated env values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

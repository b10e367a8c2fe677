// Package logging provides config-driven categorized logging for the storefront client.
// Logs are written to .storefront/logs/ with separate files per category, or to stderr
// for scripted commands. When debug mode is off, nothing is written: the terminal UI
// owns stdout and stderr.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup, wiring, shutdown
	CategoryConfig   Category = "config"   // Config load and reload
	CategoryAPI      Category = "api"      // Outbound storefront API calls
	CategorySession  Category = "session"  // Session token lifecycle
	CategoryStore    Category = "store"    // Key-value store operations
	CategoryCatalog  Category = "catalog"  // Product listing, add to cart
	CategoryCart     Category = "cart"     // Cart state controller
	CategoryCheckout Category = "checkout" // Snapshot handoff
	CategoryPayment  Category = "payment"  // Payment form and receipts
	CategoryBadge    Category = "badge"    // Cart badge notifications
	CategoryUI       Category = "ui"       // Terminal UI routing and pages
)

// Settings mirrors config.LoggingConfig to avoid an import cycle.
type Settings struct {
	DebugMode  bool
	Level      string
	Format     string // json or text
	Categories map[string]bool
	// Stderr routes every category to stderr instead of per-category files.
	Stderr bool
}

// Logger is a category-scoped logger. The zero value (nil sugar) is a no-op.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	failed    = make(map[Category]bool)
	loggersMu sync.RWMutex
	logsDir   string
	settings  Settings
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	configMu  sync.RWMutex
)

// Initialize sets up the logs directory under workspace and applies settings.
// Call once at startup; call Configure to change settings later.
func Initialize(workspace string, s Settings) error {
	if workspace == "" && !s.Stderr {
		return fmt.Errorf("workspace path required")
	}

	CloseAll()

	configMu.Lock()
	logsDir = filepath.Join(workspace, ".storefront", "logs")
	configMu.Unlock()

	Configure(s)

	if !IsDebugMode() {
		return nil
	}
	if err := prepareFileSinks(); err != nil {
		return err
	}

	Boot("logging initialized: dir=%s level=%s format=%s", logsDir, s.Level, s.Format)
	return nil
}

// Configure swaps the active settings. Existing loggers keep their sinks; the level
// change applies to them immediately. Turning debug mode on creates the logs
// directory and opens the audit log if Initialize did not.
func Configure(s Settings) {
	configMu.Lock()
	settings = s
	level.SetLevel(parseLevel(s.Level))
	configMu.Unlock()

	loggersMu.Lock()
	failed = make(map[Category]bool)
	loggersMu.Unlock()

	if s.DebugMode {
		// A failure here surfaces once per category from Get.
		_ = prepareFileSinks()
	}
}

// prepareFileSinks creates the logs directory and opens the audit log when
// logging goes to files.
func prepareFileSinks() error {
	configMu.RLock()
	s := settings
	dir := logsDir
	configMu.RUnlock()

	if !s.DebugMode || s.Stderr || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return InitAudit()
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether logging is enabled at all
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if !settings.DebugMode {
		return false
	}
	if settings.Categories == nil {
		return true
	}
	enabled, exists := settings.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}
	if failed[category] {
		return &Logger{category: category}
	}

	l, err := newLogger(category)
	if err != nil {
		// Warn once; retried after the next Configure.
		failed[category] = true
		fmt.Fprintf(os.Stderr, "[logging] Warning: %v\n", err)
		return &Logger{category: category}
	}
	loggers[category] = l
	return l
}

func newLogger(category Category) (*Logger, error) {
	configMu.RLock()
	s := settings
	dir := logsDir
	configMu.RUnlock()

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if s.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var (
		sink zapcore.WriteSyncer
		file *os.File
	)
	if s.Stderr {
		sink = zapcore.Lock(os.Stderr)
	} else {
		date := time.Now().Format("2006-01-02")
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file %s: %w", path, err)
		}
		file = f
		sink = zapcore.AddSync(f)
	}

	core := zapcore.NewCore(enc, sink, level)
	z := zap.New(core).With(zap.String("cat", string(category)))
	return &Logger{category: category, sugar: z.Sugar(), file: file}, nil
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying extra structured fields (key, value pairs).
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// CloseAll flushes and closes all open log files (call at shutdown)
func CloseAll() {
	CloseAudit()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	for _, l := range loggers {
		if l.sugar != nil {
			_ = l.sugar.Sync()
		}
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
	failed = make(map[Category]bool)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootError logs an error to the boot category
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// Config logs to the config category
func Config(format string, args ...interface{}) { Get(CategoryConfig).Info(format, args...) }

// ConfigWarn logs a warning to the config category
func ConfigWarn(format string, args ...interface{}) { Get(CategoryConfig).Warn(format, args...) }

// API logs to the api category
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// APIDebug logs debug to the api category
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

// APIError logs an error to the api category
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

// Session logs to the session category
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

// Store logs to the store category
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// StoreError logs an error to the store category
func StoreError(format string, args ...interface{}) { Get(CategoryStore).Error(format, args...) }

// Catalog logs to the catalog category
func Catalog(format string, args ...interface{}) { Get(CategoryCatalog).Info(format, args...) }

// CatalogError logs an error to the catalog category
func CatalogError(format string, args ...interface{}) { Get(CategoryCatalog).Error(format, args...) }

// Cart logs to the cart category
func Cart(format string, args ...interface{}) { Get(CategoryCart).Info(format, args...) }

// CartDebug logs debug to the cart category
func CartDebug(format string, args ...interface{}) { Get(CategoryCart).Debug(format, args...) }

// CartWarn logs a warning to the cart category
func CartWarn(format string, args ...interface{}) { Get(CategoryCart).Warn(format, args...) }

// CartError logs an error to the cart category
func CartError(format string, args ...interface{}) { Get(CategoryCart).Error(format, args...) }

// Checkout logs to the checkout category
func Checkout(format string, args ...interface{}) { Get(CategoryCheckout).Info(format, args...) }

// CheckoutWarn logs a warning to the checkout category
func CheckoutWarn(format string, args ...interface{}) { Get(CategoryCheckout).Warn(format, args...) }

// Payment logs to the payment category
func Payment(format string, args ...interface{}) { Get(CategoryPayment).Info(format, args...) }

// PaymentError logs an error to the payment category
func PaymentError(format string, args ...interface{}) { Get(CategoryPayment).Error(format, args...) }

// BadgeDebug logs debug to the badge category
func BadgeDebug(format string, args ...interface{}) { Get(CategoryBadge).Debug(format, args...) }

// UI logs to the ui category
func UI(format string, args ...interface{}) { Get(CategoryUI).Info(format, args...) }

// UIDebug logs debug to the ui category
func UIDebug(format string, args ...interface{}) { Get(CategoryUI).Debug(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs a warning if the duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

// Package logging is the leveled logger shared by the voxlab server and
// viewers. Messages go through the standard log package; a LogConfig with a
// file name redirects them to a size- and age-rotated file.
package logging

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/lumberjack"
)

// ModeFlag is the minimum level that gets written.
type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var (
	mu   sync.Mutex
	mode = InfoMode
	file *lumberjack.Logger
)

// LogConfig configures the rotating log file.
type LogConfig struct {
	Logfile string
	MaxSize int `toml:"max_log_size"`
	MaxAge  int `toml:"max_log_age"`
}

// SetLogger sends log output to the configured rotating file. With no file
// name, output stays on stderr.
func (c *LogConfig) SetLogger() {
	if c == nil || c.Logfile == "" {
		Debugf("no log file configured, logging to stderr")
		return
	}
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	mu.Lock()
	file = l
	mu.Unlock()
	log.SetOutput(l)
}

// SetOutput redirects log output, e.g. to io.Discard while a full-screen
// terminal UI owns stdout and stderr.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

var modeNames = map[string]ModeFlag{
	"debug":    DebugMode,
	"info":     InfoMode,
	"warning":  WarningMode,
	"error":    ErrorMode,
	"critical": CriticalMode,
	"silent":   SilentMode,
}

// ParseMode maps a level name such as "debug" or "silent" to its ModeFlag.
func ParseMode(name string) (ModeFlag, error) {
	m, ok := modeNames[strings.ToLower(name)]
	if !ok {
		return InfoMode, fmt.Errorf("unknown log level %q", name)
	}
	return m, nil
}

// SetLogMode sets the minimum level that gets written.
func SetLogMode(newMode ModeFlag) {
	mu.Lock()
	mode = newMode
	mu.Unlock()
}

func enabled(level ModeFlag) bool {
	mu.Lock()
	defer mu.Unlock()
	return mode <= level
}

// Debugf logs at Debug level.
func Debugf(format string, args ...any) {
	if enabled(DebugMode) {
		log.Printf(" DEBUG "+format, args...)
	}
}

// Infof logs at Info level.
func Infof(format string, args ...any) {
	if enabled(InfoMode) {
		log.Printf(" INFO "+format, args...)
	}
}

// Warningf logs at Warning level.
func Warningf(format string, args ...any) {
	if enabled(WarningMode) {
		log.Printf(" WARNING "+format, args...)
	}
}

// Errorf logs at Error level.
func Errorf(format string, args ...any) {
	if enabled(ErrorMode) {
		log.Printf(" ERROR "+format, args...)
	}
}

// Criticalf logs at Critical level.
func Criticalf(format string, args ...any) {
	if enabled(CriticalMode) {
		log.Printf(" CRITICAL "+format, args...)
	}
}

// Shutdown closes the rotating log file, if any.
func Shutdown() {
	mu.Lock()
	defer mu.Unlock()
	if file != nil {
		file.Close()
		file = nil
	}
}

// TimeLog appends the elapsed time since its creation to each message.
type TimeLog struct {
	start time.Time
}

// NewTimeLog starts a timer.
func NewTimeLog() TimeLog {
	return TimeLog{start: time.Now()}
}

// Debugf logs at Debug level with the elapsed time.
func (t TimeLog) Debugf(format string, args ...any) {
	Debugf(format+": %s", append(args, time.Since(t.start))...)
}

// Infof logs at Info level with the elapsed time.
func (t TimeLog) Infof(format string, args ...any) {
	Infof(format+": %s", append(args, time.Since(t.start))...)
}

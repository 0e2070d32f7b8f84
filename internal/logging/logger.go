package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxLogs  = 10
	DefaultCrashDir = "/app/logs/crash/"
)

type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	crashDir string
	logs     []string
	logIndex int
	maxLogs  int
}

var instance *Logger
var once sync.Once

// Intializes static logger (records last 10 logs)
func InitLogger(crashDir string) {
	once.Do(func() {
		instance = NewLogger(os.Stdout, DefaultMaxLogs, crashDir)
	})
}

// Singleton method to make sure theres only one instance of logger
func GetLogger() *Logger {
	if instance == nil {
		panic("Logger not initialized. Call InitLogger() first.")
	}
	return instance
}

// NewLogger creates a logger writing to out that remembers its last maxLogs
// lines for crash reports
func NewLogger(out io.Writer, maxLogs int, crashDir string) *Logger {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	if crashDir == "" {
		crashDir = DefaultCrashDir
	}
	return &Logger{
		out:      out,
		crashDir: crashDir,
		logs:     make([]string, maxLogs),
		maxLogs:  maxLogs,
	}
}

// Log something to terminal in the 2006-01-02 15:04:05 format
func (l *Logger) Log(level, message string) {
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formattedMessage := fmt.Sprintf("[%s] [%s] %s", timestamp, level, message)

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, formattedMessage)
	l.logs[l.logIndex] = formattedMessage
	l.logIndex = (l.logIndex + 1) % l.maxLogs
}

func (l *Logger) Info(message string) {
	l.Log("INFO", message)
}

func (l *Logger) Debug(message string) {
	l.Log("DEBUG", message)
}

func (l *Logger) Warn(message string) {
	l.Log("WARN", message)
}

func (l *Logger) Error(message string) {
	l.Log("ERROR", message)
}

func (l *Logger) Infof(format string, args ...any) {
	l.Log("INFO", fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.Log("WARN", fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Log("ERROR", fmt.Sprintf(format, args...))
}

// Print lets chi's request logger write through this logger
func (l *Logger) Print(v ...any) {
	l.Log("HTTP", strings.TrimRight(fmt.Sprint(v...), "\n"))
}

// Global recovery system
func (l *Logger) RecoverAndLogPanic() {
	if r := recover(); r != nil {
		l.Errorf("recovered from panic: %v", r)
		if _, err := l.WriteCrashFile(r); err != nil {
			fmt.Fprintf(l.out, "Failed to write crash file: %v\n", err)
		}
	}
}

// Write all logs to file from the array, returns the crash file path
func (l *Logger) WriteCrashFile(r any) (string, error) {
	recentLogs := l.GetRecentLogs()

	if err := os.MkdirAll(l.crashDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000000")
	crashFile := filepath.Join(l.crashDir, fmt.Sprintf("crash-%s.log", timestamp))
	file, err := os.Create(crashFile)
	if err != nil {
		return "", fmt.Errorf("failed to create crash file: %w", err)
	}
	defer file.Close()

	var b strings.Builder
	b.WriteString("==== Crash Report ====\n")
	b.WriteString(fmt.Sprintf("Time: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Panic: %v\n\n", r))
	b.WriteString(fmt.Sprintf("==== Last %d Logs ====\n", l.maxLogs))
	for _, log := range recentLogs {
		b.WriteString(log + "\n")
	}

	if _, err := file.WriteString(b.String()); err != nil {
		return "", fmt.Errorf("failed to write crash file: %w", err)
	}
	return crashFile, nil
}

// Get the recent logs stored in the array, oldest first
func (l *Logger) GetRecentLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var recentLogs []string
	for i := 0; i < l.maxLogs; i++ {
		index := (l.logIndex + i) % l.maxLogs
		if l.logs[index] != "" {
			recentLogs = append(recentLogs, l.logs[index])
		}
	}
	return recentLogs
}

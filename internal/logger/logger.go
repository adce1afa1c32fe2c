package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[Level]*color.Color{
	DEBUG: color.New(color.FgCyan),
	INFO:  color.New(color.FgGreen),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgRed, color.Bold),
}

var categoryColors = map[Level]*color.Color{
	DEBUG: color.New(color.FgCyan, color.Bold),
	INFO:  color.New(color.FgGreen, color.Bold),
	WARN:  color.New(color.FgYellow, color.Bold),
	ERROR: color.New(color.FgRed, color.Bold),
	FATAL: color.New(color.FgRed, color.Bold),
}

type entry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
}

// Logger writes colored lines to the terminal and JSON lines to a daily
// file under logs/. The zero value logs to stdout only, which is what the
// tests use.
type Logger struct {
	minLevel Level
	terminal io.Writer
	logFile  *os.File
}

func NewLogger() *Logger {
	l := &Logger{
		minLevel: levelFromEnv(),
		terminal: os.Stdout,
	}

	if err := os.MkdirAll("logs", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "logger: cannot create logs directory: %v\n", err)
		return l
	}

	name := fmt.Sprintf("logs/guestlist-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: cannot open %s: %v\n", name, err)
		return l
	}
	l.logFile = logFile

	l.Info("LOGGER", fmt.Sprintf("Logging to %s", name))
	return l
}

func levelFromEnv() Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func (l *Logger) log(level Level, category, message string) {
	if level < l.minLevel {
		return
	}

	e := entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     levelNames[level],
		Category:  strings.ToUpper(category),
		Message:   message,
	}

	out := l.terminal
	if out == nil {
		out = os.Stdout
	}
	timeStr := color.New(color.FgBlue).Sprint(e.Timestamp[11:19])
	levelStr := levelColors[level].Sprintf("%-5s", e.Level)
	categoryStr := categoryColors[level].Sprintf("[%-8s]", e.Category)
	fmt.Fprintf(out, "%s %s %s %s\n", timeStr, levelStr, categoryStr, e.Message)

	if l.logFile != nil {
		if line, err := json.Marshal(e); err == nil {
			l.logFile.Write(append(line, '\n'))
		}
	}
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

// Domain helpers.
func (l *Logger) LogCheckIn(action, guestID, message string) {
	l.Info("CHECK_IN", fmt.Sprintf("[%s] %s - %s", action, guestID, message))
}

func (l *Logger) LogCache(action, key, message string) {
	l.Info("CACHE", fmt.Sprintf("[%s] %s - %s", action, key, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.Info("DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) Close() {
	if l.logFile != nil {
		l.Info("LOGGER", "Closing log file")
		l.logFile.Close()
	}
}

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Enabled    bool   // Включено ли логирование
	Level      string // DEBUG, INFO, WARN, ERROR
	LogsDir    string // Директория для логов
	SavingDays uint   // Сколько дней хранить логи
}

// Logger - логгер сервиса поверх logrus: префикс компонента и суточный файл в LogsDir.
type Logger struct {
	config *Config
	base   *logrus.Logger
	file   *os.File
	prefix string
	stop   chan struct{}
	once   *sync.Once
}

func NewLogger(cfg *Config, prefix string) *Logger {
	l := &Logger{
		config: cfg,
		base:   logrus.New(),
		prefix: prefix,
		stop:   make(chan struct{}),
		once:   &sync.Once{},
	}

	var output io.Writer = os.Stdout
	if !cfg.Enabled {
		output = io.Discard
	} else if cfg.LogsDir != "" {
		if err := os.MkdirAll(cfg.LogsDir, 0755); err == nil {
			logFile := filepath.Join(cfg.LogsDir, time.Now().Format("2006-01-02")+".log")
			if file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
				l.file = file
				output = io.MultiWriter(os.Stdout, file)
			}
		}
	}

	l.base.SetOutput(output)
	l.base.SetLevel(parseLevel(cfg.Level))
	l.base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if cfg.Enabled && cfg.SavingDays > 0 && cfg.LogsDir != "" {
		go l.cleanLoop()
	}

	return l
}

func parseLevel(level string) logrus.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logrus.DebugLevel
	case "WARN":
		return logrus.WarnLevel
	case "ERROR":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel // INFO по умолчанию
	}
}

func (l *Logger) WithPrefix(prefix string) *Logger {
	newPrefix := l.prefix
	if newPrefix != "" {
		newPrefix += " "
	}
	newPrefix += "[" + prefix + "]"

	return &Logger{
		config: l.config,
		base:   l.base,
		file:   l.file,
		prefix: newPrefix,
		stop:   l.stop,
		once:   l.once,
	}
}

// Entry возвращает logrus-логгер с префиксом для пакетов ядра.
func (l *Logger) Entry() logrus.FieldLogger {
	return l.base.WithField("prefix", l.prefix)
}

func (l *Logger) cleanLoop() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	l.cleanOldLogs(time.Now())
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			l.cleanOldLogs(now)
		}
	}
}

// cleanOldLogs удаляет файлы логов старше SavingDays относительно now.
func (l *Logger) cleanOldLogs(now time.Time) {
	files, err := os.ReadDir(l.config.LogsDir)
	if err != nil {
		l.Error("Failed to read logs directory", "error", err)
		return
	}

	cutoff := now.AddDate(0, 0, -int(l.config.SavingDays))
	for _, file := range files {
		if info, err := file.Info(); err == nil && !file.IsDir() && info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(l.config.LogsDir, file.Name())); err != nil {
				l.Error("Failed to delete old log file", "file", file.Name(), "error", err)
			}
		}
	}
}

func (l *Logger) log(level logrus.Level, msg string, fields ...interface{}) {
	if !l.base.IsLevelEnabled(level) {
		return
	}

	data := make(logrus.Fields, len(fields)/2+1)
	for i := 0; i < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		var val interface{} = "?"
		if i+1 < len(fields) {
			val = fields[i+1]
		}
		data[key] = val
	}

	entry := l.base.WithFields(data)
	if l.prefix != "" {
		msg = l.prefix + " " + msg
	}
	entry.Log(level, msg)
}

func (l *Logger) ShouldLog(level string) bool {
	return l.config.Enabled && l.base.IsLevelEnabled(parseLevel(level))
}

func (l *Logger) Debug(msg string, fields ...interface{}) { l.log(logrus.DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...interface{})  { l.log(logrus.InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...interface{})  { l.log(logrus.WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...interface{}) { l.log(logrus.ErrorLevel, msg, fields...) }

func (l *Logger) Close() error {
	l.once.Do(func() { close(l.stop) })
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

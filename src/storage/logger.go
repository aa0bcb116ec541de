package storage

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	FATAL
)

// Logger 带订阅通道的文件日志记录器
// 订阅通道供 /logs 实时日志接口使用
type Logger struct {
	filename    string
	file        *os.File
	mu          sync.Mutex
	subscribers []chan string
}

// NewLogger 创建日志记录器，文件不存在时创建
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	return &Logger{
		filename: filename,
		file:     file,
	}, nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Log 写入一条日志并通知所有订阅者
func (l *Logger) Log(level LogLevel, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := fmt.Sprintf("[%s] %s: %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		level.String(),
		message)

	l.file.WriteString(entry)

	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default: // 通道满了就跳过，不阻塞写日志
		}
	}
}

// CheckRotate 日志文件超过maxBytes时轮转
func (l *Logger) CheckRotate(maxBytes int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.file.Stat()
	if err != nil {
		return err
	}

	if maxBytes <= 0 || info.Size() <= maxBytes {
		return nil
	}
	return l.rotate()
}

func (l *Logger) rotate() error {
	if l.file != nil {
		l.file.Close()
		os.Rename(l.filename, fmt.Sprintf("%s.%s", l.filename, time.Now().Format("20060102150405")))
	}

	file, err := os.OpenFile(l.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("轮转后重建日志文件失败: %w", err)
	}
	l.file = file
	return nil
}

// Subscribe 订阅日志消息，返回只读通道
func (l *Logger) Subscribe() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, 100)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// 快捷日志方法
func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) }
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }
func (l *Logger) Fatal(msg string)   { l.Log(FATAL, msg) }

package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
)

// Logger 日志记录器结构体
type Logger struct {
	log         *logrus.Logger
	filename    string        // 日志文件路径，为空时不落盘
	file        *os.File      // 日志文件句柄
	maxSize     int64         // 触发轮转的文件大小
	mu          sync.Mutex    // 保护文件句柄
	subMu       sync.Mutex    // 保护订阅者列表
	subscribers []chan string // 订阅者通道列表
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径
//	level: 日志级别(debug/info/warn/error)
//	maxSize: 轮转阈值表达式，如 "10 * 1024 * 1024"
//
// 返回值:
//
//	*Logger: 日志记录器实例
//	error: 创建过程中的错误
func NewLogger(filename, level, maxSize string) (*Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", level, err)
	}

	// 打开或创建日志文件，权限设置为0644
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := newLogger(file, lvl)
	l.filename = filename
	l.file = file
	l.maxSize = eval(maxSize)
	return l, nil
}

// NewWriterLogger 创建写入任意io.Writer的日志记录器
func NewWriterLogger(w io.Writer, level LogLevel) *Logger {
	return newLogger(w, level.logrus())
}

// NewNopLogger 丢弃所有输出，用于测试
func NewNopLogger() *Logger {
	return newLogger(io.Discard, logrus.PanicLevel)
}

func newLogger(w io.Writer, lvl logrus.Level) *Logger {
	l := &Logger{log: logrus.New()}
	l.log.SetOutput(w)
	l.log.SetLevel(lvl)
	l.log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	l.log.AddHook(&subscriberHook{logger: l})
	return l
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.subMu.Lock()
	for _, ch := range l.subscribers {
		close(ch)
	}
	l.subscribers = nil
	l.subMu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		// 先切走输出，关闭后写入的日志直接丢弃
		l.log.SetOutput(io.Discard)
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Reopen 重新打开一个文件
// 参数：
// filename：新文件的路径
// 返回值：
// error：重建文件时的错误
func (l *Logger) Reopen(filename string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.reopenLocked(filename)
}

// reopenLocked 新文件打开并接管输出后才关闭旧文件
func (l *Logger) reopenLocked(filename string) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	old := l.file
	l.log.SetOutput(file)
	l.file = file
	l.filename = filename

	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Log 记录日志方法
// 参数:
//
//	level: 日志级别
//	message: 日志消息内容
func (l *Logger) Log(level LogLevel, message string) {
	l.log.Log(level.logrus(), message)
}

// WithFields 返回附带结构化字段的日志条目
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.log.WithFields(fields)
}

// CheckRotate 文件超过阈值时进行轮转
// 返回值：是否发生了轮转
func (l *Logger) CheckRotate() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.maxSize <= 0 {
		return false, nil
	}

	info, err := l.file.Stat()
	if err != nil {
		return false, fmt.Errorf("获取日志文件信息失败: %w", err)
	}

	if info.Size() <= l.maxSize {
		return false, nil
	}
	return true, l.rotateLocked()
}

func (l *Logger) rotateLocked() error {
	ext := filepath.Ext(l.filename)
	base := strings.TrimSuffix(l.filename, ext)
	rotated := fmt.Sprintf("%s.%s%s", base, time.Now().Format("20060102150405.000000000"), ext)

	// 改名期间旧句柄仍然可写，内容落入轮转后的文件
	if err := os.Rename(l.filename, rotated); err != nil {
		return fmt.Errorf("日志轮转失败: %w", err)
	}
	return l.reopenLocked(l.filename)
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
func (l *Logger) Subscribe() <-chan string {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	// 创建带缓冲的通道(容量100)
	ch := make(chan string, 100)
	// 将新通道加入订阅者列表
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Subscribers 当前订阅者数量
func (l *Logger) Subscribers() int {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	return len(l.subscribers)
}

// Unsubscribe 取消订阅并关闭通道，Close之后调用无影响
func (l *Logger) Unsubscribe(ch <-chan string) {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	for i, c := range l.subscribers {
		if c == ch {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			close(c)
			return
		}
	}
}

// String 实现LogLevel的String方法
// 返回值:
//
//	string: 日志级别的字符串表示
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
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARNING:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// subscriberHook 把日志条目转发给订阅者
type subscriberHook struct {
	logger *Logger
}

func (h *subscriberHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *subscriberHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	h.logger.subMu.Lock()
	defer h.logger.subMu.Unlock()

	// 通知所有订阅者
	for _, ch := range h.logger.subscribers {
		select {
		case ch <- line: // 尝试发送日志条目
		default: // 如果通道已满则跳过
		}
	}
	return nil
}

// eval 计算 "10 * 1024" 形式的乘法表达式
func eval(expr string) int64 {
	if strings.TrimSpace(expr) == "" {
		return 0
	}
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string)   { l.Log(DEBUG, msg) }   // 记录调试信息
func (l *Logger) Info(msg string)    { l.Log(INFO, msg) }    // 记录普通信息
func (l *Logger) Warning(msg string) { l.Log(WARNING, msg) } // 记录警告信息
func (l *Logger) Error(msg string)   { l.Log(ERROR, msg) }   // 记录错误信息

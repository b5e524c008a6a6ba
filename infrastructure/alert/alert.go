// Package alert 风险告警：对账漂移、不变式违例这类需要人看的事件
// 走这里，按 (级别, 消息) 限流后广播到各通道。
package alert

import (
	"fmt"
	"sync"
	"time"
)

// Level 告警级别
type Level string

const (
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Alert 一条告警。
type Alert struct {
	Level     Level
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Throttler 按 key 限流，同一告警在间隔内只发一次。
type Throttler struct {
	mu       sync.Mutex
	lastSent map[string]time.Time
	interval time.Duration
}

func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow 检查并登记一次发送。
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Clear 清空限流记录。
func (t *Throttler) Clear() {
	t.mu.Lock()
	t.lastSent = make(map[string]time.Time)
	t.mu.Unlock()
}

// Manager 告警管理器。
type Manager struct {
	mu       sync.RWMutex
	channels []Channel
	throttle *Throttler
}

func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// Send 广播一条告警；被限流时静默丢弃。所有通道都失败才算失败。
func (m *Manager) Send(a Alert) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if !m.throttle.Allow(string(a.Level) + ":" + a.Message) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	sent := 0
	for _, ch := range m.channels {
		if err := ch.Send(a); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
		} else {
			sent++
		}
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// Warning 发送 WARNING 级别告警。
func (m *Manager) Warning(message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelWarning, Message: message, Fields: fields})
}

// Error 发送 ERROR 级别告警。
func (m *Manager) Error(message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelError, Message: message, Fields: fields})
}

// Critical 发送 CRITICAL 级别告警。
func (m *Manager) Critical(message string, fields map[string]interface{}) error {
	return m.Send(Alert{Level: LevelCritical, Message: message, Fields: fields})
}

// ResetThrottle 清空限流记录。
func (m *Manager) ResetThrottle() {
	m.throttle.Clear()
}

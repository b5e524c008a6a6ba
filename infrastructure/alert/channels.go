package alert

import (
	"go.uber.org/zap"

	"options-mm-go/infrastructure/logger"
)

// LogChannel 把告警写进结构化日志，级别映射到 zap 的 warn/error。
type LogChannel struct {
	log  *logger.Logger
	name string
}

func NewLogChannel(name string, log *logger.Logger) *LogChannel {
	if log == nil {
		log = logger.Nop()
	}
	return &LogChannel{log: log, name: name}
}

func (c *LogChannel) Send(a Alert) error {
	fields := []zap.Field{
		zap.String("level", string(a.Level)),
		zap.Time("alert_ts", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch a.Level {
	case LevelError, LevelCritical:
		c.log.Error("alert: "+a.Message, fields...)
	default:
		c.log.Warn("alert: "+a.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// MockChannel 收集告警，测试用。
type MockChannel struct {
	name   string
	alerts []Alert
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

func (c *MockChannel) Count() int { return len(c.alerts) }

func (c *MockChannel) Alerts() []Alert { return c.alerts }

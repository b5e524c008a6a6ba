package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Schema 定义每类日志事件必须携带的字段，集中校验避免下游解析踩空。
type Schema struct {
	Event    string
	Required []string
}

var schemas = map[string]Schema{
	"place": {
		Event:    "place",
		Required: []string{"side", "price", "qty"},
	},
	"modify": {
		Event:    "modify",
		Required: []string{"side", "price"},
	},
	"cancel": {
		Event:    "cancel",
		Required: []string{"side"},
	},
	"fill": {
		Event:    "fill",
		Required: []string{"side", "qty", "price"},
	},
	"totals_drift": {
		Event:    "totals_drift",
		Required: []string{"error"},
	},
}

// KnownEvents 返回所有已登记的事件名，便于生成文档。
func KnownEvents() []string {
	names := make([]string, 0, len(schemas))
	for k := range schemas {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ValidateEvent 检查字段是否齐全；未登记的事件不校验。
func ValidateEvent(event string, fields map[string]interface{}) error {
	s, ok := schemas[event]
	if !ok {
		return nil
	}
	var missing []string
	for _, key := range s.Required {
		if _, exists := fields[key]; !exists {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ","))
	}
	return nil
}

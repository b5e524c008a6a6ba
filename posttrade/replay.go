package posttrade

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"
)

// fillLine runner 日志里一条成交事件的字段子集。
type fillLine struct {
	Msg        string  `json:"msg"`
	Event      string  `json:"event"`
	Instrument string  `json:"instrument"`
	Side       string  `json:"side"`
	Qty        float64 `json:"qty"`
	Price      float64 `json:"price"`
	TS         string  `json:"ts"`
}

// Replay 扫描日志流，把 event=fill 的记录喂给 Analyzer。
// 非 JSON 行和解析失败的行直接跳过；since 非零时只统计之后的成交。
// 返回回放的成交条数。
func Replay(r io.Reader, since time.Time, a *Analyzer) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "{")
		if idx == -1 {
			continue
		}
		var fl fillLine
		if err := json.Unmarshal([]byte(line[idx:]), &fl); err != nil {
			continue
		}
		if fl.Msg != "order_event" || fl.Event != "fill" {
			continue
		}
		if !since.IsZero() && fl.TS != "" {
			if ts, err := time.Parse(time.RFC3339Nano, fl.TS); err == nil && ts.Before(since) {
				continue
			}
		}
		a.OnFill(fl.Instrument, fl.Side, fl.Qty, fl.Price)
		count++
	}
	return count, scanner.Err()
}

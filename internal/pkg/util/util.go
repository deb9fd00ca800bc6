package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseID 解析路径中的节点/用户 ID，必须为正整数
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid id %d", id)
	}
	return id, nil
}

// ParseBool 解析查询参数，空串为 false
func ParseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

// UnixToTime Convert unix timestamp to time.Time
func UnixToTime(ts int64) time.Time {
	return time.Unix(ts, 0)
}

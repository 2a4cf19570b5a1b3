package numx

import (
	"math"
	"strconv"
	"strings"
)

// IntOK 把属性值解析为整数，并返回“是否成功解析”。永不 panic。
// 空串与非法值都返回 (0, false)；调用方若需区分二者，应自行判断属性是否存在。
func IntOK(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FloatOK 把属性值解析为浮点数；小数分隔符可以是逗号（"12,34" => 12.34）。
// 缺失或非法时返回 (0, false)。NaN/Inf 视为非法：这些值一旦进入汇总就会污染所有百分比。
func FloatOK(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Percent 计算 part/total*100 并保留两位小数；total<=0 时返回 0。
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

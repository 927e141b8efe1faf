package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money 金额（保留 2 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoney 从 decimal 创建金额
func NewMoney(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.StringFixed(2))
}

func (m *Money) UnmarshalJSON(b []byte) error {
	d, err := parseDecimalJSON(b)
	if err != nil {
		return err
	}
	m.Decimal = d.Round(2)
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// HourMeter 设备工作小时表读数（保留 1 位小数）
type HourMeter struct {
	decimal.Decimal
}

// NewHourMeter 从 decimal 创建读数
func NewHourMeter(v decimal.Decimal) HourMeter {
	return HourMeter{Decimal: v.Round(1)}
}

// ParseHourMeter 解析字符串形式的读数，支持逗号小数点
func ParseHourMeter(s string) (HourMeter, error) {
	d, err := decimal.NewFromString(normalizeDecimalText(s))
	if err != nil {
		return HourMeter{}, err
	}
	return NewHourMeter(d), nil
}

func (h HourMeter) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Decimal.StringFixed(1))
}

func (h *HourMeter) UnmarshalJSON(b []byte) error {
	d, err := parseDecimalJSON(b)
	if err != nil {
		return err
	}
	h.Decimal = d.Round(1)
	return nil
}

func (h HourMeter) Value() (driver.Value, error) {
	return h.Decimal.Round(1).Value()
}

func (h *HourMeter) Scan(value interface{}) error {
	if err := h.Decimal.Scan(value); err != nil {
		return err
	}
	h.Decimal = h.Decimal.Round(1)
	return nil
}

func (h HourMeter) String() string {
	return h.Decimal.StringFixed(1)
}

func parseDecimalJSON(b []byte) (decimal.Decimal, error) {
	if len(b) == 0 || string(b) == "null" {
		return decimal.Zero, nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(normalizeDecimalText(s))
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(f), nil
}

func normalizeDecimalText(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == ',':
			out = append(out, '.')
		case r == ' ':
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

// Package validator 提供基于 go-playground/validator 的结构体校验，并让 decimal 报价参与数值规则。
package validator

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	instance *validator.Validate
	once     sync.Once
)

// Default 返回进程内共享的校验器，validator.Validate 本身并发安全且会缓存结构体元信息。
func Default() *validator.Validate {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New 创建一个新的校验器，decimal.Decimal 字段以 float64 参与 gt/gte/lt/lte 等规则。
func New() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	return v
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return nil
}

// Struct 使用共享校验器校验结构体。
func Struct(s any) error {
	return Default().Struct(s)
}

// IsPositive 判断数字是否为正数。
func IsPositive(num float64) bool {
	return num > 0
}

// IsStrictlyIncreasing 判断序列是否严格递增。
func IsStrictlyIncreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}

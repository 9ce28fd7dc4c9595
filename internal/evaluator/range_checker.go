package evaluator

import (
	"math"

	"incubator-monitor/internal/models"
)

// CheckNormalRanges 把参数值与固定临床正常范围表逐一比较
// 输入中缺失的参数直接跳过；返回的 Desviacion 是到较近边界的距离
func CheckNormalRanges(values map[string]float64) []models.Violation {
	violations := []models.Violation{}

	for parametro, rango := range models.RangosNormales {
		valor, ok := values[parametro]
		if !ok {
			continue
		}
		if valor < rango.Min || valor > rango.Max {
			violations = append(violations, models.Violation{
				Parametro:  parametro,
				Valor:      valor,
				RangoMin:   rango.Min,
				RangoMax:   rango.Max,
				Desviacion: math.Min(math.Abs(valor-rango.Min), math.Abs(valor-rango.Max)),
			})
		}
	}

	return violations
}

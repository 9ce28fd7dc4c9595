package evaluator

import (
	"incubator-monitor/internal/models"
)

// 决策阶梯阈值（判定函数值，越负越异常）
const (
	scoreAlto  = -0.10
	scoreMedio = -0.05
	scoreBajo  = -0.02
)

// criticalParams 生命攸关参数集：这三项的规则违规 + ML 离群
// 必须压过单纯的统计异常
var criticalParams = map[string]bool{
	"temperatura":          true,
	"temperatura_corporal": true,
	"oxigeno":              true,
	"saturacion_oxigeno":   true,
	"frecuencia_cardiaca":  true,
}

// ResolveAlertLevel 把打分结果与违规列表融合为单一级别
// 按固定优先级评估，是其三个输入的纯函数：
//  1. 生命攸关参数违规 且 离群           → CRITICO
//  2. 离群 且 score < -0.10              → ALTO
//  3. 有违规，或（离群 且 score < -0.05）→ MEDIO
//  4. score < -0.02                      → BAJO
//  5. 其余                               → NORMAL
func ResolveAlertLevel(isOutlier bool, score float64, rangeViolations []models.Violation, umbralViolations []models.UmbralViolation) models.NivelAlerta {
	hasViolations := len(rangeViolations) > 0 || len(umbralViolations) > 0

	critical := false
	for _, v := range rangeViolations {
		if criticalParams[v.Parametro] {
			critical = true
			break
		}
	}
	if !critical {
		for _, v := range umbralViolations {
			if criticalParams[v.Parametro] {
				critical = true
				break
			}
		}
	}

	switch {
	case critical && isOutlier:
		return models.NivelCritico
	case isOutlier && score < scoreAlto:
		return models.NivelAlto
	case hasViolations || (isOutlier && score < scoreMedio):
		return models.NivelMedio
	case score < scoreBajo:
		return models.NivelBajo
	default:
		return models.NivelNormal
	}
}

package evaluator

import (
	"incubator-monitor/internal/models"
)

// CheckUmbrales 逐条评估病人的激活阈值
// 先查临界边界（tipo <parametro>_critico, severidad critica），临界未触发
// 再查普通边界（tipo <parametro>_fuera_rango, severidad media）。
// 同一参数存在多条激活阈值时全部评估，允许产生重复违规
func CheckUmbrales(umbrales []*models.UmbralPaciente, values map[string]float64) []models.UmbralViolation {
	violations := []models.UmbralViolation{}

	for _, u := range umbrales {
		if u == nil || !u.Activo {
			continue
		}
		valor, ok := values[u.Parametro]
		if !ok {
			continue
		}

		if breached, umbral := criticalBreach(u, valor); breached {
			violations = append(violations, models.UmbralViolation{
				Parametro:  u.Parametro,
				Valor:      valor,
				Umbral:     umbral,
				Categoria:  models.UmbralCritico,
				TipoAlerta: u.Parametro + "_critico",
				Severidad:  models.SeveridadCritica,
			})
			continue
		}

		if breached, umbral := softBreach(u, valor); breached {
			violations = append(violations, models.UmbralViolation{
				Parametro:  u.Parametro,
				Valor:      valor,
				Umbral:     umbral,
				Categoria:  models.UmbralFueraRango,
				TipoAlerta: u.Parametro + "_fuera_rango",
				Severidad:  models.SeveridadMedia,
			})
		}
	}

	return violations
}

// criticalBreach 返回是否越过临界边界及被越过的边界值
func criticalBreach(u *models.UmbralPaciente, valor float64) (bool, float64) {
	if u.ValorCriticoMin != nil && valor < *u.ValorCriticoMin {
		return true, *u.ValorCriticoMin
	}
	if u.ValorCriticoMax != nil && valor > *u.ValorCriticoMax {
		return true, *u.ValorCriticoMax
	}
	return false, 0
}

// softBreach 返回是否越过普通边界及被越过的边界值
func softBreach(u *models.UmbralPaciente, valor float64) (bool, float64) {
	if u.ValorMin != nil && valor < *u.ValorMin {
		return true, *u.ValorMin
	}
	if u.ValorMax != nil && valor > *u.ValorMax {
		return true, *u.ValorMax
	}
	return false, 0
}

package evaluator

import (
	"testing"

	"incubator-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckNormalRanges_AllNormal(t *testing.T) {
	values := map[string]float64{
		"temperatura":                 36.8,
		"humedad":                     55,
		"oxigeno":                     97,
		"frecuencia_cardiaca":         140,
		"frecuencia_respiratoria":     45,
		"presion_arterial_sistolica":  70,
		"presion_arterial_diastolica": 38,
	}

	violations := CheckNormalRanges(values)
	assert.Empty(t, violations)
}

func TestCheckNormalRanges_SingleViolation(t *testing.T) {
	values := map[string]float64{
		"temperatura": 38.0, // rango 36.0–37.5
	}

	violations := CheckNormalRanges(values)
	require.Len(t, violations, 1)

	v := violations[0]
	assert.Equal(t, "temperatura", v.Parametro)
	assert.Equal(t, 38.0, v.Valor)
	assert.Equal(t, 36.0, v.RangoMin)
	assert.Equal(t, 37.5, v.RangoMax)
	assert.InDelta(t, 0.5, v.Desviacion, 1e-9) // 到较近边界 37.5
}

func TestCheckNormalRanges_BelowMinimum(t *testing.T) {
	values := map[string]float64{
		"frecuencia_cardiaca": 80, // rango 100–180
	}

	violations := CheckNormalRanges(values)
	require.Len(t, violations, 1)
	assert.InDelta(t, 20.0, violations[0].Desviacion, 1e-9)
}

func TestCheckNormalRanges_BoundaryIsNormal(t *testing.T) {
	values := map[string]float64{
		"temperatura": 37.5,
		"humedad":     40.0,
	}

	assert.Empty(t, CheckNormalRanges(values))
}

func TestCheckNormalRanges_AbsentParametersSkipped(t *testing.T) {
	assert.Empty(t, CheckNormalRanges(map[string]float64{}))
	assert.Empty(t, CheckNormalRanges(map[string]float64{"peso_actual": 99999}))
}

func TestCheckNormalRanges_MultipleViolations(t *testing.T) {
	values := map[string]float64{
		"temperatura": 35.0,
		"oxigeno":     15.0,
		"humedad":     55.0,
	}

	violations := CheckNormalRanges(values)
	assert.Len(t, violations, 2)

	params := map[string]bool{}
	for _, v := range violations {
		params[v.Parametro] = true
	}
	assert.True(t, params["temperatura"])
	assert.True(t, params["oxigeno"])
}

func TestRangosNormales_CoversSevenParameters(t *testing.T) {
	assert.Len(t, models.RangosNormales, 7)
}

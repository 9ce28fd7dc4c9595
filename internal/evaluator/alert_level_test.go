package evaluator

import (
	"testing"

	"incubator-monitor/internal/models"

	"github.com/stretchr/testify/assert"
)

func rangeViolation(parametro string) []models.Violation {
	return []models.Violation{{Parametro: parametro, Valor: 1, RangoMin: 0, RangoMax: 0.5}}
}

func umbralViolation(parametro string) []models.UmbralViolation {
	return []models.UmbralViolation{{
		Parametro: parametro,
		Categoria: models.UmbralFueraRango,
		Severidad: models.SeveridadMedia,
	}}
}

func TestResolveAlertLevel(t *testing.T) {
	cases := []struct {
		name       string
		isOutlier  bool
		score      float64
		rangeViols []models.Violation
		umbrViols  []models.UmbralViolation
		expected   models.NivelAlerta
	}{
		{
			name:     "clean reading",
			score:    0.04,
			expected: models.NivelNormal,
		},
		{
			name:       "critical param violation with outlier",
			isOutlier:  true,
			score:      -0.03,
			rangeViols: rangeViolation("temperatura"),
			expected:   models.NivelCritico,
		},
		{
			name:      "critical umbral violation with outlier",
			isOutlier: true,
			score:     -0.01,
			umbrViols: umbralViolation("saturacion_oxigeno"),
			expected:  models.NivelCritico,
		},
		{
			name:       "critical param violation without outlier stays medio",
			rangeViols: rangeViolation("frecuencia_cardiaca"),
			score:      0.01,
			expected:   models.NivelMedio,
		},
		{
			name:      "strong outlier without violations",
			isOutlier: true,
			score:     -0.15,
			expected:  models.NivelAlto,
		},
		{
			name:       "non-critical violation with strong outlier",
			isOutlier:  true,
			score:      -0.15,
			rangeViols: rangeViolation("presion_arterial_sistolica"),
			expected:   models.NivelAlto,
		},
		{
			name:      "moderate outlier without violations",
			isOutlier: true,
			score:     -0.07,
			expected:  models.NivelMedio,
		},
		{
			name:       "non-critical violation alone",
			rangeViols: rangeViolation("presion_arterial_diastolica"),
			score:      0.02,
			expected:   models.NivelMedio,
		},
		{
			name:     "slightly negative score without outlier flag",
			score:    -0.03,
			expected: models.NivelBajo,
		},
		{
			name:      "weak outlier above bajo threshold",
			isOutlier: true,
			score:     -0.01,
			expected:  models.NivelNormal,
		},
		{
			name:      "outlier exactly at alto threshold falls to medio",
			isOutlier: true,
			score:     -0.10,
			expected:  models.NivelMedio,
		},
		{
			name:     "score exactly at bajo threshold stays normal",
			score:    -0.02,
			expected: models.NivelNormal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			nivel := ResolveAlertLevel(tc.isOutlier, tc.score, tc.rangeViols, tc.umbrViols)
			assert.Equal(t, tc.expected, nivel)
		})
	}
}

func TestNivelAlerta_Ordering(t *testing.T) {
	assert.True(t, models.NivelNormal < models.NivelBajo)
	assert.True(t, models.NivelBajo < models.NivelMedio)
	assert.True(t, models.NivelMedio < models.NivelAlto)
	assert.True(t, models.NivelAlto < models.NivelCritico)
}

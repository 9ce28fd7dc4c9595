package anomaly

import (
	"errors"
	"testing"

	"incubator-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func completeReading() *models.SensorReading {
	return &models.SensorReading{
		ID:                     "reading-1",
		IncubadoraID:           "inc-1",
		TemperaturaCorporal:    f64(36.8),
		FrecuenciaCardiaca:     f64(140),
		FrecuenciaRespiratoria: f64(45),
		SaturacionOxigeno:      f64(97),
		PresionSistolica:       f64(70),
		PresionDiastolica:      f64(38),
		HumedadIncubadora:      f64(55),
		CalidadDatos:           1.0,
	}
}

func TestDeriveFeatures_Complete(t *testing.T) {
	features, err := DeriveFeatures(completeReading())
	require.NoError(t, err)
	require.Len(t, features, len(FeatureNames))
	require.Len(t, features, 11)

	assert.Equal(t, 36.8, features[0])  // temperatura
	assert.Equal(t, 55.0, features[1])  // humedad
	assert.Equal(t, 97.0, features[2])  // oxigeno
	assert.Equal(t, 140.0, features[3]) // frecuencia_cardiaca
	assert.Equal(t, 45.0, features[4])  // frecuencia_respiratoria
	assert.Equal(t, 70.0, features[5])  // presion sistolica
	assert.Equal(t, 38.0, features[6])  // presion diastolica

	assert.InDelta(t, 0.05, features[7], 1e-9) // |36.8 - 36.75|
	assert.InDelta(t, 0.0, features[8], 1e-9)  // |55 - 55|
	assert.InDelta(t, 140.0/45.0, features[9], 1e-9)
	assert.InDelta(t, 32.0, features[10], 1e-9) // 70 - 38
}

func TestDeriveFeatures_MissingCoreParameter(t *testing.T) {
	reading := completeReading()
	reading.SaturacionOxigeno = nil

	features, err := DeriveFeatures(reading)
	assert.Nil(t, features)
	assert.ErrorIs(t, err, models.ErrInvalidReading)
}

func TestDeriveFeatures_ZeroRespiratoryRate(t *testing.T) {
	reading := completeReading()
	reading.FrecuenciaRespiratoria = f64(0)

	features, err := DeriveFeatures(reading)
	assert.Nil(t, features)
	require.True(t, errors.Is(err, models.ErrInvalidReading))
	assert.Contains(t, err.Error(), "frecuencia_respiratoria")
}

func TestStandardScaler_FitTransform(t *testing.T) {
	matrix := [][]float64{
		{1, 10, 5},
		{3, 10, 7},
	}

	scaler := &StandardScaler{}
	require.NoError(t, scaler.Fit(matrix))
	require.True(t, scaler.Fitted())

	assert.Equal(t, []float64{2, 10, 6}, scaler.Mean)
	// 第二列方差为 0，scale 记为 1
	assert.Equal(t, 1.0, scaler.Scale[1])

	out, err := scaler.Transform([]float64{2, 10, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, out)

	out, err = scaler.Transform([]float64{3, 11, 7})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, out[0], 1e-9)
	assert.InDelta(t, 1.0, out[1], 1e-9)
	assert.InDelta(t, 1.0, out[2], 1e-9)
}

func TestStandardScaler_DimensionMismatch(t *testing.T) {
	scaler := &StandardScaler{}
	require.NoError(t, scaler.Fit([][]float64{{1, 2}, {3, 4}}))

	_, err := scaler.Transform([]float64{1})
	assert.Error(t, err)
}

func TestStandardScaler_Unfitted(t *testing.T) {
	scaler := &StandardScaler{}
	_, err := scaler.Transform([]float64{1})
	assert.Error(t, err)
}

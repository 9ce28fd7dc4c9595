package models

// RangoNormal 群体级临床正常范围（区别于病人个性化阈值）
type RangoNormal struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RangosNormales 7 个核心参数的固定临床正常范围表
var RangosNormales = map[string]RangoNormal{
	"temperatura":                 {36.0, 37.5},  // °C
	"humedad":                     {40.0, 70.0},  // %
	"oxigeno":                     {21.0, 100.0}, // %
	"frecuencia_cardiaca":         {100, 180},    // bpm
	"frecuencia_respiratoria":     {30, 60},      // rpm
	"presion_arterial_sistolica":  {50, 90},      // mmHg
	"presion_arterial_diastolica": {25, 50},      // mmHg
}

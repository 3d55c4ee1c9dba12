package model

// Statistics is the aggregate payload of GET /estadisticas.
type Statistics struct {
	URLsAnalyzedThisWeek int     `json:"urlsAnalizadasEstaSemana"`
	WeekChangePercent    float64 `json:"porcentajeCambioSemana"`
	TotalAnalyses        int     `json:"totalAnalisis"`
	MonthChangePercent   float64 `json:"porcentajeCambioMes"`
	RegisteredUsers      int     `json:"usuariosRegistrados"`

	GlobalDistribution struct {
		TotalPhishing     int     `json:"totalPhishing"`
		TotalLegitimate   int     `json:"totalLegitimas"`
		PhishingPercent   float64 `json:"porcentajePhishing"`
		LegitimatePercent float64 `json:"porcentajeLegitimas"`
	} `json:"distribucionGlobal"`

	TopPhishingApplications []ApplicationCount `json:"topAplicacionesPhishing"`
}

// ApplicationCount ranks an application label by phishing volume.
type ApplicationCount struct {
	Application string  `json:"aplicacion"`
	Count       int     `json:"cantidad"`
	Percent     float64 `json:"porcentaje"`
}

package weather

// Current is a point-in-time weather snapshot for a location
type Current struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windSpeed"`
	Precipitation float64 `json:"precipitation"`
	SoilMoisture  float64 `json:"soilMoisture"`
}

// Day is one day of forecast data
type Day struct {
	Date          string  `json:"date"` // calendar date, YYYY-MM-DD
	TempMin       float64 `json:"temperatureMin"`
	TempMax       float64 `json:"temperatureMax"`
	Precipitation float64 `json:"precipitation"`
	SoilMoisture  float64 `json:"soilMoisture"`
	WeatherCode   int     `json:"weatherCode"`
}

// forecastResponse is the provider's forecast payload
type forecastResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		Precipitation float64 `json:"precipitation"`
	} `json:"current"`
	Daily struct {
		Time          []string  `json:"time"`
		TempMin       []float64 `json:"temperature_2m_min"`
		TempMax       []float64 `json:"temperature_2m_max"`
		Precipitation []float64 `json:"precipitation_sum"`
		WeatherCode   []int     `json:"weather_code"`
	} `json:"daily"`
	Hourly struct {
		Time         []string  `json:"time"`
		SoilMoisture []float64 `json:"soil_moisture_3_to_9cm"`
	} `json:"hourly"`
}

package weather

// PointLookup is the api.weather.gov /points document. Only the fields the
// forecast chain needs are decoded.
type PointLookup struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Properties PointProperties `json:"properties"`
}

type PointProperties struct {
	ID       string `json:"@id"`
	Type     string `json:"@type"`
	Forecast string `json:"forecast"`
}

// Forecast is the api.weather.gov forecast document
type Forecast struct {
	Properties ForecastProperties `json:"properties"`
}

type ForecastProperties struct {
	Periods []Period `json:"periods"`
}

// Period is one forecast interval
type Period struct {
	Name             string          `json:"name"`
	Temperature      int             `json:"temperature"`
	TemperatureUnit  TemperatureUnit `json:"temperatureUnit"`
	TemperatureTrend string          `json:"temperatureTrend"`
	Icon             string          `json:"icon"`
	ShortForecast    ShortForecast   `json:"shortForecast"`
}

// TemperatureUnit is "F" or "C"
type TemperatureUnit string

const (
	Fahrenheit TemperatureUnit = "F"
	Celsius    TemperatureUnit = "C"
)

// ShortForecast is the one-line summary of a period. The service returns
// free text; the constants below are the values widgets have icons for.
type ShortForecast string

const (
	MostlyClear  ShortForecast = "Mostly Clear"
	Sunny        ShortForecast = "Sunny"
	PartlyCloudy ShortForecast = "Partly Cloudy"
	MostlySunny  ShortForecast = "Mostly Sunny"
)

// Known reports whether s is one of the named summaries
func (s ShortForecast) Known() bool {
	switch s {
	case MostlyClear, Sunny, PartlyCloudy, MostlySunny:
		return true
	default:
		return false
	}
}

package weather

import "math"

// Category is a coarse condition bucket used by the rendering layer to pick
// backdrops and glyphs.
type Category string

const (
	CategorySunny      Category = "sunny"
	CategoryClearNight Category = "clear-night"
	CategoryCloudy     Category = "cloudy"
	CategoryRain       Category = "rain"
	CategorySnow       Category = "snow"
	CategoryThunder    Category = "thunder"
	CategoryFog        Category = "fog"
)

// CodeDescription returns a human-readable label for a WMO present-weather
// code.
func CodeDescription(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code >= 1 && code <= 3:
		return "Partly cloudy"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 55:
		return "Drizzle"
	case code == 56 || code == 57:
		return "Freezing drizzle"
	case code >= 61 && code <= 65:
		return "Rain"
	case code == 66 || code == 67:
		return "Freezing rain"
	case code >= 71 && code <= 75:
		return "Snow"
	case code == 77:
		return "Snow grains"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code == 95:
		return "Thunderstorm"
	case code == 96 || code == 99:
		return "Thunderstorm w/ hail"
	default:
		return "Unknown"
	}
}

// CategoryForCode maps a WMO code and day flag onto a rendering category.
// Unrecognized codes fall back to cloudy.
func CategoryForCode(code int, isDay *int) Category {
	switch {
	case code == 0:
		if isDay != nil && *isDay == 0 {
			return CategoryClearNight
		}
		return CategorySunny
	case code >= 1 && code <= 3:
		return CategoryCloudy
	case code == 45 || code == 48:
		return CategoryFog
	case (code >= 51 && code <= 55) || (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return CategoryRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return CategorySnow
	case code == 95 || code == 96 || code == 99:
		return CategoryThunder
	default:
		return CategoryCloudy
	}
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// WindDirectionText converts wind direction degrees to a 16-point compass
// label. A nil direction yields an empty string.
func WindDirectionText(degrees *float64) string {
	if degrees == nil {
		return ""
	}
	idx := int(math.Round(*degrees/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

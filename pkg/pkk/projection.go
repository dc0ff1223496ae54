package pkk

import "math"

const earthRadius = 6378137.0

// toWGS84 converts a PKK x/y pair to lat/lng. PKK answers in EPSG:3857
// meters; pairs already inside the degree range are passed through.
func toWGS84(x, y float64) (lat, lng float64) {
	if math.Abs(x) <= 180 && math.Abs(y) <= 90 {
		return y, x
	}
	lng = x / earthRadius * 180 / math.Pi
	lat = (2*math.Atan(math.Exp(y/earthRadius)) - math.Pi/2) * 180 / math.Pi
	return lat, lng
}

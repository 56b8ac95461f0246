package tracking

import "math/rand"

type demoCity struct {
	Name string
	Lat  float64
	Lng  float64
}

var demoCities = []demoCity{
	{"New York", 40.7128, -74.0060},
	{"London", 51.5074, -0.1278},
	{"Tokyo", 35.6762, 139.6503},
	{"Paris", 48.8566, 2.3522},
	{"Dubai", 25.2048, 55.2708},
	{"Singapore", 1.3521, 103.8198},
	{"Sydney", -33.8688, 151.2093},
	{"Toronto", 43.6532, -79.3832},
}

// DemoPoint fabricates a plausible sample near a random major city. It is a
// development stand-in for a real client-side geolocation capture and is
// only reachable when demo mode is enabled.
func DemoPoint() (LocationUpdate, string) {
	city := demoCities[rand.Intn(len(demoCities))]
	accuracy := 10 + rand.Float64()*40
	return LocationUpdate{
		Latitude:  city.Lat + (rand.Float64()-0.5)*0.01,
		Longitude: city.Lng + (rand.Float64()-0.5)*0.01,
		Accuracy:  &accuracy,
	}, city.Name
}

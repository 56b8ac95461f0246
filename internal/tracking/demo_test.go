package tracking

import "testing"

func TestDemoPointWithinBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		point, city := DemoPoint()
		if city == "" {
			t.Fatalf("expected city name")
		}
		if point.Latitude < -90 || point.Latitude > 90 {
			t.Fatalf("latitude out of range: %v", point.Latitude)
		}
		if point.Longitude < -180 || point.Longitude > 180 {
			t.Fatalf("longitude out of range: %v", point.Longitude)
		}
		if point.Accuracy == nil || *point.Accuracy < 10 || *point.Accuracy > 50 {
			t.Fatalf("unexpected accuracy")
		}
		if err := validateCoordinates(point.Latitude, point.Longitude, point.Accuracy); err != nil {
			t.Fatalf("demo point must validate: %v", err)
		}
	}
}

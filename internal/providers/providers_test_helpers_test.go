package providers

import (
	"testing"

	"github.com/jarcoal/httpmock"
)

const testMapsEndpoint = "https://maps.test"

func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func nearbyHospitalsResponse() string {
	return `{
  "results": [
    {"poi": {"name": "Bellevue Hospital"}, "dist": 2100.5, "address": {"freeformAddress": "462 1st Ave, New York, NY"}},
    {"poi": {"name": "NYU Langone"}, "dist": 950.2, "address": {"freeformAddress": "550 1st Ave, New York, NY"}},
    {"dist": 300},
    {"poi": {"name": "No Distance Clinic"}}
  ]
}`
}

func reverseGeocodeResponse() string {
	return `{"addresses": [{"address": {"freeformAddress": "City Hall Park, New York, NY 10007"}}]}`
}

func visionSuccessResponse() string {
	return `{
  "description": {"captions": [{"text": "a person standing on a city street", "confidence": 0.87}]},
  "objects": [{"object": "person", "confidence": 0.92, "rectangle": {"x": 10, "y": 20, "w": 100, "h": 200}}],
  "tags": [{"name": "street", "confidence": 0.99}, {"name": "night", "confidence": 0.75}],
  "adult": {"isAdultContent": false, "isRacyContent": false},
  "categories": [
    {"name": "outdoor_street"},
    {"name": "building_", "detail": {"landmarks": [{"name": "Brooklyn Bridge", "confidence": 0.66}]}}
  ]
}`
}

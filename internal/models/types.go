package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Enrichment values are stored as JSON text columns so that each one can be
// written with a single column update.

type Location struct {
	Lat float64 `json:"lat" binding:"min=-90,max=90"`
	Lng float64 `json:"lng" binding:"min=-180,max=180"`
}

func (l Location) Value() (driver.Value, error) { return jsonValue(l) }
func (l *Location) Scan(src any) error          { return jsonScan(l, src) }

type Rectangle struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type Detection struct {
	Name       string     `json:"name"`
	Confidence float64    `json:"confidence"`
	Rectangle  *Rectangle `json:"rectangle,omitempty"`
}

// ImageAnalysis is either a scene analysis or, when Error is set, a failure
// marker that serializes as {"error": "..."}.
type ImageAnalysis struct {
	Description    string      `json:"description"`
	Confidence     float64     `json:"confidence"`
	Objects        []Detection `json:"objects"`
	Tags           []Detection `json:"tags"`
	IsAdultContent bool        `json:"isAdultContent"`
	IsRacyContent  bool        `json:"isRacyContent"`
	Landmarks      []Detection `json:"landmarks"`
	Error          string      `json:"error,omitempty"`
}

func (a *ImageAnalysis) Failed() bool { return a != nil && a.Error != "" }

func (a ImageAnalysis) MarshalJSON() ([]byte, error) {
	if a.Error != "" {
		return json.Marshal(errorMarker{Error: a.Error})
	}
	type plain ImageAnalysis
	return json.Marshal(plain(a))
}

func (a ImageAnalysis) Value() (driver.Value, error) { return jsonValue(a) }
func (a *ImageAnalysis) Scan(src any) error          { return jsonScan(a, src) }

type Place struct {
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
	Address  string  `json:"address"`
}

// SafetyData follows the same success-or-marker shape as ImageAnalysis.
type SafetyData struct {
	CurrentAddress       string  `json:"currentAddress"`
	NearbyHospitals      []Place `json:"nearbyHospitals"`
	NearbyPoliceStations []Place `json:"nearbyPoliceStations"`
	Error                string  `json:"error,omitempty"`
}

func (s *SafetyData) Failed() bool { return s != nil && s.Error != "" }

func (s SafetyData) MarshalJSON() ([]byte, error) {
	if s.Error != "" {
		return json.Marshal(errorMarker{Error: s.Error})
	}
	type plain SafetyData
	return json.Marshal(plain(s))
}

func (s SafetyData) Value() (driver.Value, error) { return jsonValue(s) }
func (s *SafetyData) Scan(src any) error          { return jsonScan(s, src) }

type NotificationResult struct {
	Success          bool                 `json:"success"`
	ContactsNotified int                  `json:"contactsNotified"`
	EmailsSent       int                  `json:"emailsSent"`
	Notifications    []NotificationRecord `json:"notifications"`
	Message          string               `json:"message,omitempty"`
	Error            string               `json:"error,omitempty"`
}

func (r NotificationResult) Value() (driver.Value, error) { return jsonValue(r) }
func (r *NotificationResult) Scan(src any) error          { return jsonScan(r, src) }

type ClientDevice struct {
	Platform string `json:"platform,omitempty"`
	OS       string `json:"os,omitempty"`
	Browser  string `json:"browser,omitempty"`
	Mobile   bool   `json:"mobile"`
}

func (d ClientDevice) Value() (driver.Value, error) { return jsonValue(d) }
func (d *ClientDevice) Scan(src any) error          { return jsonScan(d, src) }

type errorMarker struct {
	Error string `json:"error"`
}

func jsonValue(v any) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func jsonScan(dst any, src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("models: cannot scan %T into %T", src, dst)
	}
}

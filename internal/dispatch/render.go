package dispatch

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"GuardianPath/internal/models"

	"github.com/k3a/html2text"
)

var alertTemplate = template.Must(template.New("alert").Funcs(template.FuncMap{
	"km":    func(meters float64) string { return fmt.Sprintf("%.1fkm", meters/1000) },
	"coord": func(v float64) string { return fmt.Sprintf("%.6f", v) },
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v*100) },
}).Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>EMERGENCY ALERT - GuardianPath</title></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<h1 style="color: #dc2626;">EMERGENCY ALERT</h1>
<p><strong>{{.UserName}}</strong> ({{.UserEmail}}) has activated their emergency panic button.</p>
<p><strong>This is NOT a test. Please take immediate action.</strong></p>

<h3>Emergency Details</h3>
<p>Alert ID: {{.PanicID}}</p>
<p>Time: {{.Time}}</p>
<p>Person: {{.UserName}} ({{.UserEmail}})</p>

<h3>Location Information</h3>
{{- if .Location}}
<p>Address: {{.Address}}</p>
<p>Coordinates: {{coord .Location.Lat}}, {{coord .Location.Lng}}</p>
<p>Map: <a href="{{.MapURL}}">{{.MapURL}}</a></p>
{{- else}}
<p>Location information not available</p>
{{- end}}

{{- with .Scene}}
<h3>Scene Analysis</h3>
<p>Description: {{.Description}}</p>
<p>Confidence: {{pct .Confidence}}</p>
{{- end}}

{{- if or .Hospitals .Police}}
<h3>Nearby Emergency Services</h3>
{{- if .Hospitals}}
<h4>Hospitals:</h4>
<ul>
{{- range .Hospitals}}
<li><strong>{{.Name}}</strong> - {{km .Distance}} away, {{.Address}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .Police}}
<h4>Police Stations:</h4>
<ul>
{{- range .Police}}
<li><strong>{{.Name}}</strong> - {{km .Distance}} away, {{.Address}}</li>
{{- end}}
</ul>
{{- end}}
{{- end}}

<h3>Recommended Actions</h3>
<ol>
<li>Call emergency services (911/112) if needed</li>
<li>Contact the person immediately via phone or text</li>
<li>Check their location using the map link above</li>
<li>Consider going to help if you are nearby and it is safe</li>
<li>Stay in contact until the situation is resolved</li>
</ol>

<p style="font-size: 12px; color: #666;">This alert was generated automatically by GuardianPath. Alert ID: {{.PanicID}}</p>
</body>
</html>
`))

type alertView struct {
	PanicID   string
	UserName  string
	UserEmail string
	Time      string
	Location  *models.Location
	Address   string
	MapURL    string
	Scene     *models.ImageAnalysis
	Hospitals []models.Place
	Police    []models.Place
}

func newAlertView(p AlertPayload) alertView {
	v := alertView{
		PanicID:   p.PanicID,
		UserName:  displayName(p.User),
		UserEmail: p.User.Email,
		Time:      formatTimestamp(p.Timestamp),
		Location:  p.Location,
	}
	if p.Location != nil {
		v.MapURL = MapURL(*p.Location)
		v.Address = fmt.Sprintf("%.6f, %.6f", p.Location.Lat, p.Location.Lng)
	}
	// failure markers render as if the enrichment never ran
	if p.SafetyData != nil && !p.SafetyData.Failed() {
		if p.SafetyData.CurrentAddress != "" {
			v.Address = p.SafetyData.CurrentAddress
		}
		v.Hospitals = top3(p.SafetyData.NearbyHospitals)
		v.Police = top3(p.SafetyData.NearbyPoliceStations)
	}
	if p.ImageAnalysis != nil && !p.ImageAnalysis.Failed() && p.ImageAnalysis.Description != "" {
		v.Scene = p.ImageAnalysis
	}
	return v
}

// Render returns the HTML body and the plain text derived from it.
func Render(p AlertPayload) (html string, text string, err error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, newAlertView(p)); err != nil {
		return "", "", err
	}
	html = buf.String()
	text = html2text.HTML2TextWithOptions(html, html2text.WithUnixLineBreaks())
	return html, text, nil
}

func Subject(p AlertPayload, now time.Time) string {
	return fmt.Sprintf("EMERGENCY ALERT: %s needs help - %s", displayName(p.User), now.Format("3:04:05 PM"))
}

func MapURL(loc models.Location) string {
	return fmt.Sprintf("https://maps.google.com/maps?q=%v,%v", loc.Lat, loc.Lng)
}

func displayName(u AlertUser) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Email != "":
		return u.Email
	}
	return "A GuardianPath user"
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		if ts == "" {
			return "Unknown"
		}
		return ts
	}
	return t.UTC().Format("Jan 2, 2006 3:04 PM MST")
}

func top3(places []models.Place) []models.Place {
	if len(places) > 3 {
		return places[:3]
	}
	return places
}

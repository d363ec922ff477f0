package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/access-logger/internal/access"
	"github.com/sweeney/access-logger/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	// swatch scales the dim LED colour up to something visible on a screen.
	"swatch": func(t access.Tier) template.CSS {
		c := t.Colour()
		return template.CSS(fmt.Sprintf("rgb(%d,%d,%d)", int(c.R)*25, int(c.G)*25, int(c.B)*25))
	},
	"tierOrNone": func(t access.Tier) access.Tier {
		if t == "" {
			return access.TierNone
		}
		return t
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Access Logger</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.tier { display: inline-block; width: 1em; height: 1em; vertical-align: middle; margin-right: 6px; border: 1px solid #444; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Access Logger</h1>

<h2>Access</h2>
<table>
<tr><th>State</th><td id="state">{{if .Active}}ACTIVE{{else}}IDLE{{end}}</td></tr>
<tr><th>Elapsed</th><td id="elapsed">{{.Elapsed}}s</td></tr>
<tr><th>Tier</th><td id="tier"><span class="tier" style="background: {{swatch .Tier}}"></span>{{tierOrNone .Tier}}</td></tr>
{{if .HasReading}}<tr><th>Temperature</th><td>{{printf "%.2f" .LastReading.Temperature}} &deg;C</td></tr>
<tr><th>Humidity</th><td>{{printf "%.2f" .LastReading.Humidity}} %</td></tr>
<tr><th>Read at</th><td>{{.LastReadingAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
</table>

<h2>Log</h2>
<table>
<tr><th>Path</th><td>{{.Config.LogPath}}</td></tr>
<tr><th>Format</th><td>{{.Config.LogFormat}}</td></tr>
<tr><th>Lines</th><td>{{.LinesWritten}}</td></tr>
<tr><th>Accesses</th><td>{{.Counts.Started}} started, {{.Counts.Stopped}} stopped</td></tr>
<tr><th>Readings</th><td>{{.Counts.Readings}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sensor</th><td>{{.Config.Sensor}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/periods.json">Periods</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

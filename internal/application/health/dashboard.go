package health

import (
	"bytes"
	"html/template"
	"sort"
)

type dashboardDep struct {
	Name   string
	Status string
	PingMs interface{}
	OK     bool
}

type dashboardView struct {
	Headline string
	Healthy  bool
	Result   CollectResult
	Deps     []dashboardDep
	Last     map[string]interface{}
}

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"ms": func(v interface{}) interface{} {
		if p, ok := v.(*int64); ok && p != nil {
			return *p
		}
		return "--"
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>SaveMyFoods · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --green: #2f7d4f; --dark: #1f2d24; --bg: #f7f8f5; --muted: #64748b; --red: #dc2626; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; display: flex; justify-content: center; }
    .container { width: 100%; max-width: 960px; padding: 40px 20px; }
    h1 { font-size: 44px; font-weight: 900; letter-spacing: -2px; margin: 0 0 8px; color: var(--green); }
    h1.issue { color: var(--red); }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; margin-top: 24px; }
    .card { background: #fff; border-radius: 20px; padding: 28px; box-shadow: 0 10px 40px -20px rgba(0,0,0,0.2); }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 16px; }
    .big { font-size: 36px; font-weight: 900; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; font-size: 14px; font-weight: 700; border-bottom: 1px solid rgba(0,0,0,0.04); }
    .ok { color: var(--green); }
    .err { color: var(--red); }
    .footer { margin-top: 20px; font-family: monospace; font-size: 13px; color: var(--muted); }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  <div class="container">
    <h1 id="headline" {{if not .Healthy}}class="issue"{{end}}>{{.Headline}}</h1>
    <div style="color:var(--muted);font-weight:700">Marketplace API health. <a href="/health/errors">Error log</a></div>
    <div class="grid">
      <div class="card">
        <div class="label">Traffic</div>
        <div class="big">{{.Result.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span class="ok">{{.Result.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span class="err">{{.Result.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Result.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.Result.Traffic.AvgResponseTime}}ms</span></div>
      </div>
      <div class="card">
        <div class="label">Runtime</div>
        <div class="big">{{.Result.Runtime.UptimeSeconds}}s</div>
        <div class="row"><span>Heap In Use</span><span>{{.Result.Runtime.Memory.HeapInMB}} MB</span></div>
        <div class="row"><span>Goroutines</span><span>{{.Result.Runtime.Goroutines}}</span></div>
        <div class="row"><span>Go</span><span>{{.Result.Runtime.GoVersion}}</span></div>
        <div class="row"><span>Platform</span><span>{{.Result.Runtime.Platform}}</span></div>
      </div>
      <div class="card">
        <div class="label">Dependencies</div>
        {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="{{if .OK}}ok{{else}}err{{end}}">{{.Status}} · {{ms .PingMs}} ms</span></div>
        {{end}}
      </div>
    </div>
    {{with .Last}}<div class="footer">LAST INBOUND {{index . "method"}} {{index . "path"}} {{index . "ip"}}</div>{{end}}
  </div>
  <script>setTimeout(() => location.reload(), 30000);</script>
</body>
</html>`))

// RenderDashboardHTML returns the HTML for GET /.
func RenderDashboardHTML(health CollectResult) string {
	view := dashboardView{
		Headline: "All Systems Operational",
		Healthy:  health.Status == "ok",
		Result:   health,
	}
	if !view.Healthy {
		view.Headline = "System Issues Detected"
	}
	for name, d := range health.Dependencies {
		view.Deps = append(view.Deps, dashboardDep{
			Name:   name,
			Status: d.Status,
			PingMs: d.PingMs,
			OK:     d.Status == "connected" || d.Status == "reachable",
		})
	}
	sort.Slice(view.Deps, func(i, j int) bool { return view.Deps[i].Name < view.Deps[j].Name })
	if m, ok := health.Traffic.LastRequest.(map[string]interface{}); ok {
		view.Last = m
	}

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		return "<!DOCTYPE html><p>health dashboard unavailable</p>"
	}
	return buf.String()
}

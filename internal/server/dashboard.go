package server

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

// handleDashboard renders the admin analytics page. The page shows the
// current snapshot and then keeps itself fresh over the stats WebSocket.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)

	data := struct {
		Stats any
		Token string
	}{
		Stats: s.collectStats(),
		Token: sess.Token,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("dashboard render failed")
	}
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Water Quality Admin Dashboard</title>
<style>
  body { font-family: -apple-system, sans-serif; background: #0e1117; color: #fafafa; margin: 2rem; }
  h1 { font-size: 1.4rem; }
  .cards { display: flex; gap: 1rem; flex-wrap: wrap; }
  .card { background: #1c2128; border-radius: 8px; padding: 1rem 1.5rem; min-width: 10rem; }
  .card .value { font-size: 1.8rem; font-weight: 600; }
  .card .label { color: #8b949e; font-size: 0.85rem; }
  table { border-collapse: collapse; margin-top: 1.5rem; }
  th, td { padding: 0.4rem 1rem; border-bottom: 1px solid #30363d; text-align: left; }
  .links { margin-top: 2rem; }
  .links a { color: #58a6ff; margin-right: 1.5rem; }
</style>
</head>
<body>
<h1>Water Quality Prediction — Admin Analytics</h1>
<div class="cards">
  <div class="card"><div class="value" id="total-users">–</div><div class="label">Total users</div></div>
  <div class="card"><div class="value" id="total-predictions">–</div><div class="label">Total predictions</div></div>
  <div class="card"><div class="value" id="drinkable">–</div><div class="label">Drinkable samples</div></div>
  <div class="card"><div class="value" id="avg-confidence">–</div><div class="label">Avg confidence</div></div>
</div>
<table>
  <thead><tr><th>Parameter</th><th>Unsafe samples</th></tr></thead>
  <tbody id="violations"></tbody>
</table>
<div class="links">
  <a href="/api/admin/export/users?token={{.Token}}">Export users CSV</a>
  <a href="/api/admin/export/predictions?token={{.Token}}">Export predictions CSV</a>
</div>
<script>
function render(stats) {
  document.getElementById('total-users').textContent = stats.total_users;
  document.getElementById('total-predictions').textContent = stats.total_predictions;
  document.getElementById('drinkable').textContent =
    stats.drinkable_count + '/' + stats.total_predictions;
  document.getElementById('avg-confidence').textContent =
    stats.avg_confidence.toFixed(1) + '%';
  const tbody = document.getElementById('violations');
  tbody.innerHTML = '';
  for (const v of stats.violations_by_param) {
    const tr = document.createElement('tr');
    tr.innerHTML = '<td>' + v.parameter + '</td><td>' + v.count + '</td>';
    tbody.appendChild(tr);
  }
}
render({{.Stats}});
const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
const ws = new WebSocket(proto + location.host + '/ws/stats?token={{.Token}}');
ws.onmessage = (ev) => render(JSON.parse(ev.data));
</script>
</body>
</html>
`))

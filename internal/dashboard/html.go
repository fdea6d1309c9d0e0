package dashboard

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Shelfie</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; display: flex; justify-content: space-between; align-items: center; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #4ade80, #38bdf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .header .status { padding: 0.5rem 1rem; border-radius: 9999px; font-size: 0.875rem; font-weight: 600; }
        .status.running { background: #166534; color: #4ade80; }
        .status.failed { background: #991b1b; color: #fca5a5; }
        .status.idle { background: #854d0e; color: #fde047; }
        .controls { display: flex; gap: 0.75rem; padding: 1.5rem 2rem 0; flex-wrap: wrap; }
        .controls select, .controls input, .controls button { background: #1e293b; color: #e2e8f0; border: 1px solid #475569; border-radius: 8px; padding: 0.6rem 0.9rem; font-size: 0.9rem; }
        .controls input[type=url] { flex: 1; min-width: 280px; }
        .controls button { cursor: pointer; background: #0369a1; border-color: #0ea5e9; }
        .controls button.secondary { background: #1e293b; border-color: #475569; }
        .controls button:disabled { opacity: 0.5; cursor: not-allowed; }
        .bar { margin: 1.5rem 2rem 0; height: 10px; background: #1e293b; border-radius: 9999px; overflow: hidden; border: 1px solid #334155; }
        .bar .fill { height: 100%; width: 0; background: linear-gradient(90deg, #38bdf8, #4ade80); transition: width 0.4s; }
        .notice { margin: 1rem 2rem 0; padding: 0.75rem 1rem; border-radius: 8px; background: #1e293b; border: 1px solid #38bdf8; display: none; }
        .notice.error { border-color: #f87171; color: #fca5a5; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 1rem; padding: 1.5rem 2rem; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.25rem; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .card .value { font-size: 1.75rem; font-weight: 700; color: #f1f5f9; }
        .card.accent { border-color: #38bdf8; }
        .card.accent .value { color: #38bdf8; }
        .card.success { border-color: #4ade80; }
        .card.success .value { color: #4ade80; }
        .panel { margin: 0 2rem 1.5rem; background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1rem 1.25rem; }
        .panel h2 { font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.75rem; }
        .panel a { color: #38bdf8; text-decoration: none; display: block; padding: 0.2rem 0; }
        #logs { font-family: ui-monospace, monospace; font-size: 0.8rem; max-height: 320px; overflow-y: auto; white-space: pre-wrap; color: #cbd5e1; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Shelfie</h1>
        <span class="status idle" id="status">Idle</span>
    </div>
    <div class="controls">
        <select id="site"></select>
        <input type="url" id="url" placeholder="Category URL (optional)">
        <input type="number" id="pages" min="0" placeholder="Max pages" style="width:120px">
        <button id="start" onclick="startRun()">Start scrape</button>
        <button class="secondary" onclick="clearLogs()">Clear logs</button>
    </div>
    <div class="bar"><div class="fill" id="progress_bar"></div></div>
    <div class="notice" id="notice"></div>
    <div class="grid">
        <div class="card accent"><div class="label">Progress</div><div class="value" id="progress">0%</div></div>
        <div class="card"><div class="label">Page</div><div class="value" id="page">0 / 0</div></div>
        <div class="card success"><div class="label">Products</div><div class="value" id="product_count">0</div></div>
        <div class="card"><div class="label">Elapsed</div><div class="value" id="elapsed">-</div></div>
    </div>
    <div class="panel">
        <h2>Output files</h2>
        <div id="files"><span style="color:#64748b">None yet</span></div>
        <a href="/api/download.csv">Download last run as CSV</a>
    </div>
    <div class="panel">
        <h2>Log</h2>
        <div id="logs"></div>
    </div>
    <div class="footer">Shelfie. Auto-refreshes every 2s</div>
    <script>
        async function loadSites() {
            try {
                const r = await fetch('/api/sites');
                const sites = await r.json();
                const sel = document.getElementById('site');
                sites.forEach(s => {
                    const o = document.createElement('option');
                    o.value = s.slug; o.textContent = s.name; o.dataset.url = s.default_url;
                    sel.appendChild(o);
                });
            } catch(e) {}
        }
        async function startRun() {
            const body = { site: document.getElementById('site').value };
            const url = document.getElementById('url').value.trim();
            if (url) body.urls = [url];
            const pages = parseInt(document.getElementById('pages').value, 10);
            if (pages > 0) body.max_pages = pages;
            const r = await fetch('/api/runs', { method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify(body) });
            if (!r.ok) { const d = await r.json().catch(() => ({})); showNotice(d.error || r.statusText, true); }
            refresh();
        }
        async function clearLogs() { await fetch('/api/logs/clear', { method: 'POST' }); refresh(); }
        function showNotice(text, isError) {
            const n = document.getElementById('notice');
            if (!text) { n.style.display = 'none'; return; }
            n.textContent = text; n.className = 'notice' + (isError ? ' error' : ''); n.style.display = 'block';
        }
        async function refresh() {
            try {
                const r = await fetch('/api/status');
                const d = await r.json();
                const state = d.running ? 'running' : (d.error ? 'failed' : 'idle');
                const st = document.getElementById('status');
                st.textContent = d.running ? 'Running ' + d.site : (d.error ? 'Failed' : 'Idle');
                st.className = 'status ' + state;
                document.getElementById('start').disabled = d.running;
                document.getElementById('progress').textContent = d.progress + '%';
                document.getElementById('progress_bar').style.width = d.progress + '%';
                document.getElementById('page').textContent = d.current_page + ' / ' + d.total_pages;
                document.getElementById('product_count').textContent = Number(d.product_count).toLocaleString();
                document.getElementById('elapsed').textContent = d.elapsed || '-';
                showNotice(d.notification, !!d.error);
                const files = document.getElementById('files');
                if (d.output_files && d.output_files.length) {
                    files.innerHTML = '';
                    d.output_files.forEach(f => {
                        const name = f.split('/').pop();
                        const a = document.createElement('a');
                        a.href = '/api/download/' + encodeURIComponent(name); a.textContent = name;
                        files.appendChild(a);
                    });
                }
                const logs = document.getElementById('logs');
                logs.textContent = (d.logs || []).join('\n');
                logs.scrollTop = logs.scrollHeight;
            } catch(e) {}
        }
        loadSites();
        setInterval(refresh, 2000);
        refresh();
    </script>
</body>
</html>`

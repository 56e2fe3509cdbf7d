package httpapi

import (
	"github.com/gofiber/fiber/v2"
)

func serveDashboard(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(dashboardHTML)
}

const dashboardHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Water Tank Dashboard</title>
  <style>
    :root {
      --bg: #f3f7fa;
      --ink: #1b1b1b;
      --muted: #6b6b6b;
      --card: #ffffff;
      --border: #d9e3ea;
      --low: #ff4d4d;
      --medium: #00b4d8;
      --normal: #3399ff;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      font-family: "Segoe UI", "Helvetica Neue", Arial, sans-serif;
      color: var(--ink);
      background: var(--bg);
    }
    header {
      padding: 20px 32px;
      border-bottom: 1px solid var(--border);
      background: #fff;
      display: flex;
      justify-content: space-between;
      align-items: center;
    }
    h1 { margin: 0; font-size: 22px; }
    header button {
      padding: 7px 12px;
      border: none;
      border-radius: 6px;
      background: #0c3b5e;
      color: #fff;
      cursor: pointer;
    }
    .layout { padding: 24px 32px 40px; display: grid; gap: 16px; }
    .top { display: grid; gap: 16px; grid-template-columns: 220px 1fr; }
    .card {
      background: var(--card);
      border: 1px solid var(--border);
      border-radius: 10px;
      padding: 14px 16px;
    }
    .card .label { color: var(--muted); font-size: 12px; }
    .card .value { font-size: 22px; margin-top: 6px; }
    .water-tank {
      position: relative;
      height: 260px;
      border: 3px solid #0c3b5e;
      border-top: none;
      border-radius: 0 0 14px 14px;
      overflow: hidden;
      background: #eef4f8;
    }
    .water-level {
      position: absolute;
      bottom: 0;
      width: 100%;
      height: 0;
      transition: height 0.8s ease;
    }
    .water-level.low { background: var(--low); }
    .water-level.medium { background: var(--medium); }
    .water-level.normal { background: var(--normal); }
    .stats { display: grid; gap: 12px; grid-template-columns: repeat(auto-fit, minmax(160px, 1fr)); }
    .charts { display: grid; gap: 16px; grid-template-columns: repeat(auto-fit, minmax(420px, 1fr)); }
    .charts img { width: 100%; height: auto; display: block; }
    .empty { color: var(--muted); font-size: 13px; }
  </style>
</head>
<body>
  <header>
    <h1>Water Tank Dashboard</h1>
    <button id="refresh">Refresh</button>
  </header>
  <main class="layout">
    <section class="top">
      <div class="card">
        <div class="water-tank"><div class="water-level" id="waterLevel"></div></div>
      </div>
      <div class="stats">
        <div class="card"><div class="label">Fill level (%)</div><div class="value" id="distanceValue">-</div></div>
        <div class="card"><div class="label">Water height</div><div class="value" id="distanceValue1">-</div></div>
        <div class="card"><div class="label">Last reading</div><div class="value" id="timeValue">-</div></div>
        <div class="card"><div class="label">Readings (valid / total)</div><div class="value" id="countValue">-</div></div>
      </div>
    </section>
    <section class="charts" id="charts"></section>
    <div class="empty" id="status"></div>
  </main>
  <script>
    const chartNames = ["distance", "daily", "weekly", "monthly", "annual"];

    function render(d) {
      const level = document.getElementById("waterLevel");
      level.style.height = d.latest.percent + "%";
      level.className = "water-level " + d.latest.band;
      document.getElementById("distanceValue").textContent = d.latest.percent.toFixed(1);
      document.getElementById("distanceValue1").textContent = d.latest.level;
      document.getElementById("timeValue").textContent = d.latest.rawTime || d.latest.time;
      document.getElementById("countValue").textContent = d.stats.valid + " / " + d.stats.total;

      const charts = document.getElementById("charts");
      charts.innerHTML = "";
      for (const name of chartNames) {
        const card = document.createElement("div");
        card.className = "card";
        const img = document.createElement("img");
        img.alt = name + " chart";
        img.src = "/charts/" + name + "?v=" + encodeURIComponent(d.id);
        img.onerror = () => card.remove();
        card.appendChild(img);
        charts.appendChild(card);
      }
      document.getElementById("status").textContent = "";
    }

    async function load(method, url) {
      const status = document.getElementById("status");
      try {
        const res = await fetch(url, { method });
        if (res.status === 404) {
          status.textContent = "No data available";
          return;
        }
        if (!res.ok) {
          const body = await res.json().catch(() => ({}));
          status.textContent = body.message || ("Request failed: " + res.status);
          return;
        }
        render(await res.json());
      } catch (err) {
        status.textContent = String(err);
      }
    }

    document.getElementById("refresh").addEventListener("click", () => load("POST", "/api/v1/refresh"));
    document.addEventListener("DOMContentLoaded", () => load("GET", "/api/v1/dashboard"));
  </script>
</body>
</html>
`

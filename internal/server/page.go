package server

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/wxjsx/internal/registry"
	"github.com/conneroisu/wxjsx/internal/version"
)

const sampleSource = `<view class="{{cls}}" bindtap="onTap">
  <block wx:for="{{items}}" wx:key="id">
    <text>Hello</text>
  </block>
</view>`

// pageData is rendered by playgroundPage.
type pageData struct {
	Version   string
	Documents []*registry.Document
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page := playgroundPage(pageData{
		Version:   version.Get().Short(),
		Documents: s.orch.Registry().List(),
	})
	templ.Handler(page).ServeHTTP(w, r)
}

// playgroundPage renders the playground: an editor posting to /api/compile
// and a document list refreshed from the websocket feed.
func playgroundPage(data pageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<title>wxjsx playground</title>`)
		b.WriteString(`<style>` + pageStyle + `</style></head><body>`)
		b.WriteString(`<header><h1>wxjsx</h1><span class="version">`)
		b.WriteString(templ.EscapeString(data.Version))
		b.WriteString(`</span><span id="status" class="status">connecting</span></header>`)

		b.WriteString(`<main><section class="editor"><h2>Source</h2><textarea id="source" spellcheck="false">`)
		b.WriteString(templ.EscapeString(sampleSource))
		b.WriteString(`</textarea><button id="compile">Compile</button></section>`)
		b.WriteString(`<section class="output"><h2>Output</h2><pre id="output"></pre></section></main>`)

		b.WriteString(`<aside><h2>Documents</h2><ul id="documents">`)
		for _, doc := range data.Documents {
			b.WriteString(`<li data-document="`)
			b.WriteString(templ.EscapeString(doc.Name))
			b.WriteString(`">`)
			b.WriteString(templ.EscapeString(doc.Name))
			b.WriteString(`</li>`)
		}
		if len(data.Documents) == 0 {
			b.WriteString(`<li class="empty">No documents found</li>`)
		}
		b.WriteString(`</ul></aside>`)

		b.WriteString(`<script>` + pageScript + `</script></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:0;display:grid;grid-template-columns:1fr 18rem;grid-template-rows:auto 1fr;height:100vh}
header{grid-column:1/3;display:flex;gap:1rem;align-items:baseline;padding:.5rem 1rem;border-bottom:1px solid #ddd}
main{display:grid;grid-template-columns:1fr 1fr;gap:1rem;padding:1rem}
textarea,pre{width:100%;height:70vh;font-family:monospace;font-size:13px;box-sizing:border-box;margin:0}
pre{background:#f6f8fa;padding:.5rem;overflow:auto;white-space:pre-wrap}
pre.error{color:#b00020}
aside{border-left:1px solid #ddd;padding:1rem;overflow:auto}
li.error{color:#b00020}
.status{margin-left:auto;font-size:.8rem;color:#666}
`

const pageScript = `
const out = document.getElementById("output");
async function compile() {
  const res = await fetch("/api/compile", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({source: document.getElementById("source").value}),
  });
  const body = await res.json();
  out.classList.toggle("error", !!body.error);
  out.textContent = body.error ? body.line + ":" + body.column + " " + body.error : body.output;
}
document.getElementById("compile").addEventListener("click", compile);

function connect() {
  const status = document.getElementById("status");
  const proto = location.protocol === "https:" ? "wss:" : "ws:";
  const ws = new WebSocket(proto + "//" + location.host + "/ws");
  ws.onopen = () => { status.textContent = "live"; };
  ws.onclose = () => { status.textContent = "disconnected"; setTimeout(connect, 1000); };
  ws.onmessage = (ev) => {
    const msg = JSON.parse(ev.data);
    if (!msg.document) return;
    let item = document.querySelector('[data-document="' + CSS.escape(msg.document) + '"]');
    if (!item) {
      item = document.createElement("li");
      item.dataset.document = msg.document;
      item.textContent = msg.document;
      document.getElementById("documents").appendChild(item);
    }
    item.classList.toggle("error", msg.type === "build_error");
    item.title = msg.error || "";
  };
}
connect();
`

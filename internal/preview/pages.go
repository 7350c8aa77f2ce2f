package preview

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

const blockID = "autotemplar-block"

const liveScript = `<script>
(function () {
  var note = document.body.dataset.note || "";
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + "/ws");
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === "index" && location.pathname === "/") { location.reload(); return; }
    if (msg.type !== "block" || !note || msg.target !== note) { return; }
    var block = document.getElementById("` + blockID + `");
    if (block) { block.innerHTML = msg.content || ""; }
  };
  document.addEventListener("mousedown", function (event) {
    if (event.button === 0 && event.target.closest("#` + blockID + `")) {
      event.preventDefault();
      event.stopPropagation();
    }
  }, true);
})();
</script>`

const pageStyle = `<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
nav a { margin-right: 1rem; }
pre.frontmatter { color: #666; background: #f6f6f6; padding: .5rem; }
#` + blockID + ` { width: 100%; border-left: 3px solid #8a8; padding-left: .75rem; user-select: none; }
#` + blockID + `:empty { display: none; }
</style>`

// pageWriter writes formatted output, keeping the first error.
type pageWriter struct {
	w   io.Writer
	err error
}

func (p *pageWriter) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *pageWriter) render(ctx context.Context, c templ.Component) {
	if p.err != nil {
		return
	}
	p.err = c.Render(ctx, p.w)
}

// layout wraps body in the page chrome. note, when set, subscribes the
// page to live block updates for that note.
func layout(title, note string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.printf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s - autotemplar</title>%s</head>",
			templ.EscapeString(title), pageStyle)
		p.printf("<body data-note=\"%s\"><nav><a href=\"/\">Notes</a><a href=\"/settings\">Settings</a></nav>",
			templ.EscapeString(note))
		p.render(ctx, body)
		p.printf("%s</body></html>", liveScript)
		return p.err
	})
}

func noteHref(path string) string {
	return "/note?path=" + url.QueryEscape(path)
}

type noteLink struct {
	Path     string
	Template bool
}

func indexPage(notes []noteLink, folder string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.printf("<h1>Notes</h1>")
		if folder == "" {
			p.printf("<p>No template folder configured. <a href=\"/settings\">Choose one</a>.</p>")
		} else {
			p.printf("<p>Templates are read from <code>%s</code>.</p>", templ.EscapeString(folder))
		}
		if len(notes) == 0 {
			p.printf("<p>The vault has no notes.</p>")
			return p.err
		}
		p.printf("<ul>")
		for _, note := range notes {
			suffix := ""
			if note.Template {
				suffix = " <small>(template)</small>"
			}
			p.printf("<li><a href=\"%s\">%s</a>%s</li>",
				templ.EscapeString(noteHref(note.Path)), templ.EscapeString(note.Path), suffix)
		}
		p.printf("</ul>")
		return p.err
	})
	return layout("Notes", "", body)
}

type notePageData struct {
	Path        string
	Frontmatter string
	Block       string
	Body        string
}

func notePage(data notePageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.printf("<h1>%s</h1>", templ.EscapeString(data.Path))
		if data.Frontmatter != "" {
			p.printf("<pre class=\"frontmatter\">---\n%s\n---</pre>", templ.EscapeString(data.Frontmatter))
		}
		p.printf("<div id=\"%s\" contenteditable=\"false\">", blockID)
		p.render(ctx, templ.Raw(data.Block))
		p.printf("</div><article>")
		p.render(ctx, templ.Raw(data.Body))
		p.printf("</article>")
		return p.err
	})
	return layout(data.Path, data.Path, body)
}

func settingsPage(folder string, saved bool, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &pageWriter{w: w}
		p.printf("<h1>Settings</h1>")
		if saved {
			p.printf("<p role=\"status\">Saved.</p>")
		}
		if message != "" {
			p.printf("<p role=\"alert\">%s</p>", templ.EscapeString(message))
		}
		p.printf("<form method=\"post\" action=\"/settings\">")
		p.printf("<label for=\"folder\">Auto Tag Templates folder</label>")
		p.printf("<p><small>Select the folder containing your templates to be applied based on tags</small></p>")
		p.printf("<input id=\"folder\" name=\"folder\" type=\"text\" placeholder=\"e.g. autotemplates\" value=\"%s\">",
			templ.EscapeString(folder))
		p.printf("<button type=\"submit\">Save</button></form>")
		return p.err
	})
	return layout("Settings", "", body)
}

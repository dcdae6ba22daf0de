package devserver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/conneroisu/unobtrusive/pkg/registry"
)

// hotReloadScript swaps <template> contents on rerender messages and
// reloads the page for everything else.
const hotReloadScript = `<script>
(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(proto + location.host + "/ws");
  ws.onmessage = function (event) {
    var msg = JSON.parse(event.data);
    if (msg.type === "update" && msg.mode === "rerender") {
      var el = document.getElementById("tmpl-" + msg.component);
      if (el) { el.innerHTML = msg.template; return; }
    }
    if (msg.type === "error") { console.error(msg.error); return; }
    location.reload();
  };
  ws.onclose = function () { setTimeout(function () { location.reload(); }, 1000); };
})();
</script>`

// previewPage lists every registered component with its compiled template.
// The current descriptors are read at render time.
func previewPage(reg *registry.Registry, hot bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<title>Component preview</title></head><body>`)

		descriptors := reg.Descriptors()
		fmt.Fprintf(&b, `<h1>Components (%d)</h1>`, len(descriptors))
		if len(descriptors) == 0 {
			b.WriteString(`<p>No components registered.</p>`)
		}
		for _, d := range descriptors {
			name := templ.EscapeString(d.ElementName)
			fmt.Fprintf(&b, `<section class="component" data-component="%s">`, name)
			fmt.Fprintf(&b, `<h2>&lt;%s&gt;</h2>`, name)
			fmt.Fprintf(&b, `<p class="version">v%d</p>`, d.Version)
			fmt.Fprintf(&b, `<template id="tmpl-%s">%s</template>`, name, d.Template)
			fmt.Fprintf(&b, `<pre><code>%s</code></pre>`, templ.EscapeString(d.Template))
			b.WriteString(`</section>`)
		}

		if hot {
			b.WriteString(hotReloadScript)
		}
		b.WriteString(`</body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

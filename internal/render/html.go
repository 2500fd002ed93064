package render

import (
	"html/template"
	"io"

	"ganttline/internal/layout"
)

// Page carries the non-layout parts of the HTML view.
type Page struct {
	Title string
	// ItemsAPI is the prefix rename requests are sent to
	// (PATCH {ItemsAPI}/{id}). Empty disables inline editing.
	ItemsAPI string
	Style    Style
}

type htmlBar struct {
	layout.Placed
	Left    int
	Width   int
	Tooltip string
}

type htmlView struct {
	Page
	Res  *layout.Result
	Bars []htmlBar
}

var funcMap = template.FuncMap{
	"half": func(n int) int { return n / 2 },
}

// HTML writes the interactive timeline page: a scrollable date axis and a
// scrollable content pane kept in horizontal sync, hover tooltips, and
// double-click renaming (Enter or blur commits, Escape cancels).
func HTML(w io.Writer, res *layout.Result, page Page) error {
	if page.Title == "" {
		page.Title = "Timeline"
	}
	st := page.Style
	if st.AxisHeight <= 0 {
		st = DefaultStyle()
		page.Style = st
	}

	bars := make([]htmlBar, 0, len(res.Items))
	for _, p := range res.Items {
		x, wid := barBox(p.Geometry, st.BarInset)
		bars = append(bars, htmlBar{Placed: p, Left: x, Width: wid, Tooltip: TooltipText(p)})
	}
	return pageTmpl.Execute(w, htmlView{Page: page, Res: res, Bars: bars})
}

var pageTmpl = template.Must(template.New("timeline").Funcs(funcMap).Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { margin: 0; padding: 16px; font-family: sans-serif; }
  .frame { border: 1px solid {{.Style.MajorLine}}; border-radius: 8px; background: {{.Style.Background}}; overflow: hidden; }
  .pane { overflow-x: auto; overflow-y: hidden; }
  .axis { height: {{.Style.AxisHeight}}px; border-bottom: 1px solid {{.Style.MajorLine}}; background: {{.Style.AxisFill}}; }
  .canvas { position: relative; }
  .col { position: absolute; top: 0; height: 100%; box-sizing: border-box; border-right: 1px solid {{.Style.GridLine}}; }
  .col.shaded { background: {{.Style.ShadeFill}}; }
  .tick { position: absolute; top: 0; width: 1px; height: 100%; background: {{.Style.MajorLine}}; }
  .label { position: absolute; top: 8px; font-size: 10px; color: {{.Style.AxisText}}; text-align: center; white-space: nowrap; overflow: hidden; text-overflow: ellipsis; }
  .bar { position: absolute; background: {{.Style.BarFill}}; color: {{.Style.BarText}}; border-radius: 6px; display: flex; align-items: center; padding: 0 8px; box-sizing: border-box; white-space: nowrap; overflow: hidden; text-overflow: ellipsis; cursor: pointer; font-size: {{.Style.FontSize}}px; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
  .bar.editing { background: #1e40af; cursor: text; }
  .bar input { background: transparent; border: none; color: inherit; font: inherit; width: 100%; outline: none; padding: 0; }
  #tooltip { position: fixed; display: none; background: #1f2937; color: #fff; padding: 8px 12px; border-radius: 6px; font-size: 14px; white-space: pre; pointer-events: none; z-index: 1000; }
  .meta { margin-top: 8px; color: {{.Style.AxisText}}; }
</style>
</head>
<body>
<div class="frame" data-ready="true">
  <div class="pane axis" id="axis">
    <div class="canvas" style="width: {{.Res.TotalWidth}}px; height: 100%;">
      {{- range .Res.Columns}}
      {{- if .Major}}<div class="tick" style="left: {{.X}}px"></div>{{end}}
      <div class="col" style="left: {{.X}}px; width: {{$.Res.ColumnWidth}}px"></div>
      <div class="label" style="left: {{.X}}px; width: {{$.Res.ColumnWidth}}px">{{.Label}}</div>
      {{- end}}
    </div>
  </div>
  <div class="pane" id="content" style="height: {{.Res.TotalHeight}}px">
    <div class="canvas" style="width: {{.Res.TotalWidth}}px; height: {{.Res.TotalHeight}}px">
      {{- range .Res.Columns}}
      <div class="col{{if .Shaded}} shaded{{end}}" style="left: {{.X}}px; width: {{$.Res.ColumnWidth}}px"></div>
      {{- end}}
      {{- range .Bars}}
      <div class="bar" data-id="{{.ID}}" data-name="{{.Name}}" data-tip="{{.Tooltip}}" style="left: {{.Left}}px; top: {{.Y}}px; width: {{.Width}}px; height: {{.Height}}px">{{.Name}}</div>
      {{- end}}
    </div>
  </div>
</div>
<div class="meta">Range {{.Res.Extent.Start}} → {{.Res.Extent.End}} · {{len .Res.Items}} items in {{.Res.Lanes}} lanes</div>
{{- if .ItemsAPI}}
<div class="meta">Tip: double-click an item to rename it.</div>
{{- end}}
<div id="tooltip"></div>
<script>
(function () {
  var axis = document.getElementById("axis");
  var content = document.getElementById("content");
  var syncing = false;
  function mirror(from, to) {
    from.addEventListener("scroll", function () {
      if (syncing) { syncing = false; return; }
      if (to.scrollLeft === from.scrollLeft) return;
      syncing = true;
      to.scrollLeft = from.scrollLeft;
    });
  }
  mirror(axis, content);
  mirror(content, axis);

  var tip = document.getElementById("tooltip");
  var editing = null;
  document.querySelectorAll(".bar").forEach(function (bar) {
    function show(e) {
      if (editing === bar) return;
      tip.textContent = bar.dataset.tip;
      tip.style.left = (e.clientX + 10) + "px";
      tip.style.top = (e.clientY - 10) + "px";
      tip.style.display = "block";
    }
    bar.addEventListener("mouseenter", show);
    bar.addEventListener("mousemove", show);
    bar.addEventListener("mouseleave", function () { tip.style.display = "none"; });
  });
{{- if .ItemsAPI}}
  var api = {{.ItemsAPI}};
  document.querySelectorAll(".bar").forEach(function (bar) {
    bar.addEventListener("dblclick", function () {
      if (editing) return;
      editing = bar;
      tip.style.display = "none";
      bar.classList.add("editing");
      var input = document.createElement("input");
      input.type = "text";
      input.value = bar.dataset.name;
      bar.textContent = "";
      bar.appendChild(input);
      input.focus();
      var done = false;
      function finish(commit) {
        if (done) return;
        done = true;
        var name = input.value.trim();
        editing = null;
        bar.classList.remove("editing");
        if (!commit || name === "") { bar.textContent = bar.dataset.name; return; }
        fetch(api + "/" + encodeURIComponent(bar.dataset.id), {
          method: "PATCH",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({ name: name })
        }).then(function (r) {
          return r.ok ? r.json() : null;
        }).then(function (d) {
          if (d) {
            bar.dataset.name = d.item.name;
            bar.dataset.tip = d.item.name + "\n" + d.item.start + " → " + d.item.end;
          }
          bar.textContent = bar.dataset.name;
        }).catch(function () {
          bar.textContent = bar.dataset.name;
        });
      }
      input.addEventListener("keydown", function (e) {
        if (e.key === "Enter") finish(true);
        else if (e.key === "Escape") finish(false);
      });
      input.addEventListener("blur", function () { finish(true); });
    });
  });
{{- end}}
})();
</script>
</body>
</html>
`))

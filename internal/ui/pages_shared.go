package ui

import (
	"strconv"
	"strings"
	"time"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"
)

type navItem struct {
	Label string
	Href  string
	Key   string
	Icon  string
}

var navItems = []navItem{
	{Label: "Relations", Href: "/ui", Key: "relations", Icon: "table"},
	{Label: "Functions", Href: "/ui/functions", Key: "functions", Icon: "function-square"},
	{Label: "SQL Editor", Href: "/ui/sql", Key: "sql", Icon: "square-terminal"},
	{Label: "Query History", Href: "/ui/queries", Key: "queries", Icon: "history"},
}

func pageHead(title string, extra ...Node) Node {
	return Head(
		Meta(Charset("utf-8")),
		Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
		TitleEl(Text(title+" | pg_catalog")),
		Link(Rel("icon"), Href("data:,")),
		Link(Rel("stylesheet"), Href("/ui/static/app.css")),
		Script(Src("https://unpkg.com/lucide@latest/dist/umd/lucide.min.js")),
		Group(extra),
	)
}

func appPage(title, active, principal string, body ...Node) Node {
	nav := make([]Node, 0, len(navItems))
	for _, item := range navItems {
		className := "app-nav-link"
		if item.Key == active {
			className += " active"
		}
		nav = append(nav, A(
			Href(item.Href),
			Class(className),
			I(Class("nav-icon"), Attr("data-lucide", item.Icon), Attr("aria-hidden", "true")),
			Span(Text(item.Label)),
		))
	}

	return HTML(
		Lang("en"),
		pageHead(title,
			Script(
				Type("module"),
				Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"),
			),
		),
		Body(
			Main(Class("app-shell"),
				Aside(
					Class("app-sidebar"),
					Div(
						Class("brand"),
						Strong(Text("pg_catalog")),
						P(Class(mutedClass()), Text("Catalog snapshot browser")),
					),
					Nav(Class("app-nav"), Group(nav)),
				),
				Section(
					Class("app-main"),
					Div(
						Class("topbar"),
						H1(Class("page-title"), Text(title)),
						P(Class(mutedClass()), Text("Signed in as "+principal)),
					),
					Div(Class("content"), Group(body)),
				),
			),
			Script(Raw("if (window.lucide) { window.lucide.createIcons(); }")),
		),
	)
}

func errorPage(title, message string) Node {
	return HTML(
		Lang("en"),
		pageHead(title),
		Body(
			Main(
				Class("layout"),
				H1(Class("page-title"), Text(title)),
				P(Text(message)),
				P(A(Href("/ui"), Text("Back to relations"))),
			),
		),
	)
}

// quickFilter renders the filter box that drives containsExpr.
func quickFilter(placeholder string) Node {
	return Div(
		Class(cardClass()),
		Label(Text("Quick filter")),
		Input(Type("text"), data.Bind("q"), Placeholder(placeholder)),
	)
}

func filterSignals() Node {
	return data.Signals(map[string]any{"q": ""})
}

func containsExpr(value string) string {
	lower := strings.ToLower(value)
	return "$q === '' || " + strconv.Quote(lower) + ".includes($q.toLowerCase())"
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.RFC3339)
}

func cardClass(extra ...string) string {
	parts := []string{"card"}
	parts = append(parts, extra...)
	return strings.Join(parts, " ")
}

func mutedClass() string {
	return "muted"
}

func statusLabel(text, tone string) Node {
	className := "label"
	if tone != "" {
		className += " label-" + tone
	}
	return Span(Class(className), Text(text))
}

func dataTable(headers []string, rows []Node) Node {
	head := make([]Node, len(headers))
	for i, h := range headers {
		head[i] = Th(Text(h))
	}
	return Div(
		Class("table-wrap"),
		Table(
			THead(Tr(Group(head))),
			TBody(Group(rows)),
		),
	)
}

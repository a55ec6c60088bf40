package ui

import (
	"fmt"
	"net/url"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"

	"duck-pgcatalog/internal/engine"
	"duck-pgcatalog/internal/pgcatalog"
	"duck-pgcatalog/internal/service/introspection"
	"duck-pgcatalog/internal/service/query"
)

// sqlEditorPage renders the editor and, when present, the last statement's
// result. Earlier statements in the batch only contribute their tags.
func sqlEditorPage(principal, sqlText string, results []*engine.Result, runError string, csrf Node) Node {
	resultNode := Node(P(Class(mutedClass()), Text("Run a query to see results.")))

	if runError != "" {
		resultNode = Div(
			Class(cardClass("card-error")),
			H2(Text("Query Error")),
			Pre(Text(runError)),
		)
	} else if res := lastResult(results); res != nil {
		resultNode = resultCard(res, results)
	}

	return appPage("SQL Editor", "sql", principal,
		Div(
			Class(cardClass()),
			Form(
				Method("post"),
				Action("/ui/sql"),
				csrf,
				Textarea(Name("sql"), Rows("8"), Class("sql-input"), Text(sqlText)),
				Button(Type("submit"), Class("btn btn-primary"), Text("Run")),
			),
		),
		resultNode,
	)
}

func resultCard(res *engine.Result, all []*engine.Result) Node {
	headers := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		typeName := "unknown"
		if t, ok := pgcatalog.LookupType(c.TypeOid); ok {
			typeName = t.Name
		}
		headers[i] = c.Name + " (" + typeName + ")"
	}

	shown := res.Rows
	if len(shown) > sqlEditorMaxRows {
		shown = shown[:sqlEditorMaxRows]
	}
	rows := make([]Node, 0, len(shown))
	for _, row := range shown {
		cells := make([]Node, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = Td(Class(mutedClass()), Text("NULL"))
				continue
			}
			cells[i] = Td(Text(introspection.FormatCell(v)))
		}
		rows = append(rows, Tr(Group(cells)))
	}

	tags := make([]Node, len(all))
	for i, r := range all {
		tags[i] = statusLabel(r.Tag, "accent")
	}

	meta := fmt.Sprintf("%d row(s)", len(res.Rows))
	if len(shown) < len(res.Rows) {
		meta = fmt.Sprintf("%d row(s), showing first %d", len(res.Rows), len(shown))
	}

	return Div(
		Class(cardClass()),
		H2(Text("Results")),
		P(Class(mutedClass()), Text(meta+" "), Group(tags)),
		dataTable(headers, rows),
	)
}

func queriesPage(principal string, entries []query.HistoryEntry) Node {
	rows := make([]Node, 0, len(entries))
	for _, e := range entries {
		tone := "success"
		if e.Status == query.StatusFailed {
			tone = "danger"
		}
		rows = append(rows, Tr(
			data.Show(containsExpr(e.Principal+" "+e.SQL+" "+e.Status)),
			Td(Text(formatTime(e.StartedAt))),
			Td(Text(e.Principal)),
			Td(A(Href("/ui/sql?sql="+url.QueryEscape(e.SQL)), Code(Text(e.SQL)))),
			Td(statusLabel(e.Status, tone), If(e.Error != "", P(Class(mutedClass()), Text(e.Error)))),
			Td(Text(fmt.Sprintf("%d", e.Rows))),
			Td(Text(fmt.Sprintf("%d ms", e.DurationMs))),
		))
	}

	return appPage("Query History", "queries", principal,
		Div(
			filterSignals(),
			quickFilter("Filter by principal, SQL or status"),
			Div(
				Class(cardClass()),
				dataTable([]string{"Started", "Principal", "SQL", "Status", "Rows", "Duration"}, rows),
			),
		),
	)
}

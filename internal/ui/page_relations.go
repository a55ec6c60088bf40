package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"

	"duck-pgcatalog/internal/service/introspection"
)

// relationMaxRows caps the rows rendered on a relation page.
const relationMaxRows = 500

func relationsListPage(principal string, relations []introspection.RelationInfo) Node {
	rows := make([]Node, 0, len(relations))
	for _, rel := range relations {
		names := make([]string, len(rel.Columns))
		for i, c := range rel.Columns {
			names[i] = c.Name
		}
		rows = append(rows, Tr(
			data.Show(containsExpr(rel.Name+" "+strings.Join(names, " "))),
			Td(A(Href("/ui/relations/"+url.PathEscape(rel.Name)), Text("pg_catalog."+rel.Name))),
			Td(Text(fmt.Sprintf("%d", len(rel.Columns)))),
			Td(Class(mutedClass()), Text(strings.Join(names, ", "))),
		))
	}

	return appPage("Relations", "relations", principal,
		Div(
			filterSignals(),
			quickFilter("Filter by relation or column name"),
			Div(
				Class(cardClass()),
				dataTable([]string{"Relation", "Columns", "Column names"}, rows),
			),
		),
	)
}

func relationDetailPage(principal string, rel *introspection.RelationData) Node {
	headers := make([]string, len(rel.Columns))
	for i, c := range rel.Columns {
		headers[i] = c.Name
	}

	shown := rel.Rows
	if len(shown) > relationMaxRows {
		shown = shown[:relationMaxRows]
	}
	rows := make([]Node, 0, len(shown))
	for _, row := range shown {
		cells := make([]Node, len(row))
		texts := make([]string, len(row))
		for i, v := range row {
			texts[i] = introspection.FormatCell(v)
			if v == nil {
				cells[i] = Td(Class(mutedClass()), Text("NULL"))
				continue
			}
			cells[i] = Td(Text(texts[i]))
		}
		rows = append(rows, Tr(data.Show(containsExpr(strings.Join(texts, " "))), Group(cells)))
	}

	meta := fmt.Sprintf("%d row(s) fetched in %s", rel.RowCount, rel.FetchedIn.Round(time.Microsecond))
	if len(shown) < rel.RowCount {
		meta = fmt.Sprintf("%d row(s), showing first %d", rel.RowCount, len(shown))
	}

	return appPage("pg_catalog."+rel.Name, "relations", principal,
		Div(
			filterSignals(),
			Div(Class(cardClass()), columnsTable(rel.Columns)),
			quickFilter("Filter rows"),
			Div(
				Class(cardClass()),
				P(Class(mutedClass()), Text(meta)),
				dataTable(headers, rows),
			),
		),
	)
}

func columnsTable(cols []introspection.Column) Node {
	rows := make([]Node, len(cols))
	for i, c := range cols {
		nullable := Node(statusLabel("not null", ""))
		if c.Nullable {
			nullable = statusLabel("nullable", "accent")
		}
		rows[i] = Tr(
			Td(Code(Text(c.Name))),
			Td(Text(c.Type)),
			Td(Text(fmt.Sprintf("%d", c.TypeOid))),
			Td(nullable),
		)
	}
	return Details(
		Summary(Text(fmt.Sprintf("%d column(s)", len(cols)))),
		dataTable([]string{"Column", "Type", "Type oid", "Null"}, rows),
	)
}

func functionsPage(principal string, fns []introspection.FunctionInfo) Node {
	rows := make([]Node, 0, len(fns))
	for _, fn := range fns {
		args := make([]string, len(fn.Args))
		for i, a := range fn.Args {
			args[i] = strings.TrimSpace(a.Name + " " + a.Type)
		}
		signature := fn.Name + "(" + strings.Join(args, ", ") + ")"
		rows = append(rows, Tr(
			data.Show(containsExpr(signature+" "+fn.ReturnType)),
			Td(Text(fmt.Sprintf("%d", fn.Oid))),
			Td(Code(Text(signature))),
			Td(Text(fn.ReturnType)),
			Td(statusLabel(fn.Volatility, "accent")),
		))
	}

	return appPage("Functions", "functions", principal,
		Div(
			filterSignals(),
			quickFilter("Filter by function name or type"),
			Div(
				Class(cardClass()),
				dataTable([]string{"Oid", "Signature", "Returns", "Volatility"}, rows),
			),
		),
	)
}

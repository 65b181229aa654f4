package echoapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/dissertrack/core"
)

const orderingParam = "ordering"

// parseOrdering reads `?ordering=field,-other`: a leading "-" sorts descending.
func parseOrdering(ctx echo.Context) []core.DBOrdering {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	var ordering []core.DBOrdering
	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ordering = append(ordering, core.DBOrdering{Field: field, Ascending: !descending})
	}
	return ordering
}

// bindQuery binds the query string of a GET request to a filter.
// A malformed query string yields ok == false, which handlers answer with an empty list.
func bindQuery(ctx echo.Context, filter interface{}) (ok bool) {
	return ctx.Bind(filter) == nil
}

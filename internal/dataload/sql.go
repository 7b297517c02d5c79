package dataload

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-agent/internal/model"
	"github.com/sells-group/opportunity-agent/internal/store"
)

// WriteInitSQL writes a Postgres bootstrap script that recreates the purchase
// table and inserts rows.
func WriteInitSQL(w io.Writer, rows []model.PurchaseRow) error {
	bw := bufio.NewWriter(w)

	bw.WriteString("-- init.sql\n")
	bw.WriteString("DROP TABLE IF EXISTS " + store.Table + ";\n")
	bw.WriteString(store.PostgresSchema())
	bw.WriteString("\n\n-- Insert sample data\n")

	prefix := "INSERT INTO " + store.Table + " (" + strings.Join(store.Columns, ", ") + ") VALUES ("
	for _, r := range rows {
		bw.WriteString(prefix)
		bw.WriteString(strings.Join(sqlValues(r), ","))
		bw.WriteString(");\n")
	}

	return eris.Wrap(bw.Flush(), "dataload: write init sql")
}

// sqlValues renders r in store.Columns order.
func sqlValues(r model.PurchaseRow) []string {
	return []string{
		quote(r.CustomerID),
		quote(r.Product),
		strconv.Itoa(r.Quantity),
		formatFloat(r.UnitPrice),
		formatFloat(r.TotalPrice),
		quote(r.PurchaseDate.Format("2006-01-02")),
		quote(r.Name),
		quote(r.Industry),
		formatFloat(r.AnnualRevenue),
		strconv.Itoa(r.EmployeeCount),
		quote(r.PriorityRating),
		quote(r.AccountType),
		quote(r.Location),
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

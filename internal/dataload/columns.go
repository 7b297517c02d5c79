// Package dataload converts customer purchase exports (CSV or XLSX) into
// store rows and bootstrap SQL.
package dataload

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-agent/internal/model"
)

// Export column headers. The first thirteen feed the store; the remaining
// CRM columns are accepted and ignored.
const (
	ColCustomerID       = "Customer ID"
	ColProduct          = "Product"
	ColQuantity         = "Quantity"
	ColUnitPrice        = "Unit Price (USD)"
	ColTotalPrice       = "Total Price (USD)"
	ColPurchaseDate     = "Purchase Date"
	ColCustomerName     = "Customer Name"
	ColIndustry         = "Industry"
	ColAnnualRevenue    = "Annual Revenue (USD)"
	ColEmployees        = "Number of Employees"
	ColPriority         = "Customer Priority Rating"
	ColAccountType      = "Account Type"
	ColLocation         = "Location"
	ColCurrentProducts  = "Current Products"
	ColProductUsage     = "Product Usage (%)"
	ColCrossSellSynergy = "Cross-Sell Synergy"
	ColLastActivity     = "Last Activity Date"
	ColOpportunityStage = "Opportunity Stage"
)

// ExportColumns lists the full customer export header in file order.
var ExportColumns = []string{
	ColCustomerID, ColProduct, ColQuantity, ColUnitPrice, ColTotalPrice,
	ColPurchaseDate, ColCustomerName, ColIndustry, ColAnnualRevenue, ColEmployees,
	ColPriority, ColAccountType, ColLocation, ColCurrentProducts, ColProductUsage,
	ColCrossSellSynergy, ColLastActivity, ColOpportunityStage,
}

// RequiredColumns are the export columns a file must carry.
var RequiredColumns = ExportColumns[:13]

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
}

// Mapper converts export records to purchase rows by header name.
type Mapper struct {
	index map[string]int
}

// NewMapper validates header and returns a Mapper for its records. Header
// names are matched case-insensitively after trimming.
func NewMapper(header []string) (*Mapper, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := normalize(h)
		if _, dup := index[key]; dup {
			return nil, eris.Errorf("dataload: duplicate column %q", h)
		}
		index[key] = i
	}

	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := index[normalize(c)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("dataload: missing columns: %s", strings.Join(missing, ", "))
	}
	return &Mapper{index: index}, nil
}

func normalize(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func (m *Mapper) field(rec []string, col string) string {
	i := m.index[normalize(col)]
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// Map converts one record. line is used in error messages only.
func (m *Mapper) Map(rec []string, line int) (model.PurchaseRow, error) {
	var row model.PurchaseRow
	var err error

	row.CustomerID = m.field(rec, ColCustomerID)
	if row.CustomerID == "" {
		return row, eris.Errorf("dataload: line %d: empty %s", line, ColCustomerID)
	}
	row.Product = m.field(rec, ColProduct)
	if row.Product == "" {
		return row, eris.Errorf("dataload: line %d: empty %s", line, ColProduct)
	}

	if row.Quantity, err = parseInt(m.field(rec, ColQuantity)); err != nil || row.Quantity <= 0 {
		return row, eris.Errorf("dataload: line %d: invalid %s %q", line, ColQuantity, m.field(rec, ColQuantity))
	}
	if row.UnitPrice, err = parseMoney(m.field(rec, ColUnitPrice)); err != nil {
		return row, eris.Wrapf(err, "dataload: line %d: %s", line, ColUnitPrice)
	}
	if row.TotalPrice, err = parseMoney(m.field(rec, ColTotalPrice)); err != nil {
		return row, eris.Wrapf(err, "dataload: line %d: %s", line, ColTotalPrice)
	}
	if row.PurchaseDate, err = parseDate(m.field(rec, ColPurchaseDate)); err != nil {
		return row, eris.Wrapf(err, "dataload: line %d: %s", line, ColPurchaseDate)
	}

	row.Name = m.field(rec, ColCustomerName)
	row.Industry = m.field(rec, ColIndustry)
	if row.AnnualRevenue, err = parseMoney(m.field(rec, ColAnnualRevenue)); err != nil || row.AnnualRevenue < 0 {
		return row, eris.Errorf("dataload: line %d: invalid %s %q", line, ColAnnualRevenue, m.field(rec, ColAnnualRevenue))
	}
	if row.EmployeeCount, err = parseInt(m.field(rec, ColEmployees)); err != nil || row.EmployeeCount < 0 {
		return row, eris.Errorf("dataload: line %d: invalid %s %q", line, ColEmployees, m.field(rec, ColEmployees))
	}
	row.PriorityRating = m.field(rec, ColPriority)
	row.AccountType = m.field(rec, ColAccountType)
	row.Location = m.field(rec, ColLocation)
	return row, nil
}

func parseInt(s string) (int, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	// Spreadsheets often store whole numbers as "12.0".
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, eris.Errorf("dataload: not an integer: %q", s)
	}
	return int(f), nil
}

func parseMoney(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, eris.Errorf("dataload: not a number: %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, eris.Errorf("dataload: not a finite number: %q", s)
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, eris.Errorf("dataload: unrecognized date %q", s)
}

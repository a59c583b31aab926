package sheets

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Armpjsf/wms-360-pro-sub001/internal/domain"
)

// Header aliases accepted for each canonical field. Matching ignores case,
// underscores and hyphens.
var (
	productIDAliases    = []string{"id", "sku", "product id", "code", "item code"}
	productNameAliases  = []string{"name", "product name", "product", "item", "description"}
	stockAliases        = []string{"stock", "on hand", "qty", "quantity", "balance"}
	minStockAliases     = []string{"min stock", "minstock", "min", "minimum", "reorder level"}
	priceAliases        = []string{"price", "unit price", "cost", "unit cost"}
	unitAliases         = []string{"unit", "uom"}
	locationAliases     = []string{"location", "loc", "bin", "slot"}
	categoryAliases     = []string{"category", "group", "type"}
	statusAliases       = []string{"status", "active"}
	dateAliases         = []string{"date", "timestamp", "txn date", "transaction date"}
	skuRefAliases       = []string{"sku", "product id", "code", "product", "product name", "item"}
	qtyAliases          = []string{"qty", "quantity", "amount", "units"}
	txnTypeAliases      = []string{"type", "direction", "movement", "in out"}
	batchAliases        = []string{"batch", "batch id", "lot", "lot no"}
	expiryAliases       = []string{"expiry", "expiry date", "exp", "exp date", "expiration"}
	docRefAliases       = []string{"doc ref", "docref", "reference", "ref", "document"}
	ownerAliases        = []string{"owner", "user", "by"}
	reasonAliases       = []string{"reason", "note", "remark"}
	systemQtyAliases    = []string{"system qty", "system", "expected", "book qty"}
	countedQtyAliases   = []string{"counted qty", "counted", "actual", "physical"}
	countLocationAlias  = []string{"location", "loc", "bin"}
	defaultDateLayouts  = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "2006/01/02", "02/01/2006", "2/1/2006", "02/01/2006 15:04:05"}
	excelEpoch          = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	inboundTypeWords    = map[string]bool{"IN": true, "INBOUND": true, "RECEIVE": true, "RECEIPT": true, "GRN": true, "+": true}
	outboundTypeWords   = map[string]bool{"OUT": true, "OUTBOUND": true, "ISSUE": true, "SALE": true, "SHIP": true, "DISPATCH": true, "-": true}
	inactiveStatusWords = map[string]bool{"inactive": true, "disabled": true, "discontinued": true, "false": true, "no": true, "0": true}
)

// Normalizer converts raw tables into domain collections. Rows that cannot be parsed
// are skipped and counted, never fatal.
type Normalizer struct {
	DateLayouts []string
	Location    *time.Location
}

// NewNormalizer returns a Normalizer with the default date layouts in UTC.
func NewNormalizer() *Normalizer {
	return &Normalizer{DateLayouts: defaultDateLayouts, Location: time.UTC}
}

// Result carries the normalized collections and how many rows each tab dropped.
type Result struct {
	Products     []domain.Product
	Transactions []domain.Transaction
	Damages      []domain.DamageRecord
	CycleCounts  []domain.CycleCount
	Skipped      map[string]int
}

// Normalize converts all four tables. Product references in the other tabs may
// carry either the product id or its name; both resolve to the id.
func (n *Normalizer) Normalize(products, transactions, damages, counts Table) Result {
	res := Result{Skipped: map[string]int{}}

	var skipped int
	res.Products, skipped = n.Products(products)
	res.Skipped[products.Name] += skipped

	resolve := newResolver(res.Products)
	res.Transactions, skipped = n.Transactions(transactions, resolve)
	res.Skipped[transactions.Name] += skipped
	res.Damages, skipped = n.Damages(damages, resolve)
	res.Skipped[damages.Name] += skipped
	res.CycleCounts, skipped = n.CycleCounts(counts, resolve)
	res.Skipped[counts.Name] += skipped

	return res
}

// Products parses catalog rows. A missing id falls back to the name.
func (n *Normalizer) Products(t Table) ([]domain.Product, int) {
	cols := indexHeader(t.Header)
	out := make([]domain.Product, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		name := cols.get(row, productNameAliases...)
		id := cols.get(row, productIDAliases...)
		if id == "" {
			id = name
		}
		if id == "" {
			skipped++
			continue
		}
		stock, _ := parseInt(cols.get(row, stockAliases...))
		minStock, _ := parseInt(cols.get(row, minStockAliases...))
		price, _ := parseDecimal(cols.get(row, priceAliases...))

		status := domain.ProductActive
		if inactiveStatusWords[strings.ToLower(cols.get(row, statusAliases...))] {
			status = domain.ProductInactive
		}
		out = append(out, domain.Product{
			ID:       id,
			Name:     name,
			Stock:    stock,
			MinStock: minStock,
			Price:    price,
			Unit:     cols.get(row, unitAliases...),
			Location: cols.get(row, locationAliases...),
			Category: cols.get(row, categoryAliases...),
			Status:   status,
		})
	}
	return out, skipped
}

// Transactions parses the movement log. When the type column is missing the sign of
// the quantity gives the direction.
func (n *Normalizer) Transactions(t Table, resolve func(string) string) ([]domain.Transaction, int) {
	cols := indexHeader(t.Header)
	hasType := cols.has(txnTypeAliases...)
	out := make([]domain.Transaction, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		date, ok := n.parseDate(cols.get(row, dateAliases...))
		sku := cols.get(row, skuRefAliases...)
		qty, qtyOK := parseInt(cols.get(row, qtyAliases...))
		if !ok || sku == "" || !qtyOK || qty == 0 {
			skipped++
			continue
		}

		var typ domain.TransactionType
		switch word := strings.ToUpper(cols.get(row, txnTypeAliases...)); {
		case inboundTypeWords[word]:
			typ = domain.TransactionIn
		case outboundTypeWords[word]:
			typ = domain.TransactionOut
		case !hasType || word == "":
			typ = domain.TransactionIn
			if qty < 0 {
				typ = domain.TransactionOut
			}
		default:
			skipped++
			continue
		}

		txn := domain.Transaction{
			Date:    date,
			SKU:     resolve(sku),
			Qty:     absInt(qty),
			Type:    typ,
			BatchID: cols.get(row, batchAliases...),
			DocRef:  cols.get(row, docRefAliases...),
			Owner:   cols.get(row, ownerAliases...),
		}
		if exp, ok := n.parseDate(cols.get(row, expiryAliases...)); ok {
			txn.ExpiryDate = &exp
		}
		out = append(out, txn)
	}
	return out, skipped
}

// Damages parses write-off rows.
func (n *Normalizer) Damages(t Table, resolve func(string) string) ([]domain.DamageRecord, int) {
	cols := indexHeader(t.Header)
	out := make([]domain.DamageRecord, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		date, ok := n.parseDate(cols.get(row, dateAliases...))
		sku := cols.get(row, skuRefAliases...)
		qty, qtyOK := parseInt(cols.get(row, qtyAliases...))
		if !ok || sku == "" || !qtyOK {
			skipped++
			continue
		}
		out = append(out, domain.DamageRecord{
			Date:   date,
			SKU:    resolve(sku),
			Qty:    absInt(qty),
			Reason: cols.get(row, reasonAliases...),
		})
	}
	return out, skipped
}

// CycleCounts parses physical count rows. Both quantities are required.
func (n *Normalizer) CycleCounts(t Table, resolve func(string) string) ([]domain.CycleCount, int) {
	cols := indexHeader(t.Header)
	out := make([]domain.CycleCount, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		date, ok := n.parseDate(cols.get(row, dateAliases...))
		sku := cols.get(row, skuRefAliases...)
		system, sysOK := parseInt(cols.get(row, systemQtyAliases...))
		counted, cntOK := parseInt(cols.get(row, countedQtyAliases...))
		if !ok || sku == "" || !sysOK || !cntOK {
			skipped++
			continue
		}
		out = append(out, domain.CycleCount{
			Date:       date,
			SKU:        resolve(sku),
			Location:   cols.get(row, countLocationAlias...),
			SystemQty:  system,
			CountedQty: counted,
		})
	}
	return out, skipped
}

// newResolver maps a product reference to its id. Ids win over names; unknown
// references pass through unchanged.
func newResolver(products []domain.Product) func(string) string {
	ids := make(map[string]bool, len(products))
	names := make(map[string]string, len(products))
	for _, p := range products {
		ids[p.ID] = true
		if p.Name != "" {
			key := strings.ToLower(p.Name)
			if _, taken := names[key]; !taken {
				names[key] = p.ID
			}
		}
	}
	return func(ref string) string {
		if ids[ref] {
			return ref
		}
		if id, ok := names[strings.ToLower(ref)]; ok {
			return id
		}
		return ref
	}
}

func (n *Normalizer) parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	loc := n.Location
	if loc == nil {
		loc = time.UTC
	}
	layouts := n.DateLayouts
	if len(layouts) == 0 {
		layouts = defaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	// Spreadsheet serial day numbers, as exported for unformatted date cells.
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 && serial < 200000 {
		days := math.Floor(serial)
		secs := math.Round((serial - days) * 86400)
		t := excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
	}
	return time.Time{}, false
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	return strings.NewReplacer(",", "", " ", "", "$", "", "฿", "").Replace(s)
}

func parseInt(s string) (int, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = cleanNumber(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// =============================================================================
// Firefly Amazon Reconciler - Order Page Parsing
// =============================================================================
//
// Extracts an Order out of the order-details page. The selectors follow
// the page's a-box grid:
//
//   div#orderDetails
//     div#od-subtotals                      order summary (promotion lives here)
//     div.a-box-group div.a-box.a-last      payment transactions expander
//     div.shipment                          one box per shipment
//
// Amazon reshuffles this markup occasionally; every structural assumption
// fails loudly so the raw page lands in the failure cache slot for offline
// diagnosis.
//
// =============================================================================

package amazon

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	productHrefRe = regexp.MustCompile(`.+/product/[^/]+`)
	itemPriceRe   = regexp.MustCompile(`^(€|\$|£|[A-Z]{3})\s*([\d.,]+)$`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// currencySymbols maps the symbols Amazon renders to ISO codes, since the
// ledger stores codes.
var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
}

// ParseOrder extracts the order from one order-details document.
func ParseOrder(doc *goquery.Document, url, host string) (*Order, error) {
	details := doc.Find("div#orderDetails").First()
	if details.Length() == 0 {
		return nil, fmt.Errorf("no #orderDetails section found")
	}

	var shipments []*Shipment
	var parseErr error
	details.Find("div.shipment").EachWithBreak(func(n int, sel *goquery.Selection) bool {
		shipment, err := parseShipment(sel, host)
		if err != nil {
			parseErr = fmt.Errorf("shipment %d: %w", n, err)
			return false
		}
		shipments = append(shipments, shipment)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return NewOrder(
		url,
		parseSummary(details.Find("div#od-subtotals").First()),
		parseTransactions(details.Find("div.a-box-group div.a-box.a-last div.a-row").First()),
		shipments,
	)
}

// parseSummary flattens the subtotals rows into one line per row, cells
// joined by spaces. The promotion regexp runs against this text later.
func parseSummary(summary *goquery.Selection) string {
	var lines []string
	summary.Find("div.a-row").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("div.a-column span").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if line := strings.TrimSpace(strings.Join(cells, " ")); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n")
}

func parseTransactions(box *goquery.Selection) string {
	var lines []string
	box.Find("div.a-row").Each(func(_ int, row *goquery.Selection) {
		line := whitespaceRe.ReplaceAllString(strings.TrimSpace(row.Text()), " ")
		if line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n")
}

func parseShipment(shipment *goquery.Selection, host string) (*Shipment, error) {
	title := strings.TrimSpace(shipment.Find("div.shipment-top-row div.a-row").First().Text())
	row := shipment.Find("div.a-col-left div.a-row").First()

	links := row.Find("div.a-col-right div.a-row a.a-link-normal").FilterFunction(
		func(_ int, link *goquery.Selection) bool {
			href, ok := link.Attr("href")
			return ok && productHrefRe.MatchString(href)
		})
	prices := row.Find("div.a-col-right div.a-row span.a-color-price nobr")
	quantities := row.Find("div.a-col-left")

	if links.Length() == 0 {
		return nil, fmt.Errorf("no shipment items were found")
	}
	if links.Length() != prices.Length() || links.Length() != quantities.Length() {
		return nil, fmt.Errorf("counts should match: %d links, %d prices, %d quantities",
			links.Length(), prices.Length(), quantities.Length())
	}

	items := make([]*ShipmentItem, 0, links.Length())
	for n := 0; n < links.Length(); n++ {
		item, err := parseItem(links.Eq(n), prices.Eq(n), quantities.Eq(n), host)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", n, err)
		}
		items = append(items, item)
	}

	return &Shipment{Title: title, Items: items}, nil
}

func parseItem(link, price, quantity *goquery.Selection, host string) (*ShipmentItem, error) {
	priceText := strings.TrimSpace(price.Text())
	m := itemPriceRe.FindStringSubmatch(priceText)
	if m == nil {
		return nil, fmt.Errorf("unparseable price %q", priceText)
	}

	currency := m[1]
	if code, ok := currencySymbols[currency]; ok {
		currency = code
	}

	amount, err := ParsePrice(m[2])
	if err != nil {
		return nil, fmt.Errorf("price %q: %w", priceText, err)
	}

	href, _ := link.Attr("href")

	qty := 1
	if qtyText := strings.TrimSpace(quantity.Find("span.item-view-qty").Text()); qtyText != "" {
		qty, err = strconv.Atoi(qtyText)
		if err != nil || qty < 1 {
			return nil, fmt.Errorf("unparseable quantity %q", qtyText)
		}
	}

	return &ShipmentItem{
		URL:      host + productHrefRe.FindString(href),
		Name:     strings.TrimSpace(link.Text()),
		Currency: currency,
		Amount:   amount,
		Quantity: qty,
	}, nil
}

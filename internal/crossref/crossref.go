package crossref

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nhle/swapdesk/internal/model"
)

// referencePattern matches gateway references quoted in notification text
// (e.g. "ref: T123abc", "Reference PSK_8f2a"). References contain a digit.
var referencePattern = regexp.MustCompile(`(?i)\bref(?:erence)?\b\s*[:#]?\s*([A-Za-z0-9_-]*\d[A-Za-z0-9_-]*)`)

// orderPattern matches order ids quoted in notification text
// (e.g. "Order #65f0c0ffee", "order id: o-17").
var orderPattern = regexp.MustCompile(`(?i)\border\b\s*(?:id)?\s*[:#]?\s*#?([A-Za-z0-9_-]*\d[A-Za-z0-9_-]*)`)

// Links holds the entities a notification points at.
type Links struct {
	OrderID   string
	Reference string
	SwapID    string
	ProductID string
	Amount    float64
}

// Empty reports whether no link was found.
func (l Links) Empty() bool {
	return l.OrderID == "" && l.Reference == "" && l.SwapID == "" && l.ProductID == ""
}

// Verifiable reports whether the links are enough to verify a payment.
func (l Links) Verifiable() bool {
	return l.Reference != ""
}

// Extract collects links from the structured payload first and falls back
// to scanning the title and message.
func Extract(n model.Notification) Links {
	l := Links{
		OrderID:   dataString(n.Data, "orderId", "order_id", "order"),
		Reference: dataString(n.Data, "reference", "paymentReference", "ref"),
		SwapID:    dataString(n.Data, "swapId", "swap_id"),
		ProductID: dataString(n.Data, "productId", "product_id", "deviceId"),
		Amount:    dataNumber(n.Data, "amount"),
	}

	text := n.Title + " " + n.Message
	if l.Reference == "" {
		l.Reference = firstMatch(referencePattern, text)
	}
	if l.OrderID == "" && n.Type.Category() == model.CategoryOrder {
		l.OrderID = firstMatch(orderPattern, text)
	}
	return l
}

// ExtractReferences returns all gateway references quoted in text,
// deduplicated in order of first occurrence.
func ExtractReferences(text string) []string {
	matches := referencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		result = append(result, m[1])
	}
	return result
}

func firstMatch(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func dataString(data map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		case map[string]any:
			if id := dataString(v, "_id", "id"); id != "" {
				return id
			}
		}
	}
	return ""
}

func dataNumber(data map[string]any, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

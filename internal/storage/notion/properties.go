package notion

import (
	"strings"

	"github.com/jomei/notionapi"
	"github.com/shopspring/decimal"
)

// property names as they appear in the finance databases
const (
	propName        = "Name"
	propAction      = "Action"
	propFrom        = "From"
	propTo          = "To"
	propAmount      = "Amount"
	propToAmount    = "To Amount"
	propFee         = "Fee"
	propFeeAccount  = "Fee Account"
	propTradeType   = "Type"
	propTradeSide   = "IN/OUT"
	propBase        = "Base"
	propAsset       = "Asset"
	propPrice       = "Price"
	propWin         = "Win"
	propCurrency    = "Currency"
	propUSD         = "USD"
	propCNY         = "CNY"
	propCoinID      = "id"
	propPriceUSD    = "Price(USD)"
	propPriceCNY    = "Price(CNY)"
	propHistoryDate = "Date"
)

// number returns nil when the property is missing or not a number.
func number(props notionapi.Properties, name string) *decimal.Decimal {
	var v float64
	switch p := props[name].(type) {
	case *notionapi.NumberProperty:
		if p == nil {
			return nil
		}
		v = p.Number
	case notionapi.NumberProperty:
		v = p.Number
	default:
		return nil
	}
	d := decimal.NewFromFloat(v)
	return &d
}

// optionalNumber treats a blank cell as absent. The API decodes a null number
// as 0, so an explicit zero cannot be told apart and reads as absent too.
func optionalNumber(props notionapi.Properties, name string) *decimal.Decimal {
	d := number(props, name)
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func numberOrZero(props notionapi.Properties, name string) decimal.Decimal {
	if d := number(props, name); d != nil {
		return *d
	}
	return decimal.Zero
}

// relation returns the first linked page id, empty when nothing is linked.
func relation(props notionapi.Properties, name string) string {
	var rel []notionapi.Relation
	switch p := props[name].(type) {
	case *notionapi.RelationProperty:
		if p == nil {
			return ""
		}
		rel = p.Relation
	case notionapi.RelationProperty:
		rel = p.Relation
	}
	if len(rel) == 0 {
		return ""
	}
	return string(rel[0].ID)
}

func selectName(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.SelectProperty:
		if p == nil {
			return ""
		}
		return p.Select.Name
	case notionapi.SelectProperty:
		return p.Select.Name
	}
	return ""
}

func title(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		if p == nil {
			return ""
		}
		return plainText(p.Title)
	case notionapi.TitleProperty:
		return plainText(p.Title)
	}
	return ""
}

func richText(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.RichTextProperty:
		if p == nil {
			return ""
		}
		return plainText(p.RichText)
	case notionapi.RichTextProperty:
		return plainText(p.RichText)
	}
	return ""
}

func plainText(parts []notionapi.RichText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return b.String()
}

func numberValue(d decimal.Decimal) notionapi.NumberProperty {
	return notionapi.NumberProperty{Number: d.InexactFloat64()}
}

func titleValue(s string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Title: []notionapi.RichText{{Text: &notionapi.Text{Content: s}}},
	}
}

package hybrid

import (
	"regexp"
	"strings"
)

type intentRule struct {
	intent  string
	pattern *regexp.Regexp
}

func words(alternatives ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(alternatives, "|") + `)\b`)
}

// First match wins; the order is part of the contract.
var intentRules = []intentRule{
	{IntentDemoRequest, words(`demo`, `demos`, `demonstration`, `trial`, `walkthrough`, `walk me through`, `see it in action`, `schedule a call`, `book a call`)},
	{IntentPricing, words(`price`, `prices`, `pricing`, `cost`, `costs`, `how much`, `plan`, `plans`, `subscription`, `quote`, `budget`)},
	{IntentSales, words(`sales`, `sell`, `selling`, `revenue`, `conversion`, `conversions`, `profit`, `profits`)},
	{IntentInventory, words(`inventory`, `stock`, `stocks`, `stockout`, `stockouts`, `overstock`, `warehouse`, `supply chain`, `replenishment`)},
	{IntentCustomerAnalytics, words(`customer`, `customers`, `analytics`, `insight`, `insights`, `behavior`, `behaviour`, `segmentation`, `loyalty`, `personalization`)},
	{IntentGreeting, words(`hello`, `hi`, `hey`, `greetings`, `good morning`, `good afternoon`, `good evening`)},
}

// ClassifyIntent runs the ordered keyword classifier over text.
func ClassifyIntent(text string) string {
	lower := strings.ToLower(text)
	for _, r := range intentRules {
		if r.pattern.MatchString(lower) {
			return r.intent
		}
	}
	return IntentGeneral
}

var (
	positiveWords = words(`great`, `good`, `thanks`, `thank you`, `love`, `excellent`, `happy`, `helpful`, `excited`, `interested`, `perfect`, `amazing`)
	negativeWords = words(`problem`, `problems`, `issue`, `issues`, `frustrated`, `frustrating`, `bad`, `declining`, `difficult`, `struggling`, `unfortunately`, `losing`)
)

// ClassifySentiment labels text positive, neutral or negative by keyword counts.
func ClassifySentiment(text string) string {
	lower := strings.ToLower(text)
	pos := len(positiveWords.FindAllString(lower, -1))
	neg := len(negativeWords.FindAllString(lower, -1))
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

var businessContextRules = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"sales_optimization", words(`sales`, `revenue`, `conversion`, `conversions`, `pricing optimization`)},
	{"inventory_management", words(`inventory`, `stock`, `stockouts`, `warehouse`, `demand forecasting`)},
	{"customer_analytics", words(`customer`, `customers`, `analytics`, `insights`, `segmentation`)},
}

// ClassifyBusinessContext maps text onto a retail solution area.
func ClassifyBusinessContext(text string) string {
	lower := strings.ToLower(text)
	for _, r := range businessContextRules {
		if r.pattern.MatchString(lower) {
			return r.label
		}
	}
	return "general_retail"
}

var businessKeywords = []*regexp.Regexp{
	words(`retail`), words(`sales`), words(`inventory`), words(`customer`, `customers`),
	words(`analytics`), words(`revenue`), words(`forecast`, `forecasting`), words(`optimization`, `optimize`),
	words(`insights`), words(`demand`), words(`pricing`), words(`ai`),
}

func countBusinessKeywords(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, kw := range businessKeywords {
		if kw.MatchString(lower) {
			n++
		}
	}
	return n
}

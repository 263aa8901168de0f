package responder

import "strings"

// Topic identifies a canned FAQ answer.
type Topic string

// FAQ topics in match priority order.
const (
	TopicPricing      Topic = "pricing"
	TopicDelivery     Topic = "delivery"
	TopicInstallation Topic = "installation"
	TopicUpgrade      Topic = "upgrade"
)

type keywordGroup struct {
	topic    Topic
	keywords []string
}

// faqGroups is checked in order; the first group with a matching keyword
// wins. Keywords are lower case.
var faqGroups = []keywordGroup{
	{TopicPricing, []string{
		"price", "pricing", "quote", "quotation", "cost", "how much", "budget",
		"цена", "цену", "стоимост", "сколько стоит", "прайс", "коммерческое предложение",
		"价格", "报价", "多少钱", "费用", "成本",
	}},
	{TopicDelivery, []string{
		"delivery", "lead time", "lead-time", "shipping", "ship", "how long", "when can",
		"срок", "доставк", "поставк", "отгрузк",
		"交货", "交期", "发货", "运输", "多久",
	}},
	{TopicInstallation, []string{
		"install", "commissioning", "service", "maintenance", "training", "spare part",
		"монтаж", "установк", "пусконаладк", "сервис", "обслуживан", "запчаст",
		"安装", "调试", "售后", "维修", "培训", "备件",
	}},
	{TopicUpgrade, []string{
		"upgrade", "revamp", "retrofit", "moderniz", "modernis", "refurbish",
		"модерниз", "реконструкц", "ремонт линии",
		"升级", "改造", "翻新",
	}},
}

// MatchFAQ returns the first topic whose keywords occur in text, compared
// case-insensitively.
func MatchFAQ(text string) (Topic, bool) {
	lower := strings.ToLower(text)
	for _, g := range faqGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.topic, true
			}
		}
	}
	return "", false
}

// Topics returns every FAQ topic in match priority order.
func Topics() []Topic {
	out := make([]Topic, len(faqGroups))
	for i, g := range faqGroups {
		out[i] = g.topic
	}
	return out
}

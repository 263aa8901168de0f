package responder

import "strings"

// DefaultLocale is used when a locale has no catalog entry.
const DefaultLocale = "en"

// Texts holds the localized bot messages for one locale. AskCompany is a
// format string taking the captured name.
type Texts struct {
	WelcomeOnline   string
	WelcomeOffline  string
	AskName         string
	AskCompany      string
	AskContact      string
	AskNeed         string
	Saved           string
	AlreadyRecorded string
	FAQ             map[Topic]string
}

var catalog = map[string]Texts{
	"en": {
		WelcomeOnline:   "Hello! A sales engineer is online and will reply here shortly. How can we help?",
		WelcomeOffline:  "Hello! Our engineers are away right now. Leave a message and we will collect a few details so the right specialist can get back to you.",
		AskName:         "May I have your name, please?",
		AskCompany:      "Thank you, %s. Which company do you represent?",
		AskContact:      "What is the best way to reach you? Please leave a phone number or email.",
		AskNeed:         "Briefly describe the equipment or service you need.",
		Saved:           "Thank you! Your request has been saved and our team will contact you within one business day.",
		AlreadyRecorded: "Your request is already recorded. Feel free to add anything else and we will pass it on.",
		FAQ: map[Topic]string{
			TopicPricing:      "Pricing depends on the line configuration, capacity and scope of supply. Once we have your requirements our engineers prepare a detailed quotation, usually within 3 to 5 business days.",
			TopicDelivery:     "Standard equipment ships in 60 to 90 days after the order is confirmed. Complete production lines typically take 4 to 6 months including factory acceptance testing.",
			TopicInstallation: "We provide on-site installation, commissioning and operator training. After start-up we offer remote support, scheduled maintenance and a spare parts service.",
			TopicUpgrade:      "We upgrade and revamp existing lines, including our own equipment and that of other manufacturers. A site survey lets us propose the scope and expected gains.",
		},
	},
	"ru": {
		WelcomeOnline:   "Здравствуйте! Инженер отдела продаж на связи и скоро ответит здесь. Чем можем помочь?",
		WelcomeOffline:  "Здравствуйте! Сейчас наши инженеры не в сети. Оставьте сообщение, и мы уточним несколько деталей, чтобы с вами связался нужный специалист.",
		AskName:         "Как к вам обращаться?",
		AskCompany:      "Спасибо, %s. Какую компанию вы представляете?",
		AskContact:      "Как с вами лучше связаться? Оставьте, пожалуйста, телефон или email.",
		AskNeed:         "Кратко опишите, какое оборудование или услуга вам нужны.",
		Saved:           "Спасибо! Ваша заявка сохранена, наши специалисты свяжутся с вами в течение рабочего дня.",
		AlreadyRecorded: "Ваша заявка уже записана. Вы можете добавить любые подробности, мы их передадим.",
		FAQ: map[Topic]string{
			TopicPricing:      "Стоимость зависит от комплектации линии, производительности и объема поставки. Получив ваши требования, инженеры подготовят подробное коммерческое предложение, обычно за 3-5 рабочих дней.",
			TopicDelivery:     "Стандартное оборудование отгружается через 60-90 дней после подтверждения заказа. Срок поставки полной линии обычно 4-6 месяцев с учетом заводских испытаний.",
			TopicInstallation: "Мы выполняем монтаж, пусконаладку и обучение персонала на месте. После запуска доступны удаленная поддержка, плановое обслуживание и поставка запчастей.",
			TopicUpgrade:      "Мы модернизируем действующие линии, в том числе оборудование других производителей. По итогам обследования предложим объем работ и ожидаемый эффект.",
		},
	},
	"zh": {
		WelcomeOnline:   "您好！销售工程师在线，很快会在这里回复您。请问有什么可以帮您？",
		WelcomeOffline:  "您好！我们的工程师暂时不在线。请留言，我们会收集一些信息，以便相关专家尽快与您联系。",
		AskName:         "请问您怎么称呼？",
		AskCompany:      "谢谢，%s。请问您代表哪家公司？",
		AskContact:      "请留下您的电话或邮箱，方便我们与您联系。",
		AskNeed:         "请简要描述您需要的设备或服务。",
		Saved:           "谢谢！您的需求已保存，我们的团队将在一个工作日内与您联系。",
		AlreadyRecorded: "您的需求已记录。如有补充，请继续留言，我们会一并转达。",
		FAQ: map[Topic]string{
			TopicPricing:      "价格取决于生产线配置、产能和供货范围。收到您的需求后，工程师通常会在3至5个工作日内提供详细报价。",
			TopicDelivery:     "标准设备在订单确认后60至90天发货。整条生产线通常需要4至6个月，包括工厂验收测试。",
			TopicInstallation: "我们提供现场安装、调试和操作培训。投产后提供远程支持、定期维护和备件服务。",
			TopicUpgrade:      "我们可对现有生产线进行升级改造，包括其他厂家的设备。现场考察后我们会提出改造方案和预期效果。",
		},
	},
}

// Lookup returns the resolved locale and its texts. Region subtags are
// ignored ("ru-RU" resolves to "ru"); unknown locales fall back to
// DefaultLocale.
func Lookup(locale string) (string, Texts) {
	loc := NormalizeLocale(locale)
	if t, ok := catalog[loc]; ok {
		return loc, t
	}
	return DefaultLocale, catalog[DefaultLocale]
}

// NormalizeLocale lower-cases locale and strips any region subtag.
func NormalizeLocale(locale string) string {
	loc := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(loc, "-_"); i >= 0 {
		loc = loc[:i]
	}
	return loc
}

// Supported reports whether locale has its own catalog entry.
func Supported(locale string) bool {
	_, ok := catalog[NormalizeLocale(locale)]
	return ok
}

// Welcome returns the greeting for locale, chosen by operator availability
// at mount time.
func Welcome(locale string, online bool) string {
	_, t := Lookup(locale)
	if online {
		return t.WelcomeOnline
	}
	return t.WelcomeOffline
}

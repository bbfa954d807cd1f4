package metrics

import (
	"sort"
	"strings"
)

// FieldType 描述指标字段的取值类型。
type FieldType string

const (
	TypeCount      FieldType = "integer"       // 整数 >= 0
	TypeAmount     FieldType = "float"         // 浮点 >= 0
	TypePercentage FieldType = "percentage"    // 0-100
	TypeRange      FieldType = "integer_range" // 有界整数，见 Min/Max
	TypeEntries    FieldType = "entries"       // [{date, description}]
)

// Field 是 schema 中的单个字段定义。
type Field struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
}

// Schema 描述某服务类别期望的结构化指标。
type Schema struct {
	Category string  `json:"category"`
	Kind     Kind    `json:"kind"`
	Fields   []Field `json:"fields"`
}

// FieldNames 返回字段名，顺序与定义一致。
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

func (s Schema) newPayload() Payload {
	switch s.Kind {
	case KindLinkedInOutreach:
		return &LinkedInOutreach{}
	case KindEmailOutreach:
		return &EmailOutreach{}
	case KindPaidAds:
		return &PaidAds{}
	case KindSEO:
		return &SEO{}
	case KindSocialMedia:
		return &SocialMedia{}
	default:
		return nil
	}
}

func bound(v float64) *float64 { return &v }

func count(name, label string) Field {
	return Field{Name: name, Label: label, Type: TypeCount, Required: true, Min: bound(0)}
}

func amount(name, label string) Field {
	return Field{Name: name, Label: label, Type: TypeAmount, Required: true, Min: bound(0)}
}

func percentage(name, label string) Field {
	return Field{Name: name, Label: label, Type: TypePercentage, Required: true, Min: bound(0), Max: bound(100)}
}

func entries(name, label string) Field {
	return Field{Name: name, Label: label, Type: TypeEntries}
}

var kindFields = map[Kind][]Field{
	KindLinkedInOutreach: {
		count("connections_sent", "Connections sent"),
		count("connections_accepted", "Connections accepted"),
		count("responses_received", "Responses received"),
		count("positive_responses", "Positive responses"),
		count("meetings_booked", "Meetings booked"),
		entries("meetings", "Meetings"),
	},
	KindEmailOutreach: {
		count("emails_sent", "Emails sent"),
		count("emails_opened", "Emails opened"),
		percentage("click_through_rate", "Click-through rate"),
		count("responses", "Responses"),
		count("meetings_booked", "Meetings booked"),
		entries("meetings", "Meetings"),
	},
	KindPaidAds: {
		amount("spend", "Spend"),
		count("impressions", "Impressions"),
		count("clicks", "Clicks"),
		percentage("ctr", "CTR"),
		count("conversions", "Conversions"),
		amount("cost_per_conversion", "Cost per conversion"),
		amount("roas", "ROAS"),
	},
	KindSEO: {
		count("organic_traffic", "Organic traffic"),
		count("keywords_ranked", "Keywords ranked"),
		count("backlinks", "Backlinks"),
		{Name: "domain_authority", Label: "Domain authority", Type: TypeRange, Required: true, Min: bound(1), Max: bound(100)},
		amount("avg_session_duration", "Avg. session duration (s)"),
		percentage("bounce_rate", "Bounce rate"),
		entries("keyword_rankings", "Keyword rankings"),
	},
	KindSocialMedia: {
		count("posts_published", "Posts published"),
		count("reach", "Reach"),
		count("impressions", "Impressions"),
		percentage("engagement_rate", "Engagement rate"),
		count("followers_gained", "Followers gained"),
		count("likes", "Likes"),
		count("comments", "Comments"),
		count("shares", "Shares"),
		{Name: "content_score", Label: "Content score", Type: TypeRange, Min: bound(1), Max: bound(10)},
	},
}

// categoryKinds 是服务类别标签到指标变体的唯一映射。
var categoryKinds = map[string]Kind{
	"linkedin_outreach": KindLinkedInOutreach,
	"email_outreach":    KindEmailOutreach,
	"google_ads":        KindPaidAds,
	"meta_ads":          KindPaidAds,
	"linkedin_ads":      KindPaidAds,
	"seo":               KindSEO,
	"social_media":      KindSocialMedia,
}

// SchemaFor 按类别标签精确查找 schema；未定义的类别返回 false，调用方只接收自由文本。
func SchemaFor(category string) (Schema, bool) {
	kind, ok := categoryKinds[strings.TrimSpace(category)]
	if !ok {
		return Schema{}, false
	}

	fields := kindFields[kind]
	copied := make([]Field, len(fields))
	copy(copied, fields)

	return Schema{Category: strings.TrimSpace(category), Kind: kind, Fields: copied}, true
}

// Categories 返回所有已定义 schema 的类别标签（按字母序）。
func Categories() []string {
	tags := make([]string, 0, len(categoryKinds))
	for tag := range categoryKinds {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Schemas 返回全部类别的 schema。
func Schemas() []Schema {
	tags := Categories()
	schemas := make([]Schema, 0, len(tags))
	for _, tag := range tags {
		schema, _ := SchemaFor(tag)
		schemas = append(schemas, schema)
	}
	return schemas
}

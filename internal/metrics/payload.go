package metrics

// Kind 标识指标载荷的具体变体；多个服务类别可以共享同一种变体（例如各类广告投放）。
type Kind string

const (
	KindLinkedInOutreach Kind = "linkedin_outreach"
	KindEmailOutreach    Kind = "email_outreach"
	KindPaidAds          Kind = "paid_ads"
	KindSEO              Kind = "seo"
	KindSocialMedia      Kind = "social_media"
)

// Payload 是按服务类别区分的结构化指标。
type Payload interface {
	Kind() Kind
}

// Entry 是带日期的条目，例如一次会议或一条关键词排名记录。顺序即录入顺序。
type Entry struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Description string `json:"description" validate:"required,max=500"`
}

// LinkedInOutreach LinkedIn 拓客周报指标。
type LinkedInOutreach struct {
	ConnectionsSent     *int    `json:"connections_sent" validate:"required,gte=0"`
	ConnectionsAccepted *int    `json:"connections_accepted" validate:"required,gte=0"`
	ResponsesReceived   *int    `json:"responses_received" validate:"required,gte=0"`
	PositiveResponses   *int    `json:"positive_responses" validate:"required,gte=0"`
	MeetingsBooked      *int    `json:"meetings_booked" validate:"required,gte=0"`
	Meetings            []Entry `json:"meetings" validate:"omitempty,dive"`
}

func (*LinkedInOutreach) Kind() Kind { return KindLinkedInOutreach }

// EmailOutreach 邮件拓客周报指标。
type EmailOutreach struct {
	EmailsSent       *int     `json:"emails_sent" validate:"required,gte=0"`
	EmailsOpened     *int     `json:"emails_opened" validate:"required,gte=0"`
	ClickThroughRate *float64 `json:"click_through_rate" validate:"required,gte=0,lte=100"`
	Responses        *int     `json:"responses" validate:"required,gte=0"`
	MeetingsBooked   *int     `json:"meetings_booked" validate:"required,gte=0"`
	Meetings         []Entry  `json:"meetings" validate:"omitempty,dive"`
}

func (*EmailOutreach) Kind() Kind { return KindEmailOutreach }

// PaidAds 广告投放类指标，google_ads / meta_ads / linkedin_ads 共用。
type PaidAds struct {
	Spend             *float64 `json:"spend" validate:"required,gte=0"`
	Impressions       *int     `json:"impressions" validate:"required,gte=0"`
	Clicks            *int     `json:"clicks" validate:"required,gte=0"`
	CTR               *float64 `json:"ctr" validate:"required,gte=0,lte=100"`
	Conversions       *int     `json:"conversions" validate:"required,gte=0"`
	CostPerConversion *float64 `json:"cost_per_conversion" validate:"required,gte=0"`
	ROAS              *float64 `json:"roas" validate:"required,gte=0"`
}

func (*PaidAds) Kind() Kind { return KindPaidAds }

// SEO 搜索优化类指标。
type SEO struct {
	OrganicTraffic     *int     `json:"organic_traffic" validate:"required,gte=0"`
	KeywordsRanked     *int     `json:"keywords_ranked" validate:"required,gte=0"`
	Backlinks          *int     `json:"backlinks" validate:"required,gte=0"`
	DomainAuthority    *int     `json:"domain_authority" validate:"required,gte=1,lte=100"`
	AvgSessionDuration *float64 `json:"avg_session_duration" validate:"required,gte=0"`
	BounceRate         *float64 `json:"bounce_rate" validate:"required,gte=0,lte=100"`
	KeywordRankings    []Entry  `json:"keyword_rankings" validate:"omitempty,dive"`
}

func (*SEO) Kind() Kind { return KindSEO }

// SocialMedia 社媒运营类指标。
type SocialMedia struct {
	PostsPublished  *int     `json:"posts_published" validate:"required,gte=0"`
	Reach           *int     `json:"reach" validate:"required,gte=0"`
	Impressions     *int     `json:"impressions" validate:"required,gte=0"`
	EngagementRate  *float64 `json:"engagement_rate" validate:"required,gte=0,lte=100"`
	FollowersGained *int     `json:"followers_gained" validate:"required,gte=0"`
	Likes           *int     `json:"likes" validate:"required,gte=0"`
	Comments        *int     `json:"comments" validate:"required,gte=0"`
	Shares          *int     `json:"shares" validate:"required,gte=0"`
	ContentScore    *int     `json:"content_score" validate:"omitempty,gte=1,lte=10"`
}

func (*SocialMedia) Kind() Kind { return KindSocialMedia }

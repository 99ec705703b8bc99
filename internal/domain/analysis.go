package domain

import "time"

type Sentiment struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type RatingBucket struct {
	Rating     int     `json:"rating"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type RegionStats struct {
	Region        string         `json:"region"`
	AverageRating float64        `json:"averageRating"`
	TotalReviews  int            `json:"totalReviews"`
	Distribution  []RatingBucket `json:"ratingDistribution"`
}

// TrendPoint aggregates one UTC calendar day.
type TrendPoint struct {
	Date          string  `json:"date"` // YYYY-MM-DD
	ReviewCount   int     `json:"reviewCount"`
	AverageRating float64 `json:"averageRating"`
	PositiveCount int     `json:"positiveCount"`
	NegativeCount int     `json:"negativeCount"`
}

type VersionStats struct {
	Version       string    `json:"version"`
	AverageRating float64   `json:"averageRating"`
	ReviewCount   int       `json:"reviewCount"`
	ReleaseDate   time.Time `json:"releaseDate"` // earliest review seen for the version
	PositiveCount int       `json:"positiveCount"`
	NegativeCount int       `json:"negativeCount"`
	TopIssues     []string  `json:"topIssues"`
}

type DataSourceInfo struct {
	Source           string   `json:"source"`
	Limitation       string   `json:"limitation"`
	TotalAppReviews  int64    `json:"totalAppReviews"`
	CollectedReviews int      `json:"collectedReviews"`
	RegionsCollected []string `json:"regionsCollected"`
}

type Analysis struct {
	AppInfo            AppInfo         `json:"appInfo"`
	TotalReviews       int             `json:"totalReviews"`
	AnalyzedReviews    int             `json:"analyzedReviews"`
	WordFrequency      []WordFrequency `json:"wordFrequency"`
	Sentiment          Sentiment       `json:"sentiment"`
	RatingDistribution []RatingBucket  `json:"ratingDistribution"`
	Regions            []RegionStats   `json:"regions"`
	TimeTrends         []TrendPoint    `json:"timeTrends"`
	Versions           []VersionStats  `json:"versions"`
	Reviews            []Review        `json:"reviews"`
	DataSource         DataSourceInfo  `json:"dataSourceInfo"`
}

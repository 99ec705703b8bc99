package domain

import "time"

type AppInfo struct {
	ID                        string     `json:"id"`
	Name                      string     `json:"name"`
	Developer                 string     `json:"developer"`
	Rating                    float64    `json:"rating"`
	RatingCount               int64      `json:"ratingCount"`
	LogoURL                   string     `json:"logoUrl,omitempty"`
	FileSizeBytes             int64      `json:"fileSizeBytes"`
	FileSizeMB                float64    `json:"fileSizeMB"`
	ReleaseDate               *time.Time `json:"releaseDate,omitempty"`
	CurrentVersionReleaseDate *time.Time `json:"currentVersionReleaseDate,omitempty"`
	DaysOnStore               int        `json:"daysOnStore"`
	TimeOnStore               string     `json:"timeOnStore"` // "2y 3m 4d"
	RawJSON                   []byte     `json:"-"`           // full lookup payload
}

// AppRef is an app as addressed by a store URL.
type AppRef struct {
	AppID  string
	Region string // lower-case, as it appears in the URL
}

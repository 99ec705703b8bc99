package domain

type WordFrequency struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordPosition is a placed word; X/Y are the top-left corner in pixels.
type WordPosition struct {
	Word     string  `json:"word"`
	Count    int     `json:"count"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"fontSize"`
	Color    string  `json:"color"`
}

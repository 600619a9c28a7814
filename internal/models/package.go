package models

// PackageSummary is the read-only package data owned by the remote API.
// The portal treats it as immutable within a session.
type PackageSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Location     string   `json:"location"`
	Price        float64  `json:"price"`
	Duration     int      `json:"duration"`
	Highlights   []string `json:"highlights,omitempty"`
	ItineraryPDF string   `json:"itineraryPdf,omitempty"`
	CoverImage   string   `json:"coverImage,omitempty"`
}

// Destination is a browsable destination entry from the remote API.
type Destination struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Country  string `json:"country,omitempty"`
	Image    string `json:"image,omitempty"`
	Packages int    `json:"packages,omitempty"`
}

package models

import (
	"fmt"
	"strings"
)

// Platform identifies one of the supported storefronts.
type Platform string

const (
	PlatformZepto     Platform = "Zepto"
	PlatformBlinkit   Platform = "Blinkit"
	PlatformInstamart Platform = "Instamart"
)

// ParsePlatform accepts the lowercase CLI/env spelling of a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zepto":
		return PlatformZepto, nil
	case "blinkit":
		return PlatformBlinkit, nil
	case "instamart":
		return PlatformInstamart, nil
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Prefix is the collection-name prefix used by the platform's writer.
// Zepto writes to the bare normalized term.
func (p Platform) Prefix() string {
	switch p {
	case PlatformBlinkit:
		return "blinkit"
	case PlatformInstamart:
		return "instamart"
	}
	return ""
}

// Record is one scraped product row. Records are immutable once produced;
// every field except RawText may be empty.
type Record struct {
	SearchTerm  string   `json:"search_term" bson:"search_term"`
	ProductName string   `json:"product_name" bson:"product_name"`
	Price       string   `json:"price" bson:"price"`
	Quantity    string   `json:"quantity" bson:"quantity"`
	Platform    Platform `json:"platform" bson:"platform"`
	Location    string   `json:"location" bson:"location"`
	URL         *string  `json:"url" bson:"url"`
	ImageURL    *string  `json:"image_url,omitempty" bson:"image_url,omitempty"`
	RawText     string   `json:"raw_text" bson:"raw_text"`
}

// StorageLocation identifies where a platform+term's records live.
type StorageLocation struct {
	URI        string
	Database   string
	Collection string
}

// Key is the process-wide memo key for index creation.
func (l StorageLocation) Key() string {
	return l.URI + "." + l.Database + "." + l.Collection
}

package models

import "go.mongodb.org/mongo-driver/v2/bson"

type Banner struct {
	ID       bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Title    string        `json:"title" bson:"title"`
	Subtitle string        `json:"subtitle" bson:"subtitle"`
	Image    string        `json:"image" bson:"image"`
	IsActive bool          `json:"is_active" bson:"is_active"`
	Order    int           `json:"order" bson:"order"`
}

// CompanyConfig holds the shop's public contact details. WhatsApp is the
// number checkout messages are sent to.
type CompanyConfig struct {
	Name              string `json:"name" bson:"name"`
	WhatsApp          string `json:"whatsapp" bson:"whatsapp"`
	Instagram         string `json:"instagram" bson:"instagram"`
	Address           string `json:"address,omitempty" bson:"address,omitempty"`
	MapIframe         string `json:"map_iframe,omitempty" bson:"map_iframe,omitempty"`
	FacebookPixelID   string `json:"facebook_pixel_id,omitempty" bson:"facebook_pixel_id,omitempty"`
	GoogleAnalyticsID string `json:"google_analytics_id,omitempty" bson:"google_analytics_id,omitempty"`
}

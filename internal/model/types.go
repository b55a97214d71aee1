package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONB column helpers. All of these marshal to a JSON document on write and
// scan from []byte/string on read; a NULL column scans to the zero value.

type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text"`
}

type ImageList []Image

func (l ImageList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *ImageList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// URLs returns the image URLs in list order.
func (l ImageList) URLs() []string {
	urls := make([]string, 0, len(l))
	for _, img := range l {
		urls = append(urls, img.URL)
	}
	return urls
}

// PriceEntry is a per-location price for a variant.
type PriceEntry struct {
	LocationID string  `json:"location_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

type PriceList []PriceEntry

func (l PriceList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *PriceList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported type %T for JSONB scan", src)
	}
}

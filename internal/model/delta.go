package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrImmutableField is returned when a delta tries to reassign a variant to a
// different product.
var ErrImmutableField = errors.New("variant product reference is immutable")

// reserved fields are never writable through a delta.
var reservedVariantFields = map[string]bool{
	"id":          true,
	"merchant_id": true,
	"created_at":  true,
	"updated_at":  true,
}

// ApplyVariantDelta merges a field->value delta onto the variant's current
// state. A JSON null unsets the field (nullable columns go to NULL, attribute
// keys are removed); an omitted field is left untouched. Unknown keys land in
// Attributes so arbitrary business fields survive round trips.
func ApplyVariantDelta(v *ProductVariant, changes JSONMap) error {
	for key, raw := range changes {
		switch key {
		case "product", "product_id":
			return ErrImmutableField
		case "name":
			s, err := deltaString(key, raw)
			if err != nil {
				return err
			}
			v.Name = s
		case "unit":
			s, err := deltaString(key, raw)
			if err != nil {
				return err
			}
			v.Unit = s
		case "sku":
			p, err := deltaStringPtr(key, raw)
			if err != nil {
				return err
			}
			v.SKU = p
		case "barcode":
			p, err := deltaStringPtr(key, raw)
			if err != nil {
				return err
			}
			v.Barcode = p
		case "weight":
			if raw == nil {
				v.Weight = nil
				break
			}
			f, ok := raw.(float64)
			if !ok {
				return fmt.Errorf("field %q: expected number, got %T", key, raw)
			}
			w := f
			v.Weight = &w
		case "prices":
			if raw == nil {
				v.Prices = nil
				break
			}
			var prices PriceList
			if err := remarshal(key, raw, &prices); err != nil {
				return err
			}
			v.Prices = prices
		case "images":
			if raw == nil {
				v.Images = nil
				break
			}
			var images ImageList
			if err := remarshal(key, raw, &images); err != nil {
				return err
			}
			v.Images = images
		case "attributes":
			if raw == nil {
				v.Attributes = nil
				break
			}
			attrs, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("field %q: expected object, got %T", key, raw)
			}
			mergeAttributes(v, attrs)
		default:
			if reservedVariantFields[key] {
				continue
			}
			mergeAttributes(v, map[string]interface{}{key: raw})
		}
	}
	return nil
}

// ApplyProductDelta merges a partial product delta. Products have a closed
// field set, so unknown keys are errors rather than attribute spills. Images
// never travel through deltas; they go through the media lifecycle lists.
func ApplyProductDelta(p *Product, changes JSONMap) error {
	for key, raw := range changes {
		switch key {
		case "name":
			s, err := deltaString(key, raw)
			if err != nil {
				return err
			}
			p.Name = s
		case "brand":
			ptr, err := deltaStringPtr(key, raw)
			if err != nil {
				return err
			}
			p.Brand = ptr
		case "description":
			ptr, err := deltaStringPtr(key, raw)
			if err != nil {
				return err
			}
			p.Description = ptr
		case "category", "category_id":
			ptr, err := deltaStringPtr(key, raw)
			if err != nil {
				return err
			}
			p.CategoryID = ptr
		case "tags":
			if raw == nil {
				p.Tags = nil
				break
			}
			var tags StringList
			if err := remarshal(key, raw, &tags); err != nil {
				return err
			}
			p.Tags = tags
		default:
			if reservedVariantFields[key] || key == "images" {
				continue
			}
			return fmt.Errorf("unknown product field %q", key)
		}
	}
	return nil
}

func mergeAttributes(v *ProductVariant, attrs map[string]interface{}) {
	if v.Attributes == nil {
		v.Attributes = JSONMap{}
	}
	for k, val := range attrs {
		if val == nil {
			delete(v.Attributes, k)
			continue
		}
		v.Attributes[k] = val
	}
}

func deltaString(key string, raw interface{}) (string, error) {
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, raw)
	}
	return s, nil
}

func deltaStringPtr(key string, raw interface{}) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("field %q: expected string or null, got %T", key, raw)
	}
	return &s, nil
}

// remarshal converts a decoded JSON value into a typed structure.
func remarshal(key string, raw, dst interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

// Package domain defines the core data types shared across the PDP pipeline.
package domain

import "errors"

// ErrInvalidProduct is returned when product input fails basic validation.
var ErrInvalidProduct = errors.New("invalid product data")

// ProductData is the immutable product input to the generation pipeline.
// Optional attributes are pointers so that "absent" is distinct from the
// zero value.
type ProductData struct {
	Handle      string     `json:"handle"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Price       *float64   `json:"price,omitempty"`
	Brand       *string    `json:"brand,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Images      []string   `json:"images,omitempty"`
	Features    []string   `json:"features,omitempty"`
	Metafields  Metafields `json:"metafields,omitempty"`
}

// Validate checks the required ProductData fields.
func (p *ProductData) Validate() error {
	if p.Handle == "" {
		return errors.Join(ErrInvalidProduct, errors.New("handle is required"))
	}

	if p.Title == "" {
		return errors.Join(ErrInvalidProduct, errors.New("title is required"))
	}

	if p.Price != nil && *p.Price <= 0 {
		return errors.Join(ErrInvalidProduct, errors.New("price must be positive when set"))
	}

	return nil
}

// StringPtr returns a pointer to s. Convenience for building optional fields.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }

package catalogmodule

import "fmt"

// BannerCreateRequest is the create-API payload for a banner. The
// image field is a single hosted URL. Link and Badge are genuinely
// optional: a pointer keeps "absent" distinct from "empty string" on
// the wire.
type BannerCreateRequest struct {
	Title    string  `json:"title"`
	ImageURL string  `json:"image_url"`
	Link     *string `json:"link,omitempty"`
	Badge    *string `json:"badge,omitempty"`
}

// ProductCreateRequest is the create-API payload for a product. Images
// carry the hosted URLs in the order the admin queued them.
type ProductCreateRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	Tag         *string  `json:"tag,omitempty"`
}

// BundleCreateRequest is the create-API payload for a bundle: one
// hosted URL for the bundle image plus the per-product image URLs of
// the bundled products, passed through unchanged.
type BundleCreateRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Price            string   `json:"price"`
	ImageURL         string   `json:"image_url"`
	ProductImageURLs []string `json:"product_image_urls"`
	Tag              *string  `json:"tag,omitempty"`
}

// CreateError reports a failed create-API call. The images referenced
// by the payload are already hosted at this point; the caller decides
// whether to flag them as orphaned.
type CreateError struct {
	Entity     string
	StatusCode int
	Err        error
}

func (e *CreateError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to create %s (status %d): %v", e.Entity, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("failed to create %s: %v", e.Entity, e.Err)
}

func (e *CreateError) Unwrap() error {
	return e.Err
}

// optional converts a form value to a pointer, mapping the empty string
// to absent
func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

package catalog

import (
	"strings"
)

// Product is one record of the catalog file. The file is the single source
// of truth for purchasable products; there is no product table in the DB.
type Product struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImagePath   string  `json:"image_path"`
}

// ProductInput is the validated boundary type for create/update. Raw form
// fields are converted into it once, by the HTTP layer.
type ProductInput struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImagePath   string  `json:"image_path"`
}

// validate collects every problem instead of stopping at the first, so the
// admin form can show them all at once.
func (in *ProductInput) validate() []string {
	var problems []string
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "product name is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		problems = append(problems, "product description is required")
	}
	if in.Price <= 0 {
		problems = append(problems, "price must be greater than zero")
	}
	if strings.TrimSpace(in.ImagePath) == "" {
		problems = append(problems, "image path is required")
	}
	return problems
}

func (in *ProductInput) normalizedImagePath() string {
	p := strings.TrimSpace(in.ImagePath)
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

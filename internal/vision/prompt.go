package vision

import "github.com/furnicon/furnicon/internal/providers"

// buildAnalysisPrompt returns the fixed instruction sent with every product photo
func buildAnalysisPrompt() string {
	return `You are an experienced furniture and home goods merchandiser writing listings for an e-commerce catalog.

Your task is to analyze the product photo provided and describe the product for a catalog database.

INSTRUCTIONS:
1. Identify the kind of product (e.g. "Armchair", "Dining Table", "Floor Lamp")
2. Identify the primary material, the dominant color and the design style
3. Write marketing copy of roughly 30 words
4. Suggest 5 short search tags
5. List the technical specifications you can determine from the photo (for example material,
   finish, number of seats, leg style, upholstery). Choose whichever labels fit this product.
6. Estimate a retail price in US dollars

OUTPUT FORMAT:
Respond with ONLY a JSON object in the following format:

{
  "category": "Armchair",
  "title": "Short product title",
  "description": "Marketing copy, about 30 words",
  "material": "Velvet",
  "color": "Red",
  "style": "Mid-century",
  "tags": ["tag1", "tag2", "tag3", "tag4", "tag5"],
  "specifications": [{"name": "Upholstery", "value": "Velvet"}],
  "price_estimate": 349.0
}

Do not invent details that cannot be seen in the photo. Leave a field empty rather than guessing.`
}

// analysisSchema constrains the JSON answer for providers that support response schemas.
// Specifications are name/value pairs because schemas cannot describe open-ended maps.
func analysisSchema() *providers.Schema {
	str := func() *providers.Schema { return &providers.Schema{Type: "string"} }
	return &providers.Schema{
		Type: "object",
		Properties: map[string]*providers.Schema{
			"category":    str(),
			"title":       str(),
			"description": str(),
			"material":    str(),
			"color":       str(),
			"style":       str(),
			"tags": {
				Type:  "array",
				Items: str(),
			},
			"specifications": {
				Type: "array",
				Items: &providers.Schema{
					Type: "object",
					Properties: map[string]*providers.Schema{
						"name":  str(),
						"value": str(),
					},
					Required: []string{"name", "value"},
				},
			},
			"price_estimate": {Type: "number"},
		},
		Required: []string{"category", "description", "specifications"},
	}
}

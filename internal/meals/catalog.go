package meals

import (
	"path/filepath"
	"strings"
)

// Category groups preset meal descriptions for the UI picker.
type Category struct {
	Name  string   `json:"name"`
	Meals []string `json:"meals"`
}

var catalog = []Category{
	{
		Name: "Main Course",
		Meals: []string{
			"Chicken curry with steamed rice",
			"Spaghetti Bolognese with garlic bread",
			"Fish fingers with chips and peas",
			"Roast chicken with roast potatoes and gravy",
			"Beef lasagne with salad",
			"Vegetable stir fry with noodles",
			"Shepherd's pie with green beans",
			"Macaroni cheese with sweetcorn",
		},
	},
	{
		Name: "Light Meals",
		Meals: []string{
			"Ham and cheese sandwich on wholemeal bread",
			"Jacket potato with baked beans and cheese",
			"Cheese and tomato pizza slice",
			"Chicken wrap with lettuce and mayo",
			"Tuna pasta salad",
			"Vegetable soup with crusty bread roll",
		},
	},
	{
		Name: "Desserts",
		Meals: []string{
			"Chocolate sponge cake with custard",
			"Fresh fruit salad with yoghurt",
			"Apple crumble with custard",
			"Rice pudding with jam",
			"Strawberry jelly with ice cream",
			"Flapjack bar",
			"Carrot cake slice",
		},
	},
	{
		Name: "Sides & Drinks",
		Meals: []string{
			"Garden salad with dressing",
			"Steamed broccoli and carrots",
			"Fresh orange juice",
			"Fruit smoothie",
			"Coleslaw",
			"Garlic bread slice",
		},
	},
}

// Catalog returns the preset meal categories in display order.
func Catalog() []Category {
	out := make([]Category, len(catalog))
	for i, c := range catalog {
		meals := make([]string, len(c.Meals))
		copy(meals, c.Meals)
		out[i] = Category{Name: c.Name, Meals: meals}
	}
	return out
}

// DescribeReference derives a short reference-image description from an
// uploaded file name: extension stripped, separators turned into spaces.
// Returns "" when nothing usable remains.
func DescribeReference(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "food item resembling " + name
}

package category

// Category is one entry of the closed expense-category enumeration.
// Keys are stable storage values; labels and icons are for display.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

var categories = []Category{
	{Key: "groceries", Label: "Groceries", Icon: "shopping-cart"},
	{Key: "rent", Label: "Rent", Icon: "house"},
	{Key: "utilities", Label: "Utilities", Icon: "lightbulb"},
	{Key: "transportation", Label: "Transportation", Icon: "car"},
	{Key: "entertainment", Label: "Entertainment", Icon: "film-strip"},
	{Key: "dining", Label: "Dining", Icon: "fork-knife"},
	{Key: "health", Label: "Health", Icon: "heart"},
	{Key: "insurance", Label: "Insurance", Icon: "shield-check"},
	{Key: "savings", Label: "Savings", Icon: "piggy-bank"},
	{Key: "clothing", Label: "Clothing", Icon: "t-shirt"},
	{Key: "personal", Label: "Personal", Icon: "user"},
	{Key: "others", Label: "Others", Icon: "dots-three-outline"},
}

var byKey = func() map[string]Category {
	m := make(map[string]Category, len(categories))
	for _, c := range categories {
		m[c.Key] = c
	}

	return m
}()

// Valid reports whether key is a known expense category.
func Valid(key string) bool {
	_, ok := byKey[key]
	return ok
}

// Get returns the category for key.
func Get(key string) (Category, bool) {
	c, ok := byKey[key]
	return c, ok
}

// All returns the enumeration in display order.
func All() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)

	return out
}

package domain

type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

type Drink struct {
	ID     int64
	Title  string
	Recipe []Ingredient
}

// LongView is the full JSON projection of a drink, ingredient names included.
type LongView struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// ShortView omits ingredient names.
type ShortView struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

func (d Drink) Long() LongView {
	recipe := make([]Ingredient, len(d.Recipe))
	copy(recipe, d.Recipe)
	return LongView{
		ID:     d.ID,
		Title:  d.Title,
		Recipe: recipe,
	}
}

func (d Drink) Short() ShortView {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, ing := range d.Recipe {
		recipe = append(recipe, ShortIngredient{
			Color: ing.Color,
			Parts: ing.Parts,
		})
	}
	return ShortView{
		ID:     d.ID,
		Title:  d.Title,
		Recipe: recipe,
	}
}

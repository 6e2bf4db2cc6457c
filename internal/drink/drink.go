// Package drink models the coffee-shop menu: drinks made of coloured
// ingredient layers, stored in a single `drink` table.
//
// Two projections exist.  Short is public and hides ingredient names, so the
// menu shows only the colours and proportions of each layer.  Long is the full
// recipe and is reserved for callers holding the `get:drinks-detail`
// permission.
package drink

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotFound       = errors.New("drink not found")
	ErrDuplicateTitle = errors.New("drink title already exists")
	ErrInvalid        = errors.New("invalid drink")
)

// Ingredient is one layer of a drink.
type Ingredient struct {
	Name  string `json:"name"  validate:"required"`
	Color string `json:"color" validate:"required"`
	Parts int    `json:"parts" validate:"gt=0"`
}

// Drink is the stored aggregate.
type Drink struct {
	ID     int64
	Title  string
	Recipe []Ingredient
}

// ShortIngredient is an Ingredient without its name.
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Short is the public menu representation.
type Short struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// Long is the full representation.
type Long struct {
	ID     int64        `json:"id"`
	Title  string       `json:"title"`
	Recipe []Ingredient `json:"recipe"`
}

func (d Drink) Short() Short {
	r := make([]ShortIngredient, len(d.Recipe))
	for i, in := range d.Recipe {
		r[i] = ShortIngredient{Color: in.Color, Parts: in.Parts}
	}
	return Short{ID: d.ID, Title: d.Title, Recipe: r}
}

func (d Drink) Long() Long {
	r := make([]Ingredient, len(d.Recipe))
	copy(r, d.Recipe)
	return Long{ID: d.ID, Title: d.Title, Recipe: r}
}

// Input is the body of a create request.
type Input struct {
	Title  string       `json:"title"  validate:"required,max=80"`
	Recipe []Ingredient `json:"recipe" validate:"required,min=1,dive"`
}

// Patch is the body of an update request.  Nil fields are left unchanged.
type Patch struct {
	Title  *string       `json:"title"  validate:"omitempty,min=1,max=80"`
	Recipe *[]Ingredient `json:"recipe" validate:"omitempty,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports ErrInvalid wrapping the first rule violation.
func (in Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	return nil
}

func (p Patch) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalid, err)
	}
	return nil
}

// UnmarshalRecipe accepts either a JSON array of ingredients or a single
// ingredient object, which older clients send for one-layer drinks.
func UnmarshalRecipe(raw []byte) ([]Ingredient, error) {
	var many []Ingredient
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one Ingredient
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []Ingredient{one}, nil
}

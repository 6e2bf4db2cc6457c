package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/drinks/internal/drink"
	"github.com/yanizio/drinks/internal/metrics"
)

type drinksBody[T any] struct {
	Success bool `json:"success"`
	Drinks  []T  `json:"drinks"`
}

func (a *api) listDrinks(w http.ResponseWriter, r *http.Request) {
	ds, err := a.store.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	metrics.Drinks.Set(float64(len(ds)))

	out := make([]drink.Short, len(ds))
	for i, d := range ds {
		out[i] = d.Short()
	}
	writeJSON(w, http.StatusOK, drinksBody[drink.Short]{Success: true, Drinks: out})
}

func (a *api) listDrinksDetail(w http.ResponseWriter, r *http.Request) {
	ds, err := a.store.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	out := make([]drink.Long, len(ds))
	for i, d := range ds {
		out[i] = d.Long()
	}
	writeJSON(w, http.StatusOK, drinksBody[drink.Long]{Success: true, Drinks: out})
}

// createBody accepts the recipe as an array or a single object.
type createBody struct {
	Title  string          `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

func (a *api) createDrink(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}
	in := drink.Input{Title: body.Title}
	if len(body.Recipe) > 0 {
		recipe, err := drink.UnmarshalRecipe(body.Recipe)
		if err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		in.Recipe = recipe
	}

	d, err := a.store.Create(r.Context(), in)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.log.Infow("drink created", "id", d.ID, "title", d.Title)
	writeJSON(w, http.StatusOK, drinksBody[drink.Long]{Success: true, Drinks: []drink.Long{d.Long()}})
}

type patchBody struct {
	Title  *string         `json:"title"`
	Recipe json.RawMessage `json:"recipe"`
}

func (a *api) updateDrink(w http.ResponseWriter, r *http.Request) {
	id, ok := drinkID(r)
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}

	var body patchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest)
		return
	}
	p := drink.Patch{Title: body.Title}
	if len(body.Recipe) > 0 && string(body.Recipe) != "null" {
		recipe, err := drink.UnmarshalRecipe(body.Recipe)
		if err != nil {
			writeError(w, http.StatusBadRequest)
			return
		}
		p.Recipe = &recipe
	}

	d, err := a.store.Update(r.Context(), id, p)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.log.Infow("drink updated", "id", d.ID)
	writeJSON(w, http.StatusOK, drinksBody[drink.Long]{Success: true, Drinks: []drink.Long{d.Long()}})
}

func (a *api) deleteDrink(w http.ResponseWriter, r *http.Request) {
	id, ok := drinkID(r)
	if !ok {
		writeError(w, http.StatusNotFound)
		return
	}
	if err := a.store.Delete(r.Context(), id); err != nil {
		a.fail(w, err)
		return
	}
	a.log.Infow("drink deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "delete": id})
}

// fail maps store errors onto the envelope.
func (a *api) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, drink.ErrNotFound):
		writeError(w, http.StatusNotFound)
	case errors.Is(err, drink.ErrDuplicateTitle), errors.Is(err, drink.ErrInvalid):
		writeError(w, http.StatusUnprocessableEntity)
	default:
		a.log.Errorw("drink store", "err", err)
		writeError(w, http.StatusInternalServerError)
	}
}

func drinkID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

package db

import (
	"context"
	"encoding/json"
	"errors"

	"barista/internal/domain"

	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

type DrinkRepository struct {
	db *gorm.DB
}

func NewDrinkRepository(db *gorm.DB) *DrinkRepository {
	return &DrinkRepository{db: db}
}

// Create persists the drink and fills in its store-assigned id.
func (r *DrinkRepository) Create(ctx context.Context, drink *domain.Drink) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := modelFromDrink(*drink)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	drink.ID = model.ID
	return nil
}

func (r *DrinkRepository) List(ctx context.Context) ([]domain.Drink, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []DrinkModel
	err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Drink, 0, len(models))
	for _, model := range models {
		drink, err := drinkFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, drink)
	}
	return out, nil
}

func (r *DrinkRepository) GetByID(ctx context.Context, id int64) (*domain.Drink, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DrinkModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	drink, err := drinkFromModel(model)
	if err != nil {
		return nil, err
	}
	return &drink, nil
}

// Update rewrites title and recipe of an existing drink in one statement.
func (r *DrinkRepository) Update(ctx context.Context, drink domain.Drink) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := modelFromDrink(drink)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&DrinkModel{}).
		Where("id = ?", drink.ID).
		Updates(map[string]any{
			"title":  model.Title,
			"recipe": model.RecipeJSON,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DrinkRepository) Delete(ctx context.Context, id int64) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).Delete(&DrinkModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func modelFromDrink(drink domain.Drink) (DrinkModel, error) {
	recipe, err := json.Marshal(drink.Recipe)
	if err != nil {
		return DrinkModel{}, err
	}
	return DrinkModel{
		ID:         drink.ID,
		Title:      drink.Title,
		RecipeJSON: recipe,
	}, nil
}

func drinkFromModel(model DrinkModel) (domain.Drink, error) {
	var recipe []domain.Ingredient
	if len(model.RecipeJSON) > 0 {
		if err := json.Unmarshal(model.RecipeJSON, &recipe); err != nil {
			// A malformed stored recipe is never surfaced to callers.
			return domain.Drink{}, err
		}
	}
	return domain.Drink{
		ID:     model.ID,
		Title:  model.Title,
		Recipe: recipe,
	}, nil
}

package db

type DrinkModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Title      string `gorm:"uniqueIndex;not null"`
	RecipeJSON []byte `gorm:"column:recipe;not null"`
}

func (DrinkModel) TableName() string {
	return "drinks"
}

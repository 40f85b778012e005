package domain

// Category is a static label record
type Category struct {
	ID   int64  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name string `gorm:"size:200" json:"name"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "category"
}

// DefaultCategories returns the categories seeded at start
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: "Category 1"},
		{ID: 2, Name: "Category 2"},
		{ID: 3, Name: "Category 3"},
	}
}

package entity

// Category represents a food category for data transfer between layers.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Storage is a place products are kept (pantry, fridge, freezer).
type Storage struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

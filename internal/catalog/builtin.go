package catalog

import "github.com/ytget/phin/internal/model"

// builtinEntries is the hand-curated list of recordings the fetch command
// downloads when no other catalog is given.
var builtinEntries = []model.VideoEntry{
	// basics
	{ID: "Xq3tV8mKp2E", Category: model.CategoryBasics, Title: "Phin Lesson 1 - Holding and Tuning the Phin"},
	{ID: "b7RwL1nJd0Q", Category: model.CategoryBasics, Title: "Phin Lesson 2 - Basic Picking Pattern"},
	{ID: "kP4zH9sYv6A", Category: model.CategoryBasics, Title: "Phin Lesson 3 - Left Hand Positions"},
	{ID: "T2mWc5eQx8N", Category: model.CategoryBasics, Title: "Tuning Lai Yai and Lai Noi"},

	// lam_perlin
	{ID: "r9FhU3aLk1Z", Category: model.CategoryLamPerlin, Title: "Lai Lam Perlin - Traditional Phin Solo"},
	{ID: "G6vJx0pTn4S", Category: model.CategoryLamPerlin, Title: "Lai Lam Perlin Slow Practice Tempo"},
	{ID: "nE8yQ2dMb5W", Category: model.CategoryLamPerlin, Title: "Lam Perlin Phin and Khaen Duet"},

	// hae
	{ID: "Hc1sK7wRz3Y", Category: model.CategoryHae, Title: "Lai Hae Bang Fai"},
	{ID: "uL5gD9tXo2M", Category: model.CategoryHae, Title: "Lai Toei Khong Procession"},
	{ID: "pZ0aN6cVh8J", Category: model.CategoryHae, Title: "Lai Hae Phin Festival Parade"},

	// mahoree
	{ID: "W4jB8fYs1Kq", Category: model.CategoryMahoree, Title: "Lai Mahoree Isan"},
	{ID: "e3XmR7uLp9C", Category: model.CategoryMahoree, Title: "Phin Mahoree Ensemble Performance"},

	// techniques
	{ID: "Q8dT2kVn6Hs", Category: model.CategoryTechniques, Title: "Phin Tremolo Technique"},
	{ID: "y1OcF5bWm7R", Category: model.CategoryTechniques, Title: "Phin Hammer-on and Pull-off"},
	{ID: "M6hS0zJq4Lt", Category: model.CategoryTechniques, Title: "Phin Drone String Technique"},
	{ID: "a2VuE9gKx3D", Category: model.CategoryTechniques, Title: "Lai Maeng Phu Tom Dok Mai Fingering"},

	// covers
	{ID: "J7nP3rYt0Bw", Category: model.CategoryCovers, Title: "Phin Cover - Sao Ubon Ror Rak"},
	{ID: "f5KxW1qHs8G", Category: model.CategoryCovers, Title: "Phin Cover - Lam Phloen Chom Thung"},
	{ID: "D0zL4mCv2Ne", Category: model.CategoryCovers, Title: "Phin Cover - Isan Pop Medley"},
}

// Builtin returns the built-in catalog.
func Builtin() *Catalog {
	return New(builtinEntries)
}

package recipe

import "errors"

// Domain errors for recipe and revision operations

var (
	// Decoding errors
	ErrInvalidRecipe      = errors.New("recipe must be a JSON object")
	ErrInvalidIngredients = errors.New("ingredients must be a list of strings or a list of ingredient groups")

	// Revision errors
	ErrRevisionNotFound = errors.New("revision not found")
	ErrRecipeNotFound   = errors.New("recipe not found")
	ErrRecipeArchived   = errors.New("cannot modify archived recipe")
	ErrMissingRecipe    = errors.New("revision requires a recipe")
	ErrMissingOwner     = errors.New("revision requires an owner")
	ErrInvalidRecipeID  = errors.New("invalid recipe ID format")

	// Permission errors
	ErrNotRecipeOwner = errors.New("only recipe owner can perform this action")
)

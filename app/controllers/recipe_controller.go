package controllers

import (
	"github.com/andrefurlan/adega/app/models"
	"github.com/andrefurlan/adega/app/repository"
	"github.com/andrefurlan/adega/internal/pkg/billing"
	"github.com/andrefurlan/adega/internal/pkg/database"
	"github.com/andrefurlan/adega/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleRecipeList returns recipes. Premium recipes appear in the listing
// for everyone but are reduced to title and summary for users without an
// active subscription.
func HandleRecipeList(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetRecipeRepository()

	offset, limit := parsePagination(c)
	recipes, err := repo.List(offset, limit)
	if err != nil {
		log.Errorf("recipe list failed: %v", err)
		return internalError(c, "could not list recipes")
	}

	entitled, err := hasPremiumAccess(c, user.UserID)
	if err != nil {
		return internalError(c, "could not check subscription")
	}
	for i := range recipes {
		if recipes[i].IsPremium && !entitled {
			recipes[i].Ingredients = ""
			recipes[i].Instructions = ""
		}
	}

	total, _ := repo.Count()
	return c.JSON(fiber.Map{"recipes": recipes, "total": total})
}

// HandleRecipeGet returns one recipe. Premium content requires an active
// subscription.
func HandleRecipeGet(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	recipe, err := repository.GetGlobalFactory().GetRecipeRepository().GetByID(id)
	if err != nil {
		return notFound(c, "recipe not found")
	}

	if recipe.IsPremium && recipe.UserID != user.UserID {
		entitled, err := hasPremiumAccess(c, user.UserID)
		if err != nil {
			return internalError(c, "could not check subscription")
		}
		if !entitled {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "premium_required",
				"message": "an active subscription is required for this recipe",
			})
		}
	}
	return c.JSON(recipe)
}

// HandleRecipeCreate stores a new recipe owned by the caller.
func HandleRecipeCreate(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var recipe models.Recipe
	if err := c.BodyParser(&recipe); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	recipe.ID = 0
	recipe.UserID = user.UserID
	if err := recipe.Validate(); err != nil {
		return badRequest(c, err.Error())
	}
	if recipe.WineID != nil {
		if _, err := repository.GetGlobalFactory().GetWineRepository().GetByID(*recipe.WineID); err != nil {
			return badRequest(c, "linked wine does not exist")
		}
	}

	if err := repository.GetGlobalFactory().GetRecipeRepository().Create(&recipe); err != nil {
		log.Errorf("recipe create failed: %v", err)
		return internalError(c, "could not create recipe")
	}
	return c.Status(fiber.StatusCreated).JSON(recipe)
}

// HandleRecipeUpdate overwrites an existing recipe. Only the owner or an
// admin may modify it.
func HandleRecipeUpdate(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	repo := repository.GetGlobalFactory().GetRecipeRepository()
	recipe, err := repo.GetByID(id)
	if err != nil {
		return notFound(c, "recipe not found")
	}
	if recipe.UserID != user.UserID && !user.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "not your recipe"})
	}

	var in models.Recipe
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	recipe.WineID = in.WineID
	recipe.Title = in.Title
	recipe.Summary = in.Summary
	recipe.Ingredients = in.Ingredients
	recipe.Instructions = in.Instructions
	recipe.IsPremium = in.IsPremium
	if err := recipe.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := repo.Update(recipe); err != nil {
		log.Errorf("recipe update failed: %v", err)
		return internalError(c, "could not update recipe")
	}
	return c.JSON(recipe)
}

// HandleRecipeDelete removes a recipe (soft delete).
func HandleRecipeDelete(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid recipe id")
	}

	repo := repository.GetGlobalFactory().GetRecipeRepository()
	recipe, err := repo.GetByID(id)
	if err != nil {
		return notFound(c, "recipe not found")
	}
	if recipe.UserID != user.UserID && !user.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "not your recipe"})
	}
	if err := repo.Delete(id); err != nil {
		log.Errorf("recipe delete failed: %v", err)
		return internalError(c, "could not delete recipe")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// hasPremiumAccess checks the caller's entitlement, recomputed on every
// request.
func hasPremiumAccess(c *fiber.Ctx, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	entitled, err := billing.NewEntitlements(billing.NewRepository(database.GetDB())).
		HasActiveSubscription(c.Context(), userID)
	if err != nil {
		log.Errorf("entitlement check for user %d failed: %v", userID, err)
		return false, err
	}
	return entitled, nil
}

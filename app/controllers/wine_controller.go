package controllers

import (
	"github.com/andrefurlan/adega/app/models"
	"github.com/andrefurlan/adega/app/repository"
	"github.com/andrefurlan/adega/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// HandleWineList returns the user's wine evaluations, optionally filtered
// by a search query.
func HandleWineList(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetWineRepository()

	if query := c.Query("q"); query != "" {
		wines, err := repo.Search(user.UserID, query)
		if err != nil {
			log.Errorf("wine search failed: %v", err)
			return internalError(c, "search failed")
		}
		return c.JSON(fiber.Map{"wines": wines})
	}

	offset, limit := parsePagination(c)
	wines, err := repo.GetByUserID(user.UserID, offset, limit)
	if err != nil {
		log.Errorf("wine list failed: %v", err)
		return internalError(c, "could not list wines")
	}
	total, _ := repo.CountByUserID(user.UserID)
	return c.JSON(fiber.Map{"wines": wines, "total": total})
}

// HandleWineGet returns one wine evaluation with its purchase links.
func HandleWineGet(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}

	wine, err := repository.GetGlobalFactory().GetWineRepository().GetByID(id)
	if err != nil || wine.UserID != user.UserID {
		// Do not leak existence
		return notFound(c, "wine not found")
	}
	return c.JSON(wine)
}

// HandleWineCreate stores a new wine evaluation.
func HandleWineCreate(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)

	var wine models.Wine
	if err := c.BodyParser(&wine); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	wine.ID = 0
	wine.UserID = user.UserID
	if err := wine.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := repository.GetGlobalFactory().GetWineRepository().Create(&wine); err != nil {
		log.Errorf("wine create failed: %v", err)
		return internalError(c, "could not create wine")
	}
	return c.Status(fiber.StatusCreated).JSON(wine)
}

// HandleWineUpdate overwrites an existing evaluation's fields.
func HandleWineUpdate(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}

	repo := repository.GetGlobalFactory().GetWineRepository()
	wine, err := repo.GetByID(id)
	if err != nil || wine.UserID != user.UserID {
		return notFound(c, "wine not found")
	}

	var in models.Wine
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	wine.Name = in.Name
	wine.Winery = in.Winery
	wine.Country = in.Country
	wine.Region = in.Region
	wine.Grape = in.Grape
	wine.Vintage = in.Vintage
	wine.Rating = in.Rating
	wine.Notes = in.Notes
	if err := wine.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := repo.Update(wine); err != nil {
		log.Errorf("wine update failed: %v", err)
		return internalError(c, "could not update wine")
	}
	return c.JSON(wine)
}

// HandleWineDelete removes an evaluation.
func HandleWineDelete(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}

	repo := repository.GetGlobalFactory().GetWineRepository()
	wine, err := repo.GetByID(id)
	if err != nil || wine.UserID != user.UserID {
		return notFound(c, "wine not found")
	}
	if err := repo.Delete(id); err != nil {
		log.Errorf("wine delete failed: %v", err)
		return internalError(c, "could not delete wine")
	}
	return c.JSON(fiber.Map{"ok": true})
}

package controllers

import (
	"github.com/andrefurlan/adega/app/models"
	"github.com/andrefurlan/adega/app/repository"
	"github.com/andrefurlan/adega/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// ownedWine loads a wine and checks it belongs to the caller.
func ownedWine(c *fiber.Ctx, wineID uint) (*models.Wine, bool) {
	user := usercontext.GetUserContext(c)
	wine, err := repository.GetGlobalFactory().GetWineRepository().GetByID(wineID)
	if err != nil || wine.UserID != user.UserID {
		return nil, false
	}
	return wine, true
}

// HandlePurchaseLinkList returns the purchase links of one of the caller's
// wines.
func HandlePurchaseLinkList(c *fiber.Ctx) error {
	wineID, ok := parseIDParam(c, "wine_id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}
	if _, ok := ownedWine(c, wineID); !ok {
		return notFound(c, "wine not found")
	}

	links, err := repository.GetGlobalFactory().GetPurchaseLinkRepository().GetByWineID(wineID)
	if err != nil {
		log.Errorf("purchase link list failed: %v", err)
		return internalError(c, "could not list purchase links")
	}
	return c.JSON(fiber.Map{"purchase_links": links})
}

// HandlePurchaseLinkCreate attaches a merchant link to one of the caller's
// wines.
func HandlePurchaseLinkCreate(c *fiber.Ctx) error {
	wineID, ok := parseIDParam(c, "wine_id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}
	if _, ok := ownedWine(c, wineID); !ok {
		return notFound(c, "wine not found")
	}

	var link models.PurchaseLink
	if err := c.BodyParser(&link); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	link.ID = 0
	link.WineID = wineID
	if err := link.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := repository.GetGlobalFactory().GetPurchaseLinkRepository().Create(&link); err != nil {
		log.Errorf("purchase link create failed: %v", err)
		return internalError(c, "could not create purchase link")
	}
	return c.Status(fiber.StatusCreated).JSON(link)
}

// HandlePurchaseLinkUpdate overwrites a merchant link.
func HandlePurchaseLinkUpdate(c *fiber.Ctx) error {
	wineID, ok := parseIDParam(c, "wine_id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid purchase link id")
	}
	if _, ok := ownedWine(c, wineID); !ok {
		return notFound(c, "wine not found")
	}

	repo := repository.GetGlobalFactory().GetPurchaseLinkRepository()
	link, err := repo.GetByID(id)
	if err != nil || link.WineID != wineID {
		return notFound(c, "purchase link not found")
	}

	var in models.PurchaseLink
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "invalid JSON body")
	}
	link.Merchant = in.Merchant
	link.URL = in.URL
	link.Price = in.Price
	link.Currency = in.Currency
	if err := link.Validate(); err != nil {
		return badRequest(c, err.Error())
	}

	if err := repo.Update(link); err != nil {
		log.Errorf("purchase link update failed: %v", err)
		return internalError(c, "could not update purchase link")
	}
	return c.JSON(link)
}

// HandlePurchaseLinkDelete removes a merchant link.
func HandlePurchaseLinkDelete(c *fiber.Ctx) error {
	wineID, ok := parseIDParam(c, "wine_id")
	if !ok {
		return badRequest(c, "invalid wine id")
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid purchase link id")
	}
	if _, ok := ownedWine(c, wineID); !ok {
		return notFound(c, "wine not found")
	}

	repo := repository.GetGlobalFactory().GetPurchaseLinkRepository()
	link, err := repo.GetByID(id)
	if err != nil || link.WineID != wineID {
		return notFound(c, "purchase link not found")
	}
	if err := repo.Delete(id); err != nil {
		log.Errorf("purchase link delete failed: %v", err)
		return internalError(c, "could not delete purchase link")
	}
	return c.JSON(fiber.Map{"ok": true})
}

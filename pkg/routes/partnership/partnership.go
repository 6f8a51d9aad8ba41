package partnership

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/pkg/appcontext"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

var validate = validator.New()

// Register registers partnership routes
func Register(g *echo.Group) {
	g.POST("/partnerships", Create)
	g.GET("/partnerships", List)
	g.GET("/partnerships/:id", Get)
	g.PUT("/partnerships/:id", Update)
	g.DELETE("/partnerships/:id", Delete)
}

// Create creates a new partnership
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "partnership_handler.Create")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}

	var req models.CreatePartnershipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if userID != req.User1ID && userID != req.User2ID {
		return httperror.NewHTTPError(http.StatusForbidden, "authenticated user must be a partnership member")
	}

	ctx, repo, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, req)
	if err != nil {
		return err
	}

	ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
	if logger != nil {
		logger.WithContext(ctx).WithFields(map[string]any{"id": created.ID}).Info("Created partnership")
	}

	return c.JSON(http.StatusCreated, created)
}

// List returns the partnerships the authenticated user belongs to
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "partnership_handler.List")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	if q := c.QueryParam("user_id"); q != "" && q != userID {
		return httperror.NewHTTPError(http.StatusForbidden, "cannot list another user's partnerships")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx, repo, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.ListForUser(ctx, userID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.PartnershipListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Get returns a partnership by ID
func Get(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "partnership_handler.Get")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	p, err := repo.GetForUser(ctx, id, userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, p)
}

// Update updates a partnership's custody configuration
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "partnership_handler.Update")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	var req models.UpdatePartnershipRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	updated, err := repo.Update(ctx, id, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Delete soft deletes a partnership
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "partnership_handler.Delete")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	if err := repo.Delete(ctx, id, userID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

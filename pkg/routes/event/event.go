package event

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/internal/repositories/event"
	"github.com/fefejiro/peacepad/internal/repositories/partnership"
	"github.com/fefejiro/peacepad/pkg/appcontext"
	"github.com/fefejiro/peacepad/pkg/models"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Register registers calendar event routes
func Register(g *echo.Group) {
	g.POST("/partnerships/:id/events", Create)
	g.GET("/partnerships/:id/events", List)
	g.PUT("/events/:id", Update)
	g.DELETE("/events/:id", Delete)
}

// Create creates a calendar event
func Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Create")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	var req models.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, partnershipID, userID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	created, err := repo.Create(ctx, partnershipID, userID, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, created)
}

// List returns calendar events for a partnership, optionally bounded to a
// date window via from/to query params
func List(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.List")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	var from, to *time.Time
	if q := c.QueryParam("from"); q != "" {
		t, err := time.Parse(dateLayout, q)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid from, expected YYYY-MM-DD")
		}
		from = &t
	}
	if q := c.QueryParam("to"); q != "" {
		t, err := time.Parse(dateLayout, q)
		if err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, "invalid to, expected YYYY-MM-DD")
		}
		to = &t
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, partnershipID, userID); err != nil {
		return err
	}

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	items, totalCount, err := repo.List(ctx, partnershipID, from, to, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.EventListResponse{
		Items:      items,
		TotalCount: totalCount,
		Page:       page,
		PageSize:   pageSize,
	})
}

// Update updates a calendar event
func Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Update")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	var req models.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, existing.PartnershipID, userID); err != nil {
		return err
	}

	updated, err := repo.Update(ctx, existing.PartnershipID, id, req)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, updated)
}

// Delete soft deletes a calendar event
func Delete(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "event_handler.Delete")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	id := c.Param("id")

	ctx, repo, err := ectoinject.GetContext[*event.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}

	existing, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	ctx, partnerships, err := ectoinject.GetContext[*partnership.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get repository")
	}
	if _, err := partnerships.GetForUser(ctx, existing.PartnershipID, userID); err != nil {
		return err
	}

	if err := repo.Delete(ctx, existing.PartnershipID, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

package custody

import (
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/fefejiro/peacepad/pkg/appcontext"
	"github.com/fefejiro/peacepad/pkg/custody"
	"github.com/fefejiro/peacepad/pkg/tracing"
)

const dateLayout = "2006-01-02"

// Register registers custody calendar routes
func Register(g *echo.Group) {
	g.GET("/partnerships/:id/custody", GetDay)
	g.GET("/partnerships/:id/custody/range", GetRange)
}

// GetDay returns the custody assignment for a single day
func GetDay(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "custody_handler.GetDay")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	date, err := time.Parse(dateLayout, c.QueryParam("date"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	ctx, svc, err := ectoinject.GetContext[*custody.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get custody service")
	}

	day, err := svc.DayFor(ctx, partnershipID, userID, date)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, day)
}

// GetRange returns the custody calendar for a date window
func GetRange(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "custody_handler.GetRange")
	defer span.End()

	userID := appcontext.GetUserID(ctx)
	if userID == "" {
		return httperror.NewHTTPError(http.StatusUnauthorized, "user identity is required")
	}
	partnershipID := c.Param("id")

	from, err := time.Parse(dateLayout, c.QueryParam("from"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid from, expected YYYY-MM-DD")
	}
	to, err := time.Parse(dateLayout, c.QueryParam("to"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid to, expected YYYY-MM-DD")
	}

	ctx, svc, err := ectoinject.GetContext[*custody.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to get custody service")
	}

	days, err := svc.RangeFor(ctx, partnershipID, userID, from, to)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, days)
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/upwave/upwave/internal/apperr"
	"github.com/upwave/upwave/internal/logging"
	"github.com/upwave/upwave/internal/service/search"
	"github.com/upwave/upwave/internal/util"
)

type SearchHandler struct {
	ES    *elasticsearch.Client
	Index string
}

func (h *SearchHandler) Search(c echo.Context) error {
	ctx := c.Request().Context()

	q := c.QueryParam("q")
	if q == "" {
		return apperr.Validation("query parameter q is required")
	}

	if h.ES == nil {
		return apperr.New(http.StatusServiceUnavailable, apperr.CodeInternalError, "search is not available")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, posts, err := search.Search(ctx, h.ES, h.Index, q, from, size)
	if err != nil {
		logging.FromContext(ctx).Error("search failed", "error", err)
		return apperr.Internal(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"total": total, "posts": posts})
}

package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/feed"
)

func (a *App) handleHome(c echo.Context) error {
	if c.QueryParam("continue") == "1" {
		if f, ok := a.sessionFeed(c); ok {
			return a.renderListing(c, http.StatusOK, f.State(), false)
		}
	}

	st, err := a.Cache.Listing(c.Request().Context())
	if err != nil {
		return err
	}
	f := feed.New(a.source, st, feed.WithTimeout(a.Config.Feed.LoadTimeout))
	if err := a.openView(c, f); err != nil {
		return err
	}
	return a.renderListing(c, http.StatusOK, st, false)
}

func (a *App) handleLoadMore(c echo.Context) error {
	partial := isFetchRequest(c)

	if !a.loadLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
	}

	f, ok := a.sessionFeed(c)
	if !ok {
		if partial {
			return c.NoContent(http.StatusGone)
		}
		return c.Redirect(http.StatusSeeOther, "/")
	}

	added, err := f.LoadMore(c.Request().Context())
	if err != nil {
		var fe *feed.FetchError
		switch {
		case errors.Is(err, feed.ErrInvalidState), errors.Is(err, feed.ErrLoadInProgress):
			if partial {
				return c.NoContent(http.StatusConflict)
			}
			return c.Redirect(http.StatusSeeOther, "/?continue=1")
		case errors.As(err, &fe):
			a.Logger.Warn().Err(fe.Err).Str("cursor", fe.Cursor).Msg("load more failed")
			if partial {
				return RenderStatus(c, http.StatusBadGateway, a.Views.LoadError(CsrfToken(c)))
			}
			return a.renderListing(c, http.StatusBadGateway, f.State(), true)
		default:
			return err
		}
	}

	if partial {
		return Render(c, a.Views.FeedItems(added, f.HasMore(), CsrfToken(c)))
	}
	return c.Redirect(http.StatusSeeOther, "/?continue=1")
}

func (a *App) renderListing(c echo.Context, code int, st feed.State, loadFailed bool) error {
	listing := Listing{
		Items:      st.Items(),
		HasMore:    st.HasMore(),
		LoadFailed: loadFailed,
	}
	meta := PageMeta{
		Title:       a.Config.Name,
		Description: a.Config.Description,
		URL:         BuildURL(a.Config.URL),
		OGType:      "website",
		JSONLD:      WebsiteJsonLD(a.Config),
	}
	return RenderStatus(c, code, a.Views.Home(listing, meta, CsrfToken(c)))
}

func (a *App) handlePost(c echo.Context) error {
	uid := c.Param("uid")
	post, err := a.Cache.GetPost(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	meta := PageMeta{
		Title:       post.Title + " | " + a.Config.Name,
		Description: post.Subtitle,
		URL:         BuildURL(a.Config.URL, "post", post.UID),
		OGType:      "article",
		JSONLD:      BlogPostingJsonLD(post, a.Config),
	}
	return Render(c, a.Views.Post(post, meta))
}

func (a *App) handleSitemap(c echo.Context) error {
	st, err := a.Cache.Listing(c.Request().Context())
	if err != nil {
		return err
	}
	known, err := a.Store.ListPosts()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, mergeItems(st.Items(), known))
}

func (a *App) handleFeed(c echo.Context) error {
	st, err := a.Cache.Listing(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, st.Items())
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/group"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	"github.com/BruceGoodGuy/moodle/core/user"
	exportsvc "github.com/BruceGoodGuy/moodle/services/export"
	sessioncache "github.com/BruceGoodGuy/moodle/storage/cache"
	"github.com/BruceGoodGuy/moodle/widget"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportApi struct {
	conf     *core.Config
	renderer *widget.Renderer
	groupSvc group.ServiceInterface
	usrSvc   user.ServiceInterface
	quizSvc  quiz.ServiceInterface
	cache    sessioncache.Cache
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := reportApi{
		conf:     deps.Conf,
		renderer: deps.Renderer,
		groupSvc: deps.GroupSvc,
		usrSvc:   deps.UserSvc,
		quizSvc:  deps.QuizSvc,
		cache:    deps.Cache,
	}

	rg := g.Group("/reports", jwt, teacherMiddleware())

	// action-bar fragments
	mg := rg.Group("/modules/:moduleID")
	mg.GET("/group-selector", api.groupSelector)
	mg.GET("/user-search", api.userSearch)
	mg.GET("/initials-bars", api.initialsBars)

	rg.GET("/quizzes/:id/export", api.exportGradingWorksheet)
}

func (api *reportApi) courseModule(ctx echo.Context) (group.CourseModule, error) {
	id, err := strconv.ParseInt(ctx.Param("moduleID"), 10, 64)
	if err != nil {
		return group.CourseModule{}, errHttpNotFound
	}
	cm, err := api.groupSvc.GetCourseModule(id)
	if err != nil {
		if errors.Cause(err) == group.ErrModuleNotFound {
			return group.CourseModule{}, errHttpNotFound
		}
		return group.CourseModule{}, errors.Wrap(err, "getting course module")
	}
	return cm, nil
}

// Handlers

// groupSelector renders the group dropdown of the report action bar. A
// `group` query param selects a group and is remembered for the session;
// otherwise the last selected group is restored.
func (api *reportApi) groupSelector(ctx echo.Context) error {
	cm, err := api.courseModule(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var activeGroupID int64
	if raw := ctx.QueryParam("group"); raw != "" {
		if activeGroupID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid group")
		}
		if cErr := api.cache.SetActiveGroup(usr.ID, cm.ID, activeGroupID); cErr != nil {
			ctx.Logger().Warnf("remembering active group: %v", cErr)
		}
	} else if groupID, cErr := api.cache.ActiveGroup(usr.ID, cm.ID); cErr == nil {
		activeGroupID = groupID
	}

	html, err := api.renderer.GroupSelector(cm, usr, activeGroupID)
	if err != nil {
		return errors.Wrap(err, "rendering group selector")
	}
	return ctx.JSON(http.StatusOK, FragmentResponse{HTML: html})
}

// userSearch renders the participant search combobox, narrowed by an optional
// `search` query param.
func (api *reportApi) userSearch(ctx echo.Context) error {
	cm, err := api.courseModule(ctx)
	if err != nil {
		return err
	}

	search := core.CleanString(ctx.QueryParam("search"))
	html, err := api.renderer.UserSearchCombobox(cm.CourseID, search)
	if err != nil {
		return errors.Wrap(err, "rendering user search")
	}
	return ctx.JSON(http.StatusOK, FragmentResponse{HTML: html})
}

// initialsBars renders the first and last name initial filter bars.
func (api *reportApi) initialsBars(ctx echo.Context) error {
	if _, err := api.courseModule(ctx); err != nil {
		return err
	}

	first, err := api.renderer.InitialsBar("First name", "first_initial", core.CleanString(ctx.QueryParam("first")))
	if err != nil {
		return errors.Wrap(err, "rendering first initials bar")
	}
	last, err := api.renderer.InitialsBar("Last name", "last_initial", core.CleanString(ctx.QueryParam("last")))
	if err != nil {
		return errors.Wrap(err, "rendering last initials bar")
	}
	return ctx.JSON(http.StatusOK, InitialsBarsResponse{FirstInitialsBar: first, LastInitialsBar: last})
}

// exportGradingWorksheet streams an xlsx grading worksheet for the quiz: one
// row per course participant, one column per grade item.
func (api *reportApi) exportGradingWorksheet(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}

	payload, err := api.quizSvc.PageData(id)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying page data")
	}
	cm, err := api.groupSvc.GetCourseModule(payload.Quiz.CourseModuleID)
	if err != nil {
		return errors.Wrap(err, "getting course module")
	}

	isActive := true
	users, err := api.usrSvc.Query(
		&user.QueryFilter{CourseID: cm.CourseID, IsActive: &isActive},
		[]core.DBOrdering{{Field: "last_name", Ascending: true}},
	)
	if err != nil {
		return errors.Wrap(err, "querying participants")
	}

	buf, filename, err := exportsvc.GradingWorksheet(payload, users)
	if err != nil {
		return errors.Wrap(err, "building grading worksheet")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

type (
	// FragmentResponse carries a rendered HTML fragment.
	FragmentResponse struct {
		HTML string `json:"html"`
	}

	InitialsBarsResponse struct {
		FirstInitialsBar string `json:"first_initials_bar"`
		LastInitialsBar  string `json:"last_initials_bar"`
	}
)

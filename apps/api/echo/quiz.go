package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/BruceGoodGuy/moodle/core"
	"github.com/BruceGoodGuy/moodle/core/quiz"
	sessioncache "github.com/BruceGoodGuy/moodle/storage/cache"
)

type quizApi struct {
	conf     *core.Config
	svc      quiz.ServiceInterface
	cache    sessioncache.Cache
	validate *validator.Validate
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := quizApi{
		conf:     deps.Conf,
		svc:      deps.QuizSvc,
		cache:    deps.Cache,
		validate: deps.Validate,
	}

	qg := g.Group("/quizzes/:id", jwt, teacherMiddleware())

	// grade-item editor
	qg.GET("/grade-items", api.pageData)
	qg.POST("/grade-items", api.createGradeItems)
	qg.PUT("/grade-items", api.updateGradeItems)
	qg.DELETE("/grade-items", api.destroyGradeItems)
	qg.POST("/grade-items/auto-setup", api.autoSetup)
	qg.PUT("/slots", api.updateSlots)

	// sections
	qg.GET("/sections", api.sections)
	qg.PUT("/sections/:sectionID/heading", api.updateSectionHeading)
	qg.PUT("/sections/:sectionID/shuffle", api.setSectionShuffle)

	// overall feedback
	qg.GET("/overall-feedback", api.overallFeedback)
	qg.POST("/overall-feedback", api.saveOverallFeedback)
}

func quizID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

func (api *quizApi) sectionID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("sectionID"), 10, 64)
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

// respond caches the fresh payload and returns it.
func (api *quizApi) respond(ctx echo.Context, id int64, payload quiz.EditorPayload, err error) error {
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	if cErr := api.cache.SetEditorPayload(id, payload); cErr != nil {
		ctx.Logger().Warnf("caching editor payload: %v", cErr)
	}
	return ctx.JSON(http.StatusOK, payload)
}

// Handlers

func (api *quizApi) pageData(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}
	if payload, err := api.cache.EditorPayload(id); err == nil {
		return ctx.JSON(http.StatusOK, payload)
	}
	payload, err := api.svc.PageData(id)
	return api.respond(ctx, id, payload, err)
}

func (api *quizApi) createGradeItems(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}

	var data GradeItemsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeItemsRequest")
	}
	payload, err := api.svc.CreateGradeItems(id, data.GradeItems)
	return api.respond(ctx, id, payload, err)
}

func (api *quizApi) updateGradeItems(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}

	var data UpdateGradeItemsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateGradeItemsRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	payload, err := api.svc.UpdateGradeItems(id, data.GradeItems)
	return api.respond(ctx, id, payload, err)
}

func (api *quizApi) destroyGradeItems(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}

	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	payload, err := api.svc.DeleteGradeItems(id, query.IDs)
	return api.respond(ctx, id, payload, err)
}

func (api *quizApi) autoSetup(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}
	payload, err := api.svc.AutoSetup(id)
	return api.respond(ctx, id, payload, err)
}

func (api *quizApi) updateSlots(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}

	var data SlotAssignmentsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SlotAssignmentsRequest")
	}
	if err := api.validate.Struct(&data); err != nil {
		return err
	}
	payload, err := api.svc.UpdateSlots(id, data.Slots)
	return api.respond(ctx, id, payload, err)
}

func (api *quizApi) sections(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}
	sections, err := api.svc.Sections(id)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying sections")
	}
	return ctx.JSON(http.StatusOK, sections)
}

func (api *quizApi) updateSectionHeading(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}
	sectionID, err := api.sectionID(ctx)
	if err != nil {
		return err
	}

	var data SectionHeadingRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SectionHeadingRequest")
	}

	sec, err := api.svc.UpdateSectionHeading(id, sectionID, data.Heading)
	if err != nil {
		if cause := errors.Cause(err); cause == quiz.ErrNotFound || cause == quiz.ErrSectionNotFound {
			return errHttpNotFound
		}
		return err
	}
	if cErr := api.cache.InvalidateEditorPayload(id); cErr != nil {
		ctx.Logger().Warnf("invalidating editor payload: %v", cErr)
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *quizApi) setSectionShuffle(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}
	sectionID, err := api.sectionID(ctx)
	if err != nil {
		return err
	}

	var data SectionShuffleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SectionShuffleRequest")
	}

	sec, err := api.svc.SetShuffle(id, sectionID, data.Shuffle)
	if err != nil {
		if cause := errors.Cause(err); cause == quiz.ErrNotFound || cause == quiz.ErrSectionNotFound {
			return errHttpNotFound
		}
		return err
	}
	if cErr := api.cache.InvalidateEditorPayload(id); cErr != nil {
		ctx.Logger().Warnf("invalidating editor payload: %v", cErr)
	}
	return ctx.JSON(http.StatusOK, sec)
}

func (api *quizApi) overallFeedback(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}
	bands, err := api.svc.OverallFeedback(id)
	if err != nil {
		if errors.Cause(err) == quiz.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying overall feedback")
	}
	if bands == nil {
		bands = []quiz.FeedbackBand{}
	}
	return ctx.JSON(http.StatusOK, bands)
}

func (api *quizApi) saveOverallFeedback(ctx echo.Context) error {
	id, err := quizID(ctx)
	if err != nil {
		return err
	}

	var data quiz.OverallFeedbackData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OverallFeedbackData")
	}
	payload, err := api.svc.SaveOverallFeedback(id, data)
	return api.respond(ctx, id, payload, err)
}

type (
	GradeItemsRequest struct {
		GradeItems []quiz.NewGradeItem `json:"gradeitems"`
	}

	UpdateGradeItemsRequest struct {
		GradeItems []quiz.UpdateGradeItem `json:"gradeitems" validate:"dive"`
	}

	SlotAssignmentsRequest struct {
		Slots []quiz.SlotAssignment `json:"slots" validate:"dive"`
	}

	SectionHeadingRequest struct {
		Heading string `json:"heading"`
	}

	SectionShuffleRequest struct {
		Shuffle bool `json:"shuffle"`
	}
)

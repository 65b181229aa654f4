package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/dissertrack/core/evaluation"
	"github.com/trezcool/dissertrack/core/user"
)

type evaluationApi struct {
	auth     *authenticator
	svc      evaluation.Service
	validate *validator.Validate
}

func registerEvaluationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc evaluation.Service,
	validate *validator.Validate,
) {
	api := evaluationApi{auth: auth, svc: svc, validate: validate}

	eg := g.Group("/evaluations", jwt)
	eg.GET("", api.query)
	eg.POST("", api.create, roleMiddleware(user.RoleFaculty))
	eg.GET("/:id", api.retrieve)
}

func (api *evaluationApi) query(ctx echo.Context) error {
	filter := new(evaluation.QueryFilter)
	if !bindQuery(ctx, filter) {
		return ctx.JSON(http.StatusOK, []evaluation.Evaluation{})
	}
	filter.Clean()

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	switch usr.Role {
	case user.RoleStudent:
		filter.StudentID = usr.ID
	case user.RoleFaculty:
		filter.GuideID = usr.ID
	}

	evals, err := api.svc.Query(ctx.Request().Context(), filter, parseOrdering(ctx))
	if err != nil {
		return errors.Wrap(err, "querying evaluations")
	}
	return ctx.JSON(http.StatusOK, evals)
}

func (api *evaluationApi) create(ctx echo.Context) error {
	var data evaluation.NewEvaluation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating evaluation")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *evaluationApi) retrieve(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}

	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == evaluation.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding evaluation by ID")
	}
	if !(usr.IsHOD() || e.StudentID == usr.ID || e.GuideID == usr.ID) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, e)
}

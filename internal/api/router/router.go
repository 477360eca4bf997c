package router

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"cv-match-go/internal/api/handler"
	"cv-match-go/internal/config"
	"cv-match-go/internal/processor"
)

// RegisterRoutes installs the API surface. When a server API key is
// configured, every /api route requires it via the Authorization header.
func RegisterRoutes(h *server.Hertz, cfg *config.Config, jobHandler *handler.JobHandler, candidateHandler *handler.CandidateHandler) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	api := h.Group("/api/v1")
	if cfg.Server.APIKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
			keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
				return key == cfg.Server.APIKey, nil
			}),
		))
	}

	api.POST("/jobs", func(c context.Context, ctx *app.RequestContext) {
		var req handler.CreateJobRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"code": "INVALID_REQUEST", "message": "malformed JSON body"})
			return
		}
		resp, err := jobHandler.HandleCreateJob(c, &req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusCreated, resp)
	})

	api.POST("/candidates/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"code": "INVALID_REQUEST", "message": "file field is required"})
			return
		}
		jobID := ctx.PostForm("job_id")

		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"code": "INTERNAL", "message": "cannot open uploaded file"})
			return
		}
		defer file.Close()

		resp, err := candidateHandler.HandleCandidateUpload(c, file, fileHeader.Size, fileHeader.Filename, jobID)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.PUT("/jobs/:job_id/requirements", func(c context.Context, ctx *app.RequestContext) {
		var req handler.UpdateRequirementsRequest
		if err := ctx.BindJSON(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"code": "INVALID_REQUEST", "message": "malformed JSON body"})
			return
		}
		resp, err := jobHandler.HandleUpdateRequirements(c, ctx.Param("job_id"), &req)
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/candidates/:candidate_id/file", func(c context.Context, ctx *app.RequestContext) {
		resp, err := candidateHandler.HandleGetCandidateFileURL(c, ctx.Param("candidate_id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.DELETE("/candidates/:candidate_id", func(c context.Context, ctx *app.RequestContext) {
		resp, err := candidateHandler.HandleDeleteCandidate(c, ctx.Param("candidate_id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/jobs/:job_id/analyze", func(c context.Context, ctx *app.RequestContext) {
		resp, err := jobHandler.HandleAnalyzeJob(c, ctx.Param("job_id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.GET("/jobs/:job_id/ranking", func(c context.Context, ctx *app.RequestContext) {
		resp, err := jobHandler.HandleGetRanking(c, ctx.Param("job_id"))
		if err != nil {
			writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})
}

// writeError maps handler errors onto HTTP statuses by their code.
func writeError(ctx *app.RequestContext, err error) {
	var apiErr *handler.APIError
	if !errors.As(err, &apiErr) {
		ctx.JSON(consts.StatusInternalServerError, utils.H{"code": processor.CodeInternal, "message": err.Error()})
		return
	}

	status := consts.StatusInternalServerError
	switch apiErr.Code {
	case "INVALID_REQUEST":
		status = consts.StatusBadRequest
	case "JOB_NOT_FOUND", "CANDIDATE_NOT_FOUND":
		status = consts.StatusNotFound
	case processor.CodeNoJobRequirements, processor.CodeNoCVText:
		status = consts.StatusUnprocessableEntity
	case processor.CodeEmbeddingsFailed:
		status = consts.StatusBadGateway
	}
	ctx.JSON(status, utils.H{"code": apiErr.Code, "message": apiErr.Message})
}

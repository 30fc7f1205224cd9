package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/modernbilling/billing-api-go/internal/domain"
	"github.com/modernbilling/billing-api-go/internal/service"
)

// ============================================================
// Pages — public reads under /v1/pages, admin writes under /v1/admin/pages
// ============================================================

func listPagesHandler(svc *service.PageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pages")
		defer span.End()

		pages, err := svc.List(ctx, false)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if pages == nil {
			pages = []domain.Page{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
	}
}

func getPageHandler(svc *service.PageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pages/{slug}")
		defer span.End()

		page, err := svc.GetBySlug(ctx, chi.URLParam(r, "slug"), false)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func listAllPagesHandler(svc *service.PageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/pages")
		defer span.End()

		pages, err := svc.List(ctx, true)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if pages == nil {
			pages = []domain.Page{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
	}
}

func createPageHandler(svc *service.PageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/pages")
		defer span.End()

		var req domain.CreatePageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		page, err := svc.Create(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, page)
	}
}

func updatePageHandler(svc *service.PageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/admin/pages/{pageId}")
		defer span.End()

		var req domain.UpdatePageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		page, err := svc.Update(ctx, chi.URLParam(r, "pageId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func deletePageHandler(svc *service.PageService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/admin/pages/{pageId}")
		defer span.End()

		if err := svc.Delete(ctx, chi.URLParam(r, "pageId")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anime-shed/artwork-matcher/internal/access"
	"github.com/anime-shed/artwork-matcher/internal/config"
	apperrors "github.com/anime-shed/artwork-matcher/internal/errors"
	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/observer"
	"github.com/anime-shed/artwork-matcher/internal/service"
	"github.com/anime-shed/artwork-matcher/internal/storage"
	"github.com/anime-shed/artwork-matcher/pkg/models"
	"github.com/anime-shed/artwork-matcher/pkg/validation"
)

// IdentityHeader carries the authenticated user id set by the upstream gateway.
const IdentityHeader = "X-User-ID"

const fetchConcurrency = 4

// Handlers bundles what the HTTP layer needs
type Handlers struct {
	Service      service.AnalysisService
	Fetcher      storage.ImageFetcher
	URLValidator *validation.URLValidator
	Metrics      *observer.MetricsObserver
	Config       *config.Config
}

func NewHandler(h Handlers) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(h.Config.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck(h.Metrics))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	api.GET("/tiers", listTiers)
	api.POST("/analyze", analyzeBatch(h))

	return r
}

func analyzeBatch(h Handlers) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Config.RequestTimeout)
		defer cancel()

		identity := strings.TrimSpace(c.GetHeader(IdentityHeader))
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
			"guest":      identity == "",
		}).Info("Processing batch analysis request")

		var images [][]byte
		var err error
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			images, err = readUploads(c, h.Config.MaxImages)
		} else {
			images, err = fetchReferenced(ctx, c, h)
		}
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid batch", err)
			return
		}

		resp, err := h.Service.AnalyzeBatch(ctx, service.BatchRequest{Images: images, Identity: identity})
		if err != nil {
			respondError(c, determineStatusCode(err), "batch analysis failed", err)
			return
		}

		status := http.StatusOK
		if resp.Status == models.BatchRejected {
			status = http.StatusPaymentRequired
			if resp.Rejection.LoginRequired {
				status = http.StatusUnauthorized
			}
		}

		logger.WithFields(logrus.Fields{
			"status":             resp.Status,
			"image_count":        len(images),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Batch analysis request finished")

		c.JSON(status, resp)
	}
}

// readUploads reads every "images" file of a multipart form.
func readUploads(c *gin.Context, maxImages int) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewValidationError("invalid multipart form", err)
	}
	files := form.File["images"]
	if len(files) > maxImages {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("too many images: %d (maximum %d)", len(files), maxImages), nil)
	}

	images := make([][]byte, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.NewValidationError("unreadable upload "+fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperrors.NewValidationError("unreadable upload "+fh.Filename, err)
		}
		images = append(images, data)
	}
	return images, nil
}

// fetchReferenced downloads the images listed in a JSON body, keeping request order.
func fetchReferenced(ctx context.Context, c *gin.Context, h Handlers) ([][]byte, error) {
	var req models.AnalyzeURLsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid request format", err)
	}
	if len(req.ImageURLs) > h.Config.MaxImages {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("too many images: %d (maximum %d)", len(req.ImageURLs), h.Config.MaxImages), nil)
	}
	for _, u := range req.ImageURLs {
		if _, err := h.URLValidator.Parse(u); err != nil {
			return nil, apperrors.NewValidationError("invalid image URL", err).WithDetails(u)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, h.Config.ImageFetchTimeout)
	defer cancel()

	images := make([][]byte, len(req.ImageURLs))
	g, gctx := errgroup.WithContext(fetchCtx)
	g.SetLimit(fetchConcurrency)
	for i, u := range req.ImageURLs {
		g.Go(func() error {
			data, err := h.Fetcher.FetchImage(gctx, u)
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return apperrors.NewTimeoutError("image fetch timeout", err).WithDetails(u)
				}
				return apperrors.NewNetworkError("failed to fetch image", err).WithDetails(u)
			}
			images[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func listTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tiers":      access.Tiers(),
		"max_images": access.MaxBatchImages,
	})
}

func healthCheck(m *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":  "available",
			"version": "1.0.0",
			"time":    time.Now().UTC().Format(time.RFC3339),
		}
		if m != nil {
			body["batches"] = m.GetMetrics()
		}
		c.JSON(http.StatusOK, body)
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
	}
	c.AbortWithStatusJSON(code, resp)
}

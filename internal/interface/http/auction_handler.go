package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meta556-debug/bid2buy-try/internal/application"
	"github.com/meta556-debug/bid2buy-try/internal/domain/entity"
	repo "github.com/meta556-debug/bid2buy-try/internal/domain/repository"
	"github.com/meta556-debug/bid2buy-try/internal/interface/middleware"
	"github.com/meta556-debug/bid2buy-try/pkg/response"
	"github.com/meta556-debug/bid2buy-try/pkg/validation"
)

type AuctionHandler struct {
	Svc    *application.AuctionService
	Logger *logrus.Logger
}

func NewAuctionHandler(svc *application.AuctionService, logger *logrus.Logger) *AuctionHandler {
	return &AuctionHandler{Svc: svc, Logger: logger}
}

type createAuctionForm struct {
	Title         string          `form:"title" binding:"required"`
	Description   string          `form:"description" binding:"required"`
	Category      string          `form:"category" binding:"required"`
	Condition     string          `form:"condition"`
	Location      string          `form:"location"`
	StartingPrice decimal.Decimal `form:"starting_price" binding:"required"`
	DurationType  string          `form:"duration_type" binding:"required,oneof=hours days weeks"`
	DurationValue int             `form:"duration_value" binding:"required,gt=0"`
	MediaType     string          `form:"media_type" binding:"omitempty,oneof=image video"`
}

func (h *AuctionHandler) Create(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var form createAuctionForm
	if err := c.ShouldBind(&form); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	var media []application.MediaUpload
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["media"] {
			f, oErr := fh.Open()
			if oErr != nil {
				h.Logger.WithError(oErr).WithField("filename", fh.Filename).Warn("skipping unreadable upload")
				continue
			}
			opened = append(opened, f)
			media = append(media, application.MediaUpload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Reader:      f,
			})
		}
	}

	a, err := h.Svc.Create(c.Request.Context(), uid, application.CreateAuctionInput{
		Title:         form.Title,
		Description:   form.Description,
		Category:      form.Category,
		Condition:     form.Condition,
		Location:      form.Location,
		StartingPrice: form.StartingPrice,
		DurationType:  form.DurationType,
		DurationValue: form.DurationValue,
		MediaType:     entity.MediaType(form.MediaType),
		Media:         media,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, a, "auction created", nil)
}

func listFiltersFromQuery(c *gin.Context) repo.ListFilters {
	f := repo.ListFilters{
		Category:   c.Query("category"),
		Search:     c.Query("search"),
		TimeFilter: c.Query("time"),
		Sort:       c.DefaultQuery("sort", repo.SortNewest),
	}
	if v := c.Query("min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &d
		}
	}
	if v := c.Query("max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &d
		}
	}
	return f
}

func (h *AuctionHandler) List(c *gin.Context) {
	auctions, err := h.Svc.List(c.Request.Context(), listFiltersFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, auctions, "auctions", map[string]any{"count": len(auctions)})
}

func (h *AuctionHandler) Get(c *gin.Context) {
	detail, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail, "auction", nil)
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

func (h *AuctionHandler) PlaceBid(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	var req placeBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.PlaceBid(c.Request.Context(), uid, c.Param("id"), req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res, res.Message, nil)
}

func (h *AuctionHandler) EndEarly(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	res, err := h.Svc.EndEarly(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, res.Message, nil)
}

func (h *AuctionHandler) MyListings(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	auctions, err := h.Svc.UserListings(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, auctions, "your listings", map[string]any{"count": len(auctions)})
}

func (h *AuctionHandler) MyBids(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	bids, err := h.Svc.UserBids(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, bids, "your bids", map[string]any{"count": len(bids)})
}

func (h *AuctionHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Fail(c, http.StatusBadRequest, "q is required", nil)
		return
	}
	auctions, err := h.Svc.Search(c.Request.Context(), q, 20)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, auctions, "search results", map[string]any{"count": len(auctions)})
}

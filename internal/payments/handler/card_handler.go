package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SwiftFiat/SwiftFiat-Cards/api/apistrings"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/common/execution"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/mapper"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/repository"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/service"
	"github.com/SwiftFiat/SwiftFiat-Cards/models"
	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type CardUseCases interface {
	AddCard(ctx context.Context, currency string) (*domain.Card, error)
	AddTransaction(ctx context.Context, number domain.CardNumber, amount domain.Money, kind domain.TransactionType) (domain.TransactionID, error)
	GetCard(ctx context.Context, number domain.CardNumber) (*domain.Card, error)
	GetCards(ctx context.Context, page repository.PageSpec) (repository.ResultPage[*domain.Card], error)
}

type CardDependencies struct {
	Router  *gin.Engine
	Logger  *logging.Logger
	Service CardUseCases
}

type CardHandler struct {
	router  *gin.Engine
	logger  *logging.Logger
	service CardUseCases
}

type AddCardRequest struct {
	CurrencyCode string `json:"currency_code" binding:"required,len=3,uppercase,alpha"`
}

type AddTransactionRequest struct {
	Amount       json.Number `json:"amount" binding:"required,decimal_range=1~100"`
	CurrencyCode string      `json:"currency_code" binding:"required,len=3,uppercase,alpha"`
	Type         string      `json:"type" binding:"required,oneof=IN OUT"`
}

type PageQuery struct {
	PageNumber int `form:"page_number,default=0"`
	PageSize   int `form:"page_size,default=10"`
}

func NewCardHandler(d *CardDependencies) *CardHandler {
	return &CardHandler{
		router:  d.Router,
		logger:  d.Logger,
		service: d.Service,
	}
}

func (h *CardHandler) RegisterRoutes() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("decimal_range", decimalRange)
	}

	cards := h.router.Group("/api/cards")
	cards.POST("", h.addCard)
	cards.GET("", h.getCards)
	cards.GET("/:number", h.getCard)
	cards.POST("/:number/transactions", h.addTransaction)
}

func (h *CardHandler) addCard(ctx *gin.Context) {
	var request AddCardRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.InvalidCardInput, bindingErrors(err)...))
		return
	}

	card, err := h.service.AddCard(ctx.Request.Context(), request.CurrencyCode)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.Header("Location", fmt.Sprintf("/api/cards/%s", card.Number()))
	ctx.JSON(http.StatusCreated, models.NewSuccess(apistrings.CardCreated, mapper.ToAddCardResponse(card)))
}

func (h *CardHandler) addTransaction(ctx *gin.Context) {
	var request AddTransactionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.InvalidTransactionInput, bindingErrors(err)...))
		return
	}

	kind, err := domain.ParseTransactionType(request.Type)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.InvalidTransactionType))
		return
	}

	value, err := decimal.NewFromString(request.Amount.String())
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.InvalidTransactionInput))
		return
	}

	number := domain.CardNumber(ctx.Param("number"))
	amount := domain.NewMoney(value, request.CurrencyCode)
	id, err := h.service.AddTransaction(ctx.Request.Context(), number, amount, kind)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, models.NewSuccess(apistrings.TransactionAdded, domain.AddTransactionResponse{TransactionID: id.String()}))
}

func (h *CardHandler) getCard(ctx *gin.Context) {
	card, err := h.service.GetCard(ctx.Request.Context(), domain.CardNumber(ctx.Param("number")))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.CardFetched, mapper.ToCardResponse(card)))
}

func (h *CardHandler) getCards(ctx *gin.Context) {
	var query PageQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.InvalidPageInput))
		return
	}

	page, err := h.service.GetCards(ctx.Request.Context(), repository.PageSpec{Index: query.PageNumber, Size: query.PageSize})
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	summaries := repository.MapPage(page, mapper.ToCardSummaryResponse)
	ctx.JSON(http.StatusOK, models.NewSuccess(apistrings.CardsFetched, domain.CardCollectionResponse{
		Content:    summaries.Content,
		PageNumber: summaries.PageSpec.Index,
		PageSize:   summaries.PageSpec.Size,
		TotalPages: summaries.TotalPages,
	}))
}

func (h *CardHandler) respondError(ctx *gin.Context, err error) {
	switch service.ClassifyError(err) {
	case execution.KindValidation:
		var vErr *execution.ValidationError
		var details []string
		if errors.As(err, &vErr) {
			for _, v := range vErr.Violations {
				details = append(details, fmt.Sprintf("%s - %s", v.Field, v.Message))
			}
		}
		ctx.JSON(http.StatusBadRequest, models.NewError(apistrings.ValidationFailed, details...))
	case execution.KindNotFound:
		ctx.JSON(http.StatusNotFound, models.NewError(apistrings.CardNotFound))
	case execution.KindInvariantViolation:
		ctx.JSON(http.StatusBadRequest, models.NewError(invariantMessage(err)))
	default:
		h.logger.WithFields(logrus.Fields{
			"path":  ctx.FullPath(),
			"error": err.Error(),
		}).Error("request failed")
		ctx.JSON(http.StatusInternalServerError, models.NewError(apistrings.ServerError))
	}
}

func invariantMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return apistrings.InsufficientBalance
	case errors.Is(err, domain.ErrCurrencyMismatch):
		return apistrings.CurrencyMismatch
	}
	return err.Error()
}

func bindingErrors(err error) []string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, fmt.Sprintf("%s - failed on '%s' constraint", fe.Field(), fe.Tag()))
	}
	return out
}

// decimalRange checks a decimal string against "min~max", both inclusive.
func decimalRange(fl validator.FieldLevel) bool {
	value, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	bounds := strings.SplitN(fl.Param(), "~", 2)
	if len(bounds) != 2 {
		return false
	}
	lower, err := decimal.NewFromString(bounds[0])
	if err != nil {
		return false
	}
	upper, err := decimal.NewFromString(bounds[1])
	if err != nil {
		return false
	}
	return value.GreaterThanOrEqual(lower) && value.LessThanOrEqual(upper)
}

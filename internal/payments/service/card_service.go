package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SwiftFiat/SwiftFiat-Cards/internal/common/execution"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/domain"
	"github.com/SwiftFiat/SwiftFiat-Cards/internal/payments/repository"
	"github.com/SwiftFiat/SwiftFiat-Cards/services/monitoring/logging"
	"github.com/sirupsen/logrus"
)

const (
	DefaultRetryAttempts       = 3
	DefaultMinCardNumberLength = 16
	expirationYears            = 1
)

// Options configures the execution pipelines wrapped around each use case.
type Options struct {
	TxManager           execution.TransactionManager
	TxTimeout           time.Duration
	RetryAttempts       int
	Locks               *execution.LockRegistry
	TimingSink          execution.TimingSink
	TimerUnit           execution.TimeUnit
	MinCardNumberLength int
	// Retryable narrows retries to the failures the store reports as
	// transient. Nil retries everything that is not a domain error.
	Retryable func(err error) bool
}

type AddTransactionInput struct {
	CardNumber domain.CardNumber
	Amount     domain.Money
	Type       domain.TransactionType
}

type addedTransaction struct {
	id     domain.TransactionID
	events []domain.TransactionRegistered
}

type CardService struct {
	repo      repository.CardRepository
	generator CardNumberGenerator
	clock     DateTimeProvider
	publisher TransactionEventPublisher
	logger    *logging.Logger

	addCard        execution.Handler[string, *domain.Card]
	addTransaction execution.Handler[AddTransactionInput, addedTransaction]
	getCard        execution.Handler[domain.CardNumber, *domain.Card]
	getCards       execution.Handler[repository.PageSpec, repository.ResultPage[*domain.Card]]
}

func NewCardService(
	repo repository.CardRepository,
	generator CardNumberGenerator,
	clock DateTimeProvider,
	publisher TransactionEventPublisher,
	logger *logging.Logger,
	opts Options,
) *CardService {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.TxManager == nil {
		opts.TxManager = execution.NoopTransactionManager{}
	}
	if opts.Locks == nil {
		opts.Locks = execution.DefaultLockRegistry
	}
	if opts.TimingSink == nil {
		opts.TimingSink = execution.LogSink{Logger: logger}
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = DefaultRetryAttempts
	}
	if opts.MinCardNumberLength <= 0 {
		opts.MinCardNumberLength = DefaultMinCardNumberLength
	}

	s := &CardService{
		repo:      repo,
		generator: generator,
		clock:     clock,
		publisher: publisher,
		logger:    logger,
	}

	writeTx := execution.TxOptions{Timeout: opts.TxTimeout}
	readTx := execution.TxOptions{Timeout: opts.TxTimeout, ReadOnly: true}
	fatal := []func(error) bool{domain.IsNotFound, domain.IsInvariantViolation}
	if opts.Retryable != nil {
		storeRetryable := opts.Retryable
		fatal = append(fatal, func(err error) bool { return !storeRetryable(err) })
	}
	retry := execution.RetryPolicy{
		MaxAttempts: opts.RetryAttempts,
		Retryable:   execution.RetryUnless(fatal...),
	}

	// Retry sits outside Atomic so every attempt runs in a fresh transaction.
	s.addCard = execution.NewPipeline[string, *domain.Card]("AddCard").
		Use(
			execution.Timer[string, *domain.Card](opts.TimingSink, opts.TimerUnit),
			execution.Validate[string, *domain.Card](currencyRule),
			execution.Retry[string, *domain.Card](retry, logger),
			execution.Atomic[string, *domain.Card](opts.TxManager, writeTx, logger),
		).
		Wrap(s.handleAddCard)

	s.addTransaction = execution.NewPipeline[AddTransactionInput, addedTransaction]("AddTransaction").
		Use(
			execution.Timer[AddTransactionInput, addedTransaction](opts.TimingSink, opts.TimerUnit),
			execution.Validate[AddTransactionInput, addedTransaction](
				execution.MinLength("cardNumber", func(in AddTransactionInput) string { return in.CardNumber.String() }, opts.MinCardNumberLength),
			),
			execution.Lock[AddTransactionInput, addedTransaction](opts.Locks, execution.LockWrite, func(in AddTransactionInput) string { return in.CardNumber.String() }),
			execution.Retry[AddTransactionInput, addedTransaction](retry, logger),
			execution.Atomic[AddTransactionInput, addedTransaction](opts.TxManager, writeTx, logger),
		).
		Wrap(s.handleAddTransaction)

	s.getCard = execution.NewPipeline[domain.CardNumber, *domain.Card]("GetCard").
		Use(
			execution.Lock[domain.CardNumber, *domain.Card](opts.Locks, execution.LockRead, func(n domain.CardNumber) string { return n.String() }),
			execution.Atomic[domain.CardNumber, *domain.Card](opts.TxManager, readTx, logger),
		).
		Wrap(s.handleGetCard)

	s.getCards = execution.NewPipeline[repository.PageSpec, repository.ResultPage[*domain.Card]]("GetCards").
		Use(
			execution.Validate[repository.PageSpec, repository.ResultPage[*domain.Card]](
				execution.Struct(func(p repository.PageSpec) any { return p }),
			),
			execution.Atomic[repository.PageSpec, repository.ResultPage[*domain.Card]](opts.TxManager, readTx, logger),
		).
		Wrap(s.handleGetCards)

	return s
}

// ResumeNumbering moves a counter based generator past the cards the
// repository already holds. Other generators are left alone.
func ResumeNumbering(ctx context.Context, generator CardNumberGenerator, repo repository.CardRepository, txManager execution.TransactionManager, timeout time.Duration) error {
	resumable, ok := generator.(interface{ StartAfter(int64) })
	if !ok {
		return nil
	}
	if txManager == nil {
		txManager = execution.NoopTransactionManager{}
	}

	count := execution.NewPipeline[repository.PageSpec, repository.ResultPage[*domain.Card]]("ResumeNumbering").
		Use(execution.Atomic[repository.PageSpec, repository.ResultPage[*domain.Card]](txManager, execution.TxOptions{Timeout: timeout, ReadOnly: true}, nil)).
		Wrap(repo.FindAll)
	page, err := count(ctx, repository.PageSpec{Index: 0, Size: 1})
	if err != nil {
		return fmt.Errorf("count issued cards: %w", err)
	}
	resumable.StartAfter(int64(page.TotalPages))
	return nil
}

func currencyRule(currency string) error {
	if _, err := domain.ParseCurrency(currency); err != nil {
		return execution.NewValidationError(execution.FieldViolation{
			Field:      "currency",
			Constraint: "iso4217",
			Message:    "Value must be a three letter currency code",
		})
	}
	return nil
}

// AddCard issues a card with a fresh number, no transactions and an
// expiration date one year from now.
func (s *CardService) AddCard(ctx context.Context, currency string) (*domain.Card, error) {
	return s.addCard(ctx, currency)
}

// AddTransaction registers a transaction on the card and returns its id.
// Events raised by the card are published once the transaction has been
// committed.
func (s *CardService) AddTransaction(ctx context.Context, number domain.CardNumber, amount domain.Money, kind domain.TransactionType) (domain.TransactionID, error) {
	log := s.logger.WithFields(logrus.Fields{
		"card_number": number.String(),
		"type":        string(kind),
		"amount":      amount.String(),
	})
	log.Info("Transaction start")
	defer log.Info("Transaction end")

	result, err := s.addTransaction(ctx, AddTransactionInput{CardNumber: number, Amount: amount, Type: kind})
	if err != nil {
		log.WithFields(logrus.Fields{
			"error":      err.Error(),
			"error_kind": ClassifyError(err),
		}).Info(fmt.Sprintf("Transaction on card %s failed", number))
		return domain.TransactionID{}, err
	}

	for _, event := range result.events {
		s.publisher.Publish(ctx, TransactionAdded{
			CardNumber:    event.CardNumber.String(),
			TransactionID: event.Transaction.ID.String(),
			Type:          string(event.Transaction.Type),
		})
	}
	log.Info(fmt.Sprintf("Transaction on card %s successfully completed", number))
	return result.id, nil
}

func (s *CardService) GetCard(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	return s.getCard(ctx, number)
}

func (s *CardService) GetCards(ctx context.Context, page repository.PageSpec) (repository.ResultPage[*domain.Card], error) {
	return s.getCards(ctx, page)
}

func (s *CardService) handleAddCard(ctx context.Context, currency string) (*domain.Card, error) {
	number, err := s.generator.Next()
	if err != nil {
		return nil, fmt.Errorf("generate card number: %w", err)
	}

	if _, err := s.repo.FindByNumber(ctx, number); err == nil {
		return nil, domain.NewCardError(domain.ErrDuplicateCardNumber, number)
	} else if !domain.IsNotFound(err) {
		return nil, err
	}

	card := domain.NewCard(domain.NewCardID(), number, ExpirationDate(s.clock.Now()), currency)
	saved, err := s.repo.Save(ctx, card)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"card_number": number.String(),
		"currency":    currency,
	}).Info("card issued")
	return saved, nil
}

func (s *CardService) handleAddTransaction(ctx context.Context, in AddTransactionInput) (addedTransaction, error) {
	card, err := s.repo.FindByNumber(ctx, in.CardNumber)
	if err != nil {
		if errors.Is(err, domain.ErrCardNotFound) {
			return addedTransaction{}, domain.NewCardError(domain.ErrCardNotFound, in.CardNumber)
		}
		return addedTransaction{}, err
	}

	tx := domain.NewTransaction(domain.NewTransactionID(), s.clock.Now(), in.Amount, in.Type)
	events, err := card.RegisterTransaction(tx)
	if err != nil {
		return addedTransaction{}, err
	}

	if _, err := s.repo.Save(ctx, card); err != nil {
		return addedTransaction{}, err
	}
	return addedTransaction{id: tx.ID, events: events}, nil
}

func (s *CardService) handleGetCard(ctx context.Context, number domain.CardNumber) (*domain.Card, error) {
	card, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, domain.ErrCardNotFound) {
			return nil, domain.NewCardError(domain.ErrCardNotFound, number)
		}
		return nil, err
	}
	return card, nil
}

func (s *CardService) handleGetCards(ctx context.Context, page repository.PageSpec) (repository.ResultPage[*domain.Card], error) {
	return s.repo.FindAll(ctx, page)
}

// ExpirationDate is the calendar date one year after now, in now's location.
// February 29 maps to February 28 of the following year.
func ExpirationDate(now time.Time) time.Time {
	year, month, day := now.Year()+expirationYears, now.Month(), now.Day()
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, now.Location())
}

// ClassifyError maps err onto the execution error kinds.
func ClassifyError(err error) execution.Kind {
	return execution.Classify(err, func(err error) execution.Kind {
		switch {
		case domain.IsNotFound(err):
			return execution.KindNotFound
		case domain.IsInvariantViolation(err):
			return execution.KindInvariantViolation
		}
		return ""
	})
}

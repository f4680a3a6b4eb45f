package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mediqueue/mediqueue/internal/domain/patient"
	"github.com/mediqueue/mediqueue/internal/domain/queue"
	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/notification"
	"github.com/mediqueue/mediqueue/internal/platform/telemetry"
	"github.com/mediqueue/mediqueue/internal/platform/websocket"
	"github.com/mediqueue/mediqueue/pkg/display"
)

// ClinicNamer supplies the clinic name printed on receipts.
type ClinicNamer interface {
	ClinicName(ctx context.Context) string
}

const analyticsMonths = 12

var datePrefix = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

type Service struct {
	txns    TransactionRepository
	visits  VisitRepository
	clinic  ClinicNamer
	notify  notification.Publisher
	events  websocket.EventPublisher
	metrics *telemetry.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithNotifications(p notification.Publisher) Option { return func(s *Service) { s.notify = p } }

func WithEvents(p websocket.EventPublisher) Option { return func(s *Service) { s.events = p } }

func WithMetrics(m *telemetry.Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(txns TransactionRepository, visits VisitRepository, clinic ClinicNamer, opts ...Option) *Service {
	s := &Service{txns: txns, visits: visits, clinic: clinic, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ListTransactions(ctx context.Context, f Filter) ([]*Transaction, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validation("invalid transaction status: %s", f.Status)
	}
	if f.Method != "" && !ValidMethod(f.Method) {
		return nil, 0, apperr.Validation("invalid payment method: %s", f.Method)
	}
	if f.Date != "" && !datePrefix.MatchString(f.Date) {
		return nil, 0, apperr.Validation("date must be YYYY, YYYY-MM or YYYY-MM-DD")
	}
	f.Search = strings.TrimSpace(f.Search)
	return s.txns.List(ctx, f)
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	return s.txns.GetByID(ctx, id)
}

// PendingVisits lists visits whose patients chose to pay at the clinic.
func (s *Service) PendingVisits(ctx context.Context) ([]*BillableVisit, error) {
	visits, err := s.visits.ListPayAtClinic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending visits: %w", err)
	}
	if visits == nil {
		visits = []*BillableVisit{}
	}
	return visits, nil
}

// Analytics reports revenue totals and the completed revenue of the last
// twelve calendar months, oldest first, with empty months as zero.
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	now := s.now()
	totals, err := s.txns.Totals(ctx, now.Format(display.DayLayout))
	if err != nil {
		return nil, fmt.Errorf("revenue totals: %w", err)
	}
	start := time.Date(now.Year(), now.Month()-analyticsMonths+1, 1, 0, 0, 0, 0, now.Location())
	byMonth, err := s.txns.MonthlyRevenue(ctx, start.Format(display.DayLayout))
	if err != nil {
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	series := make([]MonthRevenue, analyticsMonths)
	for i := range series {
		month := start.AddDate(0, i, 0).Format("2006-01")
		series[i] = MonthRevenue{Month: month, Revenue: byMonth[month]}
	}
	return &Analytics{Totals: *totals, MonthlyRevenue: series}, nil
}

// ProcessPayment records a completed transaction for the visit and then marks
// the visit paid. The two writes are independent: when the visit update fails
// the transaction stands and the error is returned.
func (s *Service) ProcessPayment(ctx context.Context, req PaymentRequest) (*Transaction, error) {
	if req.VisitID == uuid.Nil {
		return nil, apperr.Validation("Please select a visit and enter amount")
	}
	if req.Amount < 0 {
		return nil, apperr.Validation("amount must not be negative")
	}
	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		method = MethodCash
	}
	if !ValidMethod(method) {
		return nil, apperr.Validation("invalid payment method: %s", req.PaymentMethod)
	}

	v, err := s.visits.GetVisit(ctx, req.VisitID)
	if err != nil {
		return nil, err
	}
	switch v.PaymentStatus {
	case queue.PaymentPayAtClinic, queue.PaymentPending:
	default:
		return nil, apperr.Conflict("visit payment is already %s", v.PaymentStatus)
	}

	amount := req.Amount
	if amount == 0 {
		amount = v.ConsultationFee
	}
	if amount == 0 {
		amount = DefaultFee
	}
	processed := s.now().UTC()
	t := &Transaction{
		VisitID:       v.ID,
		PatientID:     v.PatientID,
		Amount:        amount,
		PaymentMethod: method,
		Status:        StatusCompleted,
		TransactionID: optional(req.TransactionID),
		Notes:         optional(req.Notes),
		ProcessedAt:   &processed,
	}
	if err := s.txns.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	s.metrics.ObservePayment(method, StatusCompleted, amount)

	if err := s.visits.SetPaymentStatus(ctx, v.ID, queue.PaymentPaid); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("visit_id", v.ID.String()).Str("transaction", t.ID.String()).
			Msg("transaction recorded but visit not marked paid")
		return nil, fmt.Errorf("mark visit paid: %w", err)
	}
	v.PaymentStatus = queue.PaymentPaid
	t.Patient = v.Patient
	t.Visit = &v.VisitRef

	s.publish(notification.KindSuccess, "Payment processed", "Payment processed successfully!")
	s.changed(ctx, "payment.completed", t)
	return t, nil
}

// Refund reverses a completed transaction and marks its visit refunded.
func (s *Service) Refund(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	t, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusCompleted {
		return nil, apperr.Conflict("only completed transactions can be refunded, this one is %s", t.Status)
	}
	if err := s.txns.UpdateStatus(ctx, id, StatusCompleted, StatusRefunded); err != nil {
		return nil, err
	}
	t.Status = StatusRefunded
	t.UpdatedAt = s.now().UTC()
	s.metrics.ObservePayment(t.PaymentMethod, StatusRefunded, t.Amount)

	if err := s.visits.SetPaymentStatus(ctx, t.VisitID, queue.PaymentRefunded); err != nil {
		return nil, fmt.Errorf("mark visit refunded: %w", err)
	}
	if t.Visit != nil {
		t.Visit.PaymentStatus = queue.PaymentRefunded
	}
	s.publish(notification.KindInfo, "Payment refunded", display.FormatCurrency(t.Amount)+" refunded")
	s.changed(ctx, "payment.refunded", t)
	return t, nil
}

// Document is a rendered downloadable file.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

func (s *Service) Receipt(ctx context.Context, id uuid.UUID) (*Document, error) {
	t, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	body, err := renderReceipt(s.clinic.ClinicName(ctx), t)
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return &Document{
		Filename:    "receipt_" + receiptNumber(t) + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        body,
	}, nil
}

func optional(s string) *string {
	if s = patient.Sanitize(s); s == "" {
		return nil
	}
	return &s
}

func (s *Service) publish(kind notification.Kind, title, message string) {
	if s.notify == nil {
		return
	}
	s.notify.Publish(notification.Notification{Kind: kind, Title: title, Message: message})
}

func (s *Service) changed(ctx context.Context, eventType string, t *Transaction) {
	if s.events == nil {
		return
	}
	data, _ := json.Marshal(t)
	err := s.events.Publish(ctx, websocket.Event{
		Type:       eventType,
		Topic:      websocket.TopicBilling,
		Resource:   "payment_transaction",
		ResourceID: t.ID.String(),
		Timestamp:  s.now().UTC(),
		Data:       data,
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("transaction", t.ID.String()).Msg("billing event publish failed")
	}
}

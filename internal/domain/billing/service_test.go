package billing

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mediqueue/mediqueue/internal/domain/queue"
	"github.com/mediqueue/mediqueue/internal/platform/apperr"
	"github.com/mediqueue/mediqueue/internal/platform/notification"
	"github.com/mediqueue/mediqueue/internal/platform/websocket"
)

// -- Mocks --

type mockTxnRepo struct {
	store map[uuid.UUID]*Transaction
	order []uuid.UUID
}

func newMockTxnRepo() *mockTxnRepo {
	return &mockTxnRepo{store: make(map[uuid.UUID]*Transaction)}
}

func (m *mockTxnRepo) Create(_ context.Context, t *Transaction) error {
	t.ID = uuid.New()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = testNow
	}
	t.UpdatedAt = t.CreatedAt
	cp := *t
	m.store[t.ID] = &cp
	m.order = append(m.order, t.ID)
	return nil
}

func (m *mockTxnRepo) GetByID(_ context.Context, id uuid.UUID) (*Transaction, error) {
	t, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Transaction")
	}
	cp := *t
	return &cp, nil
}

func (m *mockTxnRepo) List(_ context.Context, f Filter) ([]*Transaction, int, error) {
	var out []*Transaction
	for _, id := range m.order {
		t := m.store[id]
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Method != "" && t.PaymentMethod != f.Method {
			continue
		}
		if f.Date != "" && !strings.HasPrefix(t.CreatedAt.Format(time.RFC3339), f.Date) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *mockTxnRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) error {
	t, ok := m.store[id]
	if !ok {
		return apperr.NotFound("Transaction")
	}
	if t.Status != from {
		return apperr.Conflict("transaction is no longer %s", from)
	}
	t.Status = to
	return nil
}

func (m *mockTxnRepo) Totals(_ context.Context, day string) (*Totals, error) {
	var out Totals
	for _, t := range m.store {
		switch t.Status {
		case StatusCompleted:
			out.TotalRevenue += t.Amount
			out.CompletedCount++
			if t.CreatedAt.Format("2006-01-02") == day {
				out.TodayRevenue += t.Amount
			}
		case StatusPending:
			out.PendingAmount += t.Amount
		}
	}
	return &out, nil
}

func (m *mockTxnRepo) MonthlyRevenue(_ context.Context, from string) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, t := range m.store {
		if t.Status == StatusCompleted && t.CreatedAt.Format("2006-01-02") >= from {
			out[t.CreatedAt.Format("2006-01")] += t.Amount
		}
	}
	return out, nil
}

type mockVisits struct {
	store   map[uuid.UUID]*BillableVisit
	failSet error
}

func (m *mockVisits) GetVisit(_ context.Context, id uuid.UUID) (*BillableVisit, error) {
	v, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("Visit")
	}
	cp := *v
	return &cp, nil
}

func (m *mockVisits) ListPayAtClinic(context.Context) ([]*BillableVisit, error) {
	var out []*BillableVisit
	for _, v := range m.store {
		if v.PaymentStatus == queue.PaymentPayAtClinic {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockVisits) SetPaymentStatus(_ context.Context, id uuid.UUID, status string) error {
	if m.failSet != nil {
		return m.failSet
	}
	v, ok := m.store[id]
	if !ok {
		return apperr.NotFound("Visit")
	}
	v.PaymentStatus = status
	return nil
}

type fixedClinic string

func (f fixedClinic) ClinicName(context.Context) string { return string(f) }

type recorder struct{ events []websocket.Event }

func (r *recorder) Publish(_ context.Context, e websocket.Event) error {
	r.events = append(r.events, e)
	return nil
}

var testNow = time.Date(2026, time.March, 7, 11, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	txns   *mockTxnRepo
	visits *mockVisits
	bus    *notification.Bus
	events *recorder
}

func newFixture() *fixture {
	f := &fixture{
		txns:   newMockTxnRepo(),
		visits: &mockVisits{store: make(map[uuid.UUID]*BillableVisit)},
		bus:    notification.NewBus(nil),
		events: &recorder{},
	}
	f.svc = NewService(f.txns, f.visits, fixedClinic("Sancura Hospital"),
		WithNotifications(f.bus), WithEvents(f.events))
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) addVisit(status string, fee float64) *BillableVisit {
	doc := "Dr. Mehta"
	v := &BillableVisit{
		ID:        uuid.New(),
		PatientID: uuid.New(),
		Patient:   &PatientRef{UID: "CLN1-0001", Name: "Asha Rao", Phone: "9876543210"},
		VisitRef: VisitRef{STN: 4, Department: "general", DepartmentName: "General Medicine",
			VisitDate: "2026-03-07", PaymentStatus: status, DoctorName: &doc, ConsultationFee: fee},
		CreatedAt: testNow,
	}
	f.visits.store[v.ID] = v
	return v
}

// -- Tests --

func TestService_ProcessPayment(t *testing.T) {
	f := newFixture()
	v := f.addVisit(queue.PaymentPayAtClinic, 300)

	txn, err := f.svc.ProcessPayment(context.Background(), PaymentRequest{VisitID: v.ID, Amount: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.Amount != 500 || txn.Status != StatusCompleted || txn.PaymentMethod != MethodCash {
		t.Errorf("unexpected transaction %+v", txn)
	}
	if txn.ProcessedAt == nil || !txn.ProcessedAt.Equal(testNow) {
		t.Errorf("expected processed timestamp, got %v", txn.ProcessedAt)
	}
	stored := f.txns.store[txn.ID]
	if stored == nil || stored.Status != StatusCompleted || stored.Amount != 500 || stored.PatientID != v.PatientID {
		t.Errorf("expected a completed stored transaction, got %+v", stored)
	}
	if f.visits.store[v.ID].PaymentStatus != queue.PaymentPaid {
		t.Errorf("expected visit paid, got %s", f.visits.store[v.ID].PaymentStatus)
	}
	if len(f.events.events) != 1 || f.events.events[0].Topic != websocket.TopicBilling {
		t.Errorf("expected one billing event, got %+v", f.events.events)
	}
	if n := f.bus.Active(); len(n) != 1 || n[0].Message != "Payment processed successfully!" {
		t.Errorf("unexpected notifications %+v", n)
	}
}

func TestService_ProcessPayment_DefaultAmount(t *testing.T) {
	f := newFixture()
	withFee := f.addVisit(queue.PaymentPayAtClinic, 300)
	noFee := f.addVisit(queue.PaymentPending, 0)

	a, err := f.svc.ProcessPayment(context.Background(), PaymentRequest{VisitID: withFee.ID, PaymentMethod: "UPI"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Amount != 300 || a.PaymentMethod != MethodUPI {
		t.Errorf("expected department fee via upi, got %v %s", a.Amount, a.PaymentMethod)
	}
	b, err := f.svc.ProcessPayment(context.Background(), PaymentRequest{VisitID: noFee.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Amount != DefaultFee {
		t.Errorf("expected default fee, got %v", b.Amount)
	}
}

func TestService_ProcessPayment_Rejections(t *testing.T) {
	f := newFixture()
	paid := f.addVisit(queue.PaymentPaid, 300)
	open := f.addVisit(queue.PaymentPayAtClinic, 300)

	tests := []struct {
		name string
		req  PaymentRequest
		kind apperr.Kind
	}{
		{"no visit", PaymentRequest{Amount: 100}, apperr.KindValidation},
		{"negative amount", PaymentRequest{VisitID: open.ID, Amount: -1}, apperr.KindValidation},
		{"bad method", PaymentRequest{VisitID: open.ID, PaymentMethod: "cheque"}, apperr.KindValidation},
		{"unknown visit", PaymentRequest{VisitID: uuid.New()}, apperr.KindNotFound},
		{"already paid", PaymentRequest{VisitID: paid.ID}, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ProcessPayment(context.Background(), tt.req)
			if !apperr.Is(err, tt.kind) {
				t.Errorf("expected %v, got %v", tt.kind, err)
			}
		})
	}
	if len(f.txns.store) != 0 {
		t.Error("no transaction may be recorded on rejection")
	}
}

func TestService_ProcessPayment_VisitUpdateFails(t *testing.T) {
	f := newFixture()
	v := f.addVisit(queue.PaymentPayAtClinic, 300)
	f.visits.failSet = errors.New("connection reset")

	if _, err := f.svc.ProcessPayment(context.Background(), PaymentRequest{VisitID: v.ID}); err == nil {
		t.Fatal("expected error")
	}
	if len(f.txns.store) != 1 {
		t.Error("the transaction is written before the visit update and stays")
	}
	if f.visits.store[v.ID].PaymentStatus != queue.PaymentPayAtClinic {
		t.Error("visit must not be marked paid")
	}
}

func TestService_Refund(t *testing.T) {
	f := newFixture()
	v := f.addVisit(queue.PaymentPayAtClinic, 300)
	txn, _ := f.svc.ProcessPayment(context.Background(), PaymentRequest{VisitID: v.ID})

	got, err := f.svc.Refund(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusRefunded || f.txns.store[txn.ID].Status != StatusRefunded {
		t.Errorf("expected refunded, got %s", got.Status)
	}
	if f.visits.store[v.ID].PaymentStatus != queue.PaymentRefunded {
		t.Errorf("expected visit refunded, got %s", f.visits.store[v.ID].PaymentStatus)
	}
	if _, err := f.svc.Refund(context.Background(), txn.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("expected conflict on second refund, got %v", err)
	}
}

func TestService_Analytics(t *testing.T) {
	f := newFixture()
	add := func(at time.Time, amount float64, status string) {
		f.txns.Create(context.Background(), &Transaction{Amount: amount, Status: status, PaymentMethod: MethodCash, CreatedAt: at})
	}
	add(testNow, 500, StatusCompleted)
	add(testNow.Add(-2*time.Hour), 250, StatusCompleted)
	add(testNow.AddDate(0, 0, -10), 400, StatusCompleted)
	add(time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC), 100, StatusCompleted)
	add(time.Date(2025, time.March, 31, 10, 0, 0, 0, time.UTC), 900, StatusCompleted)
	add(testNow, 200, StatusPending)
	add(testNow, 700, StatusFailed)

	a, err := f.svc.Analytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.TotalRevenue != 2150 || a.TodayRevenue != 750 || a.PendingAmount != 200 || a.CompletedCount != 5 {
		t.Errorf("unexpected totals %+v", a.Totals)
	}
	if len(a.MonthlyRevenue) != 12 {
		t.Fatalf("expected 12 months, got %d", len(a.MonthlyRevenue))
	}
	first, last := a.MonthlyRevenue[0], a.MonthlyRevenue[11]
	if first.Month != "2025-04" || first.Revenue != 100 {
		t.Errorf("expected oldest month first, got %+v", first)
	}
	if last.Month != "2026-03" || last.Revenue != 750 {
		t.Errorf("expected current month last, got %+v", last)
	}
	if a.MonthlyRevenue[10].Month != "2026-02" || a.MonthlyRevenue[10].Revenue != 400 {
		t.Errorf("unexpected previous month %+v", a.MonthlyRevenue[10])
	}
	if a.MonthlyRevenue[5].Revenue != 0 {
		t.Errorf("empty months should be zero, got %+v", a.MonthlyRevenue[5])
	}
}

func TestService_PendingVisits(t *testing.T) {
	f := newFixture()
	f.addVisit(queue.PaymentPayAtClinic, 300)
	f.addVisit(queue.PaymentPaid, 300)

	visits, err := f.svc.PendingVisits(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(visits) != 1 || visits[0].PaymentStatus != queue.PaymentPayAtClinic {
		t.Errorf("expected one pay-at-clinic visit, got %d", len(visits))
	}

	empty, _ := newFixture().svc.PendingVisits(context.Background())
	if empty == nil {
		t.Error("expected empty, non-nil slice")
	}
}

func TestService_ListTransactions_InvalidFilters(t *testing.T) {
	f := newFixture()
	for _, bad := range []Filter{{Status: "void"}, {Method: "cheque"}, {Date: "07/03/2026"}} {
		if _, _, err := f.svc.ListTransactions(context.Background(), bad); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("expected validation error for %+v, got %v", bad, err)
		}
	}
	if _, _, err := f.svc.ListTransactions(context.Background(), Filter{Date: "2026-03"}); err != nil {
		t.Errorf("month prefix should be accepted: %v", err)
	}
}

func TestService_Receipt(t *testing.T) {
	f := newFixture()
	v := f.addVisit(queue.PaymentPayAtClinic, 300)
	v.Patient.Name = "Asha <Rao>"
	txn, _ := f.svc.ProcessPayment(context.Background(), PaymentRequest{VisitID: v.ID, Amount: 1500, TransactionID: "UPI-778"})
	f.txns.store[txn.ID].Patient = v.Patient
	f.txns.store[txn.ID].Visit = &v.VisitRef

	doc, err := f.svc.Receipt(context.Background(), txn.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := string(doc.Body)
	if doc.Filename != "receipt_"+strings.ToUpper(txn.ID.String()[:8])+".html" {
		t.Errorf("unexpected filename %s", doc.Filename)
	}
	for _, want := range []string{"Sancura Hospital", "₹1,500", "UPI-778", "Token Number:</strong> #4",
		"General Medicine", "Dr. Mehta", "Mar 07, 2026", "COMPLETED", "Asha &lt;Rao&gt;"} {
		if !strings.Contains(body, want) {
			t.Errorf("receipt missing %q", want)
		}
	}
}

func TestTransaction_Reference(t *testing.T) {
	txn := &Transaction{ID: uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")}
	if got := txn.Reference(); got != "1b4e28ba-2fa1" {
		t.Errorf("Reference() = %q", got)
	}
	ext := "RZP-1"
	txn.TransactionID = &ext
	if got := txn.Reference(); got != "RZP-1" {
		t.Errorf("Reference() = %q", got)
	}
}

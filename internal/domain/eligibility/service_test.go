package eligibility

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/domain/errs"
	"github.com/hms/hms/internal/domain/registry"
	"github.com/hms/hms/internal/platform/clock"
)

type mockEnrollmentRepo struct {
	items map[uuid.UUID]*Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{items: make(map[uuid.UUID]*Enrollment)}
}

func (m *mockEnrollmentRepo) Create(_ context.Context, e *Enrollment) error {
	e.ID = uuid.New()
	m.items[e.ID] = e
	return nil
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Enrollment, error) {
	e, ok := m.items[id]
	if !ok {
		return nil, errs.NotFound("enrollment", id.String())
	}
	return e, nil
}

func (m *mockEnrollmentRepo) LatestByPatient(_ context.Context, patientID uuid.UUID) (*Enrollment, error) {
	var latest *Enrollment
	for _, e := range m.items {
		if e.PatientID != patientID {
			continue
		}
		if latest == nil || e.EnrolledFrom.After(latest.EnrolledFrom) {
			latest = e
		}
	}
	if latest == nil {
		return nil, errs.NotFound("enrollment", patientID.String())
	}
	return latest, nil
}

func (m *mockEnrollmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Enrollment, int, error) {
	var items []*Enrollment
	for _, e := range m.items {
		if e.PatientID == patientID {
			items = append(items, e)
		}
	}
	return items, len(items), nil
}

func (m *mockEnrollmentRepo) Terminate(_ context.Context, id uuid.UUID, to time.Time) error {
	e, ok := m.items[id]
	if !ok {
		return errs.NotFound("enrollment", id.String())
	}
	e.EnrolledTo = &to
	return nil
}

type mockPackageReader struct {
	items map[uuid.UUID]*registry.Package
}

func (m *mockPackageReader) GetByID(_ context.Context, id uuid.UUID) (*registry.Package, error) {
	p, ok := m.items[id]
	if !ok {
		return nil, errs.NotFound("package", id.String())
	}
	return p, nil
}

type mockUsage struct {
	consumed decimal.Decimal
}

func (m *mockUsage) ConsumedAmount(_ context.Context, _, _ uuid.UUID, _, _ time.Time, _ []string) (decimal.Decimal, error) {
	return m.consumed, nil
}

var testNow = time.Date(2026, 8, 27, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc         *Service
	enrollments *mockEnrollmentRepo
	packages    *mockPackageReader
	usage       *mockUsage
}

func newFixture() *fixture {
	enrollments := newMockEnrollmentRepo()
	packages := &mockPackageReader{items: make(map[uuid.UUID]*registry.Package)}
	usage := &mockUsage{consumed: decimal.Zero}
	svc := NewService(enrollments, packages, usage, []string{"approved", "paid"}, clock.Fixed{T: testNow})
	return &fixture{svc: svc, enrollments: enrollments, packages: packages, usage: usage}
}

func (f *fixture) enroll(t *testing.T, patientID uuid.UUID, pkg *registry.Package, from time.Time, to *time.Time) *Enrollment {
	t.Helper()
	f.packages.items[pkg.ID] = pkg
	e := &Enrollment{PatientID: patientID, PackageID: pkg.ID, EnrolledFrom: from, EnrolledTo: to}
	if err := f.enrollments.Create(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func limitedPackage(limit string) *registry.Package {
	l, _ := decimal.NewFromString(limit)
	return &registry.Package{ID: uuid.New(), ProviderID: uuid.New(), Name: "Gold", AnnualLimit: &l}
}

func TestCheckNoEnrollment(t *testing.T) {
	f := newFixture()
	result, err := f.svc.Check(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Error("patient with no enrollment should not be eligible")
	}
	if result.Status != StatusNotEnrolled {
		t.Errorf("status = %s, want not_enrolled", result.Status)
	}
	if result.Message == "" {
		t.Error("result must carry a message")
	}
}

func TestCheckExpiredEnrollment(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	to := testNow.AddDate(0, -1, 0)
	f.enroll(t, patientID, limitedPackage("100000"), testNow.AddDate(-1, 0, 0), &to)

	result, err := f.svc.Check(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible || result.Status != StatusExpired {
		t.Errorf("got eligible=%v status=%s, want ineligible expired", result.Eligible, result.Status)
	}
}

func TestCheckFutureEnrollment(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	f.enroll(t, patientID, limitedPackage("100000"), testNow.AddDate(0, 1, 0), nil)

	result, err := f.svc.Check(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible || result.Status != StatusNotEnrolled {
		t.Errorf("got eligible=%v status=%s, want ineligible not_enrolled", result.Eligible, result.Status)
	}
}

func TestCheckExcludedServiceCode(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	excluded := uuid.New()
	pkg := limitedPackage("100000")
	pkg.ExcludedCodes = []uuid.UUID{excluded}
	f.enroll(t, patientID, pkg, testNow.AddDate(0, -6, 0), nil)

	result, err := f.svc.Check(context.Background(), patientID, &excluded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Error("excluded service code should not be eligible")
	}
	if !strings.Contains(result.Message, "not covered") {
		t.Errorf("message should explain the exclusion, got %q", result.Message)
	}
}

func TestCheckUnlimitedPackage(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	pkg := &registry.Package{ID: uuid.New(), ProviderID: uuid.New(), Name: "Platinum"}
	f.enroll(t, patientID, pkg, testNow.AddDate(0, -6, 0), nil)
	f.usage.consumed = decimal.NewFromInt(999999)

	result, err := f.svc.Check(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Error("unlimited package should always pass the limit step")
	}
	if result.CoverageRemaining != nil {
		t.Errorf("unlimited coverage must be reported as nil, got %s", result.CoverageRemaining)
	}
}

func TestCheckAnnualLimitExhausted(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	f.enroll(t, patientID, limitedPackage("100000"), testNow.AddDate(0, -6, 0), nil)
	f.usage.consumed, _ = decimal.NewFromString("100000.00")

	result, err := f.svc.Check(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible {
		t.Error("exhausted limit should make the patient ineligible")
	}
	if !strings.Contains(result.Message, "annual limit exhausted") {
		t.Errorf("message = %q, want mention of annual limit exhausted", result.Message)
	}
}

func TestCheckOneCentRemaining(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	f.enroll(t, patientID, limitedPackage("100000"), testNow.AddDate(0, -6, 0), nil)
	f.usage.consumed, _ = decimal.NewFromString("99999.99")

	result, err := f.svc.Check(context.Background(), patientID, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Error("patient with 0.01 remaining should still be eligible")
	}
	want, _ := decimal.NewFromString("0.01")
	if result.CoverageRemaining == nil || !result.CoverageRemaining.Equal(want) {
		t.Errorf("remaining = %v, want 0.01", result.CoverageRemaining)
	}
}

func TestPolicyYearAnchoredAtAnniversary(t *testing.T) {
	e := &Enrollment{EnrolledFrom: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}

	start, end := e.PolicyYear(time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	if !start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s", start)
	}
	if !end.Equal(time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %s", end)
	}

	// Before the anniversary the window starts in the previous year.
	start, _ = e.PolicyYear(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if !start.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s", start)
	}
}

func TestEnrollmentStatusBounds(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	e := &Enrollment{EnrolledFrom: from, EnrolledTo: &to}

	if got := e.StatusAt(from); got != StatusActive {
		t.Errorf("start day: got %s, want active", got)
	}
	if got := e.StatusAt(to.AddDate(0, 0, -1)); got != StatusActive {
		t.Errorf("last covered day: got %s, want active", got)
	}
	if got := e.StatusAt(to); got != StatusExpired {
		t.Errorf("end day: got %s, want expired", got)
	}
	if got := e.StatusAt(from.AddDate(0, 0, -1)); got != StatusNotEnrolled {
		t.Errorf("before start: got %s, want not_enrolled", got)
	}
}

func TestTerminateDefaultsToEndOfToday(t *testing.T) {
	f := newFixture()
	patientID := uuid.New()
	e := f.enroll(t, patientID, limitedPackage("100000"), testNow.AddDate(0, -6, 0), nil)

	if err := f.svc.Terminate(context.Background(), e.ID, time.Time{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.EnrolledTo == nil {
		t.Fatal("termination date not set")
	}
	// Today stays covered; coverage ends at the start of tomorrow.
	if e.StatusAt(testNow) != StatusActive {
		t.Error("enrollment should remain active for the rest of the day")
	}
	if e.StatusAt(testNow.AddDate(0, 0, 1)) != StatusExpired {
		t.Error("enrollment should be expired tomorrow")
	}
}

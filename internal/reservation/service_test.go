package reservation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
	"github.com/nekogravitycat/plot-booking-backend/internal/reservation"
	"github.com/nekogravitycat/plot-booking-backend/internal/testutil"
)

var (
	client      = auth.Actor{UserID: "client-1", Role: auth.RoleClient}
	otherClient = auth.Actor{UserID: "client-2", Role: auth.RoleClient}
	staff       = auth.Actor{UserID: "staff-1", Role: auth.RoleStaff}
	admin       = auth.Actor{UserID: "admin-1", Role: auth.RoleAdmin}

	graveA37 = catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-7"}
	slotM2   = catalog.Ref{Kind: catalog.KindColumbarium, ID: "M2A0305"}
)

type fixture struct {
	svc      reservation.Service
	ledger   *testutil.MemoryLedger
	catalogs *testutil.Catalogs
	events   *testutil.EventRecorder
}

func newFixture(resources ...*catalog.Resource) *fixture {
	f := &fixture{
		ledger:   testutil.NewMemoryLedger(),
		catalogs: testutil.NewCatalogs(resources...),
		events:   &testutil.EventRecorder{},
	}
	f.svc = reservation.NewService(f.ledger, f.catalogs.Registry, f.events)
	return f
}

func request(ref catalog.Ref) reservation.CreateRequest {
	return reservation.CreateRequest{
		Resource: ref,
		Client:   reservation.Client{Name: "Maria Santos", Email: "maria@example.com", Phone: "+639171234567"},
		Deceased: reservation.Deceased{Name: "Jose Santos", Relationship: "father"},
		Payment:  reservation.Payment{Amount: decimal.RequireFromString("15000.00"), Method: reservation.PaymentGCash},
	}
}

func TestClientCreateEntersPendingAndReservesResource(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))

	r, err := f.svc.Create(context.Background(), client, request(graveA37))
	require.NoError(t, err)

	assert.Equal(t, reservation.StatusPending, r.Status)
	assert.Nil(t, r.ApprovedBy)
	require.NotNil(t, r.ClientID)
	assert.Equal(t, client.UserID, *r.ClientID)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
	assert.Equal(t, []events.Type{events.ReservationCreated}, f.events.Types())
}

func TestStaffAndAdminCreateAreApprovedAtCreation(t *testing.T) {
	for _, actor := range []auth.Actor{staff, admin} {
		t.Run(string(actor.Role), func(t *testing.T) {
			f := newFixture(testutil.Grave("B-1-1", catalog.StatusAvailable))
			ref := catalog.Ref{Kind: catalog.KindGardenGrid, ID: "B-1-1"}

			r, err := f.svc.Create(context.Background(), actor, request(ref))
			require.NoError(t, err)

			assert.Equal(t, reservation.StatusApproved, r.Status)
			require.NotNil(t, r.ApprovedBy)
			assert.Equal(t, actor.UserID, *r.ApprovedBy)
			assert.NotNil(t, r.ApprovedAt)

			stored, err := f.ledger.GetByID(context.Background(), r.ID)
			require.NoError(t, err)
			assert.Equal(t, reservation.StatusApproved, stored.Status, "no pending state is ever stored")
			assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(ref))
		})
	}
}

func TestCreateRejectsUnavailableAndMissingResources(t *testing.T) {
	f := newFixture(
		testutil.Grave("A-1-1", catalog.StatusOccupied),
		testutil.Grave("A-1-2", catalog.StatusMaintenance),
	)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, client, request(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-1-1"}))
	assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)

	_, err = f.svc.Create(ctx, client, request(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-1-2"}))
	assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)

	_, err = f.svc.Create(ctx, client, request(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-9-9"}))
	assert.ErrorIs(t, err, reservation.ErrResourceNotFound)

	_, err = f.svc.Create(ctx, client, request(catalog.Ref{Kind: "mausoleum", ID: "X1"}))
	assert.ErrorIs(t, err, catalog.ErrUnknownCatalog)

	assert.Zero(t, f.ledger.Len())
	assert.Equal(t, catalog.StatusOccupied, f.catalogs.Status(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-1-1"}))
}

func TestCreateValidationHasNoSideEffects(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))

	req := request(graveA37)
	req.Client.Email = "not-an-email"
	_, err := f.svc.Create(context.Background(), client, req)

	assert.ErrorIs(t, err, reservation.ErrInvalidInput)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
	assert.Zero(t, f.ledger.Len())
	assert.Empty(t, f.events.Events())
}

func TestConcurrentCreatesYieldExactlyOneWinner(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	const n = 32

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := auth.Actor{UserID: fmt.Sprintf("client-%d", i), Role: auth.RoleClient}
			_, errs[i] = f.svc.Create(context.Background(), actor, request(graveA37))
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, reservation.ErrResourceUnavailable):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
	assert.Equal(t, 1, f.ledger.ActiveOn(graveA37))
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
}

func TestLedgerFailureReleasesClaim(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	f.ledger.FailCreate(testutil.ErrBoom)

	_, err := f.svc.Create(context.Background(), client, request(graveA37))

	assert.ErrorIs(t, err, reservation.ErrPersistence)
	assert.ErrorIs(t, err, testutil.ErrBoom)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
	assert.Empty(t, f.events.Events())
}

func TestBackstopConflictLeavesResourceReserved(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	// Catalog says available but the ledger already holds an active claim.
	f.ledger.Put(&reservation.Reservation{Resource: graveA37, Status: reservation.StatusApproved, ActorRole: auth.RoleStaff, CreatedBy: "staff-1"})

	_, err := f.svc.Create(context.Background(), client, request(graveA37))

	assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
	assert.Equal(t, 1, f.ledger.ActiveOn(graveA37))
}

func TestApproveKeepsResourceReserved(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)

	approved, err := f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	require.NoError(t, err)

	assert.Equal(t, reservation.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, staff.UserID, *approved.ApprovedBy)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
}

func TestRejectRequiresReasonAndReleasesResource(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusRejected, Reason: "  "})
	assert.ErrorIs(t, err, reservation.ErrReasonRequired)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))

	rejected, err := f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusRejected, Reason: "Duplicate request"})
	require.NoError(t, err)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Duplicate request", *rejected.RejectionReason)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
	assert.Equal(t, events.ReservationRejected, f.events.Types()[1])
	assert.Equal(t, "Duplicate request", f.events.Events()[1].RejectionReason)
}

func TestReleaseGuardKeepsResourceHeldByOtherReservation(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	// A legacy record left over from before the engine: completed on the same plot.
	f.ledger.Put(&reservation.Reservation{Resource: graveA37, Status: reservation.StatusCompleted, ActorRole: auth.RoleClient, CreatedBy: "client-9"})

	_, err = f.svc.SetStatus(ctx, client, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCancelled})
	require.NoError(t, err)

	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
}

func TestClientMayOnlyCancelOwnPending(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Grave("A-3-8", catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, otherClient, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCancelled})
	assert.ErrorIs(t, err, reservation.ErrPermissionDenied)

	_, err = f.svc.SetStatus(ctx, client, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	assert.ErrorIs(t, err, reservation.ErrPermissionDenied)

	approvedRef := catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-8"}
	other, err := f.svc.Create(ctx, client, request(approvedRef))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, staff, other.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, client, other.ID, reservation.SetStatusRequest{Status: reservation.StatusCancelled})
	assert.ErrorIs(t, err, reservation.ErrPermissionDenied, "approved reservations are cancelled by the office")

	cancelled, err := f.svc.SetStatus(ctx, client, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
}

func TestCompleteOnlyClientAuthoredApproved(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Grave("A-3-8", catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCompleted})
	assert.ErrorIs(t, err, reservation.ErrInvalidTransition, "pending cannot complete")

	require.NoError(t, f.ledger.AttachProof(ctx, r.ID, "proof-1"))
	require.NoError(t, f.ledger.MarkConfirmationSent(ctx, r.ID, time.Now()))
	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	require.NoError(t, err)
	done, err := f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCompleted, done.Status)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))

	walkIn, err := f.svc.Create(ctx, staff, request(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-8"}))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, admin, walkIn.ID, reservation.SetStatusRequest{Status: reservation.StatusCompleted})
	assert.ErrorIs(t, err, reservation.ErrInvalidTransition)
}

func TestCompleteRequiresDeliveredConfirmation(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, admin, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCompleted})
	assert.ErrorIs(t, err, reservation.ErrNotConfirmed, "no proof attached")

	stored, err := f.ledger.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusApproved, stored.Status)
}

func TestCompleteRequiresRecordedDelivery(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	require.NoError(t, f.ledger.AttachProof(ctx, r.ID, "proof-1"))
	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCompleted})
	assert.ErrorIs(t, err, reservation.ErrNotConfirmed, "proof without a delivered confirmation")
}

func TestGridCellAndLegacyLotShareOneClaim(t *testing.T) {
	lotL0102 := catalog.Ref{Kind: catalog.KindLegacyLot, ID: "L-0102"}
	ctx := context.Background()

	t.Run("grid first", func(t *testing.T) {
		f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Lot("L-0102", "A", 3, 7, catalog.StatusAvailable))

		_, err := f.svc.Create(ctx, client, request(graveA37))
		require.NoError(t, err)
		assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(lotL0102))

		_, err = f.svc.Create(ctx, otherClient, request(lotL0102))
		assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)
		assert.Equal(t, 1, f.ledger.Len())
	})

	t.Run("lot first", func(t *testing.T) {
		f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Lot("L-0102", "A", 3, 7, catalog.StatusAvailable))

		_, err := f.svc.Create(ctx, client, request(lotL0102))
		require.NoError(t, err)
		assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))

		_, err = f.svc.Create(ctx, otherClient, request(graveA37))
		assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)
		assert.Equal(t, 1, f.ledger.Len())
	})
}

func TestOccupiedTwinRefusesCreate(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Lot("L-0102", "A", 3, 7, catalog.StatusOccupied))

	_, err := f.svc.Create(context.Background(), client, request(graveA37))
	assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
	assert.Equal(t, catalog.StatusOccupied, f.catalogs.Status(catalog.Ref{Kind: catalog.KindLegacyLot, ID: "L-0102"}))
	assert.Equal(t, 0, f.ledger.Len())
}

func TestRejectFreesBothCoordinateClaims(t *testing.T) {
	lotL0102 := catalog.Ref{Kind: catalog.KindLegacyLot, ID: "L-0102"}
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Lot("L-0102", "A", 3, 7, catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(lotL0102))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusRejected, Reason: "Duplicate request"})
	require.NoError(t, err)

	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(lotL0102))
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
}

func TestLedgerFailureUnclaimsTwin(t *testing.T) {
	lotL0102 := catalog.Ref{Kind: catalog.KindLegacyLot, ID: "L-0102"}
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Lot("L-0102", "A", 3, 7, catalog.StatusAvailable))
	f.ledger.FailCreate(testutil.ErrBoom)

	_, err := f.svc.Create(context.Background(), client, request(graveA37))
	assert.ErrorIs(t, err, reservation.ErrPersistence)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(lotL0102))
}

func TestTerminalStatusesCannotMove(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusRejected, Reason: "No payment"})
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, admin, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	assert.ErrorIs(t, err, reservation.ErrInvalidTransition)
}

func TestRacingTransitionsProduceOneWinner(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)

	// The client cancels while staff rejects; both start from pending.
	type attempt struct {
		actor auth.Actor
		req   reservation.SetStatusRequest
	}
	attempts := []attempt{
		{client, reservation.SetStatusRequest{Status: reservation.StatusCancelled}},
		{staff, reservation.SetStatusRequest{Status: reservation.StatusRejected, Reason: "Incomplete documents"}},
	}

	var wg sync.WaitGroup
	results := make([]error, len(attempts))
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			_, results[i] = f.svc.SetStatus(ctx, a.actor, r.ID, a.req)
		}(i, a)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		// The loser either saw the new status on read or lost the conditional update.
		assert.True(t, errors.Is(err, reservation.ErrStaleStatus) ||
			errors.Is(err, reservation.ErrInvalidTransition) ||
			errors.Is(err, reservation.ErrPermissionDenied),
			"unexpected error %v", err)
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))
}

func TestDeleteIsAdminOnlyAndRunsReleaseGuard(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, staff, request(graveA37))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, staff, r.ID), reservation.ErrPermissionDenied)
	assert.ErrorIs(t, f.svc.Delete(ctx, client, r.ID), reservation.ErrPermissionDenied)

	require.NoError(t, f.svc.Delete(ctx, admin, r.ID))
	assert.Zero(t, f.ledger.Len())
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(graveA37))

	assert.ErrorIs(t, f.svc.Delete(ctx, admin, r.ID), reservation.ErrNotFound)
}

func TestDeletingTerminalReservationLeavesResourceAlone(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, client, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCancelled})
	require.NoError(t, err)

	// Someone else claims the freed plot.
	_, err = f.svc.Create(ctx, otherClient, request(graveA37))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, admin, r.ID))
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
}

func TestRollbackRemovesRecordAndFreesResource(t *testing.T) {
	f := newFixture(testutil.Slot("M2A0305", "M2", 3, 5, catalog.StatusAvailable))
	ctx := context.Background()
	r, err := f.svc.Create(ctx, client, request(slotM2))
	require.NoError(t, err)

	require.NoError(t, f.svc.Rollback(ctx, r.ID))

	_, err = f.ledger.GetByID(ctx, r.ID)
	assert.ErrorIs(t, err, reservation.ErrNotFound)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(slotM2))
	assert.Equal(t, events.ReservationDeleted, f.events.Types()[len(f.events.Types())-1])
}

func TestClientsSeeOnlyTheirOwnReservations(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable), testutil.Grave("A-3-8", catalog.StatusAvailable))
	ctx := context.Background()
	mine, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	theirs, err := f.svc.Create(ctx, otherClient, request(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-8"}))
	require.NoError(t, err)

	list, total, err := f.svc.List(ctx, client, reservation.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, mine.ID, list[0].ID)

	_, err = f.svc.GetByID(ctx, client, theirs.ID)
	assert.ErrorIs(t, err, reservation.ErrPermissionDenied)

	_, total, err = f.svc.List(ctx, staff, reservation.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestEventPublishFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	f.events.Fail(testutil.ErrBoom)

	r, err := f.svc.Create(context.Background(), client, request(graveA37))
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
}

// Scenario: client books A-3-7, staff approves; a second client is turned away.
func TestScenarioGardenPlotA37(t *testing.T) {
	f := newFixture(testutil.Grave("A-3-7", catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, client, request(graveA37))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, otherClient, request(graveA37))
	assert.ErrorIs(t, err, reservation.ErrResourceUnavailable)

	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(graveA37))
	assert.Equal(t, 1, f.ledger.ActiveOn(graveA37))
}

// Scenario: staff books niche M2A0305 for a walk-in client, then cancels it.
func TestScenarioColumbariumM2A0305(t *testing.T) {
	f := newFixture(testutil.Slot("M2A0305", "M2", 3, 5, catalog.StatusAvailable))
	ctx := context.Background()

	r, err := f.svc.Create(ctx, staff, request(slotM2))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusApproved, r.Status)
	assert.Equal(t, catalog.StatusReserved, f.catalogs.Status(slotM2))

	_, err = f.svc.SetStatus(ctx, staff, r.ID, reservation.SetStatusRequest{Status: reservation.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusAvailable, f.catalogs.Status(slotM2))

	again, err := f.svc.Create(ctx, client, request(slotM2))
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusPending, again.Status)
}

package reservation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/plot-booking-backend/internal/auth"
	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, ActorPolicy{}, PolicyFor(auth.RoleClient))
	assert.Equal(t, StatusPending, PolicyFor(auth.RoleClient).InitialStatus())

	staff := PolicyFor(auth.RoleStaff)
	assert.True(t, staff.AutoApprove)
	assert.True(t, staff.CanReview)
	assert.False(t, staff.CanHardDelete)

	admin := PolicyFor(auth.RoleAdmin)
	assert.True(t, admin.CanHardDelete)
	assert.Equal(t, StatusApproved, admin.InitialStatus())

	assert.Equal(t, ActorPolicy{}, PolicyFor(auth.Role("visitor")))
}

func TestLifecycleEdges(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusApproved},
		{StatusPending, StatusRejected},
		{StatusPending, StatusCancelled},
		{StatusApproved, StatusCompleted},
		{StatusApproved, StatusCancelled},
		{StatusApproved, StatusRejected},
	}
	for _, e := range allowed {
		assert.True(t, CanTransition(e[0], e[1]), "%s -> %s", e[0], e[1])
	}

	denied := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusApproved, StatusPending},
		{StatusRejected, StatusApproved},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusCancelled},
	}
	for _, e := range denied {
		assert.False(t, CanTransition(e[0], e[1]), "%s -> %s", e[0], e[1])
	}
}

func TestHoldingStatuses(t *testing.T) {
	assert.True(t, StatusPending.Holding())
	assert.True(t, StatusApproved.Holding())
	assert.True(t, StatusCompleted.Holding())
	assert.False(t, StatusRejected.Holding())
	assert.False(t, StatusCancelled.Holding())
}

func TestCreateRequestValidate(t *testing.T) {
	valid := func() CreateRequest {
		return CreateRequest{
			Resource: catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-7"},
			Client:   Client{Name: "Maria Santos", Email: "maria@example.com"},
			Payment:  Payment{Amount: decimal.RequireFromString("100"), Method: PaymentCash},
		}
	}
	r := valid()
	assert.NoError(t, r.Validate())

	birth := time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]func(*CreateRequest){
		"no name":        func(r *CreateRequest) { r.Client.Name = "" },
		"bad email":      func(r *CreateRequest) { r.Client.Email = "maria" },
		"bad method":     func(r *CreateRequest) { r.Payment.Method = "cheque" },
		"negative":       func(r *CreateRequest) { r.Payment.Amount = decimal.RequireFromString("-1") },
		"death < birth":  func(r *CreateRequest) { r.Deceased.DateOfBirth, r.Deceased.DateOfDeath = &birth, &death },
		"no resource id": func(r *CreateRequest) { r.Resource.ID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid()
			mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidInput)
		})
	}

	r = valid()
	r.Resource.Kind = "crypt"
	assert.ErrorIs(t, r.Validate(), catalog.ErrUnknownCatalog)
}

func TestOwnedBy(t *testing.T) {
	clientID := "client-7"
	r := &Reservation{CreatedBy: "staff-1", ClientID: &clientID}
	assert.True(t, r.OwnedBy("staff-1"))
	assert.True(t, r.OwnedBy("client-7"))
	assert.False(t, r.OwnedBy("client-8"))
	assert.False(t, r.OwnedBy(""))
}

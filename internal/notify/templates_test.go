package notify

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/plot-booking-backend/internal/catalog"
)

func TestTemplatesGolden(t *testing.T) {
	cases := map[string]TemplateData{
		TemplateReceived: {
			ClientName:    "Maria Santos",
			ReservationID: "7d9f1c2e-5b7a-4c1e-9a55-2f1d3c4b5a69",
			Resource:      ResourceLabel(catalog.Ref{Kind: catalog.KindGardenGrid, ID: "A-3-7"}),
			Status:        "pending",
			Amount:        "15000.00",
			PaymentMethod: "gcash",
		},
		TemplateApproved: {
			ClientName:    "Ana Reyes",
			ReservationID: "0b8e4f6a-1c2d-4e3f-8a9b-0c1d2e3f4a5b",
			Resource:      ResourceLabel(catalog.Ref{Kind: catalog.KindColumbarium, ID: "M2A0305"}),
			Status:        "approved",
		},
		TemplateRejected: {
			ClientName:    "Pedro Cruz",
			ReservationID: "5c6d7e8f-9a0b-4c1d-8e2f-3a4b5c6d7e8f",
			Resource:      ResourceLabel(catalog.Ref{Kind: catalog.KindLegacyLot, ID: "L-0102"}),
			Status:        "rejected",
			Reason:        "Proof of payment is unreadable",
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := Render(name, data)
			require.NoError(t, err)
			out := fmt.Sprintf("Subject: %s\n\n%s\nSMS: %s\n", msg.Subject, msg.Body, msg.SMS)
			g.Assert(t, name, []byte(out))
		})
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, err := Render("reservation_lost", TemplateData{})
	assert.Error(t, err)
}

func TestRenderAddressesRecipient(t *testing.T) {
	msg, err := Render(TemplateApproved, TemplateData{
		ClientName:  "Ana Reyes",
		ClientEmail: "ana@example.com",
		ClientPhone: "+639171234567",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Reyes", msg.ToName)
	assert.Equal(t, "ana@example.com", msg.ToEmail)
	assert.Equal(t, "+639171234567", msg.ToPhone)
}

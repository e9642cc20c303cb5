package referral

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aayamfest/ambassador/backend/internal/models"
)

func TestBulkImport_PartialFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := approvedAmbassador(t, svc, "a@example.com")
	b := approvedAmbassador(t, svc, "b@example.com")

	rows := []models.ImportRow{
		{ReferralCode: a.ReferralCode, ParticipantName: "One", ParticipantEmail: "one@example.com"},
		{ReferralCode: "AAYAMNOPE00", ParticipantName: "Two", ParticipantEmail: "two@example.com"},
		{ReferralCode: strings.ToLower(b.ReferralCode), ParticipantName: "Three", ParticipantEmail: "three@example.com", ParticipantCollege: "NST"},
	}
	report := svc.BulkImport(ctx, "admin-1", rows)

	assert.Equal(t, 2, report.Success)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Row)
	assert.Equal(t, "InvalidReferralCode", report.Errors[0].Error)
	assert.Equal(t, rows[1], report.Errors[0].Data)

	assert.Equal(t, 1, signupCount(t, svc, a.ID))
	assert.Equal(t, 1, signupCount(t, svc, b.ID))

	dash, err := svc.AmbassadorDashboard(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, dash.Signups, 1)
	su := dash.Signups[0]
	assert.Equal(t, models.StatusApproved, su.Status)
	assert.Equal(t, models.SignupBulk, su.Source)
	assert.NotNil(t, su.ApprovedAt)
	assert.Equal(t, "NST", su.ParticipantCollege)
}

func TestBulkImport_RowErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := approvedAmbassador(t, svc, "a@example.com")
	pending, err := svc.Register(ctx, registerReq("pending@example.com"))
	require.NoError(t, err)

	_, err = svc.SubmitSignup(ctx, a.ID, addSignupReq("taken@example.com"))
	require.NoError(t, err)

	rows := []models.ImportRow{
		{ReferralCode: a.ReferralCode, ParticipantName: "", ParticipantEmail: "x@example.com"},
		{ReferralCode: pending.ReferralCode, ParticipantName: "P", ParticipantEmail: "p@example.com"},
		{ReferralCode: a.ReferralCode, ParticipantName: "T", ParticipantEmail: "TAKEN@example.com"},
		{ReferralCode: a.ReferralCode, ParticipantName: "Dup", ParticipantEmail: "dup@example.com"},
		{ReferralCode: a.ReferralCode, ParticipantName: "Dup again", ParticipantEmail: "dup@example.com"},
	}
	report := svc.BulkImport(ctx, "admin-1", rows)

	assert.Equal(t, 1, report.Success)
	assert.Equal(t, 4, report.Failed)
	kinds := map[int]string{}
	for _, e := range report.Errors {
		kinds[e.Row] = e.Error
	}
	assert.Equal(t, map[int]string{
		1: "MissingField",
		2: "InvalidReferralCode",
		3: "DuplicateParticipant",
		5: "DuplicateParticipant",
	}, kinds)
	assert.Contains(t, report.Errors[0].Message, "participant_name")
	assert.Equal(t, 1, signupCount(t, svc, a.ID))
	assert.Equal(t, 0, signupCount(t, svc, pending.ID))
}

func TestBulkImport_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	report := svc.BulkImport(context.Background(), "admin-1", nil)
	assert.Zero(t, report.Success)
	assert.Zero(t, report.Failed)
	assert.NotNil(t, report.Errors)
}

func TestParseCSV(t *testing.T) {
	input := "\ufeffReferral_Code, participant_name,participant_email,participant_phone,participant_college\n" +
		"aayamabc123,One,one@example.com,111,NST\n" +
		"AAYAMABC123,Two,two@example.com\n" +
		"AAYAMABC123,Three\n"
	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, models.ImportRow{
		ReferralCode: "aayamabc123", ParticipantName: "One", ParticipantEmail: "one@example.com",
		ParticipantPhone: "111", ParticipantCollege: "NST",
	}, rows[0])
	assert.Empty(t, rows[1].ParticipantPhone)
	assert.Empty(t, rows[2].ParticipantEmail)
}

func TestParseCSV_ShortRowReportedAsMissingField(t *testing.T) {
	svc, _ := newTestService(t)
	a := approvedAmbassador(t, svc, "a@example.com")

	rows, err := ParseCSV(strings.NewReader("referral_code,participant_name,participant_email\n" + a.ReferralCode + ",Only Name\n"))
	require.NoError(t, err)
	report := svc.BulkImport(context.Background(), "admin-1", rows)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "MissingField", report.Errors[0].Error)
}

func TestParseCSV_BadHeader(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"wrong order":  "participant_name,referral_code,participant_email\n",
		"too few":      "referral_code,participant_name\n",
		"unknown col":  "referral_code,participant_name,participant_email,phone\n",
		"too many":     "referral_code,participant_name,participant_email,participant_phone,participant_college,extra\n",
		"broken quote": "referral_code,participant_name,participant_email\n\"AAYAM,x,y\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(input))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

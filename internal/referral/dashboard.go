package referral

import (
	"context"

	"github.com/aayamfest/ambassador/backend/internal/models"
)

// AdminDashboard returns every ambassador and signup (newest first) with
// aggregate counts. It reads everything on each call; there is no cache.
func (s *Service) AdminDashboard(ctx context.Context) (models.AdminDashboard, error) {
	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	dash := models.AdminDashboard{Ambassadors: []models.Ambassador{}, Signups: []models.Signup{}}

	rows, err := s.db.QueryContext(qctx, `SELECT `+ambassadorColumns+` FROM ambassadors ORDER BY created_at DESC`)
	if err != nil {
		return dash, storeErr("admin dashboard", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAmbassador(rows)
		if err != nil {
			return dash, storeErr("admin dashboard", err)
		}
		dash.Ambassadors = append(dash.Ambassadors, a)
	}
	if err := rows.Err(); err != nil {
		return dash, storeErr("admin dashboard", err)
	}

	srows, err := s.db.QueryContext(qctx, `
		SELECT `+signupColumns+`, a.name, a.referral_code
		FROM signups s JOIN ambassadors a ON a.id = s.ambassador_id
		ORDER BY s.registered_at DESC`)
	if err != nil {
		return dash, storeErr("admin dashboard", err)
	}
	defer srows.Close()
	for srows.Next() {
		var name, code string
		su, err := scanSignup(srows, &name, &code)
		if err != nil {
			return dash, storeErr("admin dashboard", err)
		}
		su.AmbassadorName, su.ReferralCode = name, code
		dash.Signups = append(dash.Signups, su)
	}
	if err := srows.Err(); err != nil {
		return dash, storeErr("admin dashboard", err)
	}

	dash.Stats = computeStats(dash.Ambassadors, dash.Signups)
	return dash, nil
}

func computeStats(ambassadors []models.Ambassador, signups []models.Signup) models.DashboardStats {
	st := models.DashboardStats{
		TotalAmbassadors: len(ambassadors),
		TotalSignups:     len(signups),
	}
	for _, a := range ambassadors {
		switch a.Status {
		case models.StatusPending:
			st.PendingAmbassadors++
		case models.StatusApproved:
			st.ApprovedAmbassadors++
		case models.StatusRejected:
			st.RejectedAmbassadors++
		}
		switch TierFor(a.SignupCount) {
		case models.TierNone:
			st.TierDistribution.None++
		case models.TierBronze:
			st.TierDistribution.Bronze++
		case models.TierSilver:
			st.TierDistribution.Silver++
		case models.TierGold:
			st.TierDistribution.Gold++
		case models.TierPlatinum:
			st.TierDistribution.Platinum++
		}
	}
	for _, su := range signups {
		switch su.Status {
		case models.StatusPending:
			st.PendingSignups++
		case models.StatusApproved:
			st.ApprovedSignups++
		case models.StatusRejected:
			st.RejectedSignups++
		}
	}
	return st
}

// AmbassadorDashboard returns the caller's profile and their signups.
func (s *Service) AmbassadorDashboard(ctx context.Context, ambassadorID string) (models.AmbassadorDashboard, error) {
	qctx, cancel := s.storeCtx(ctx)
	defer cancel()

	amb, err := getAmbassador(qctx, s.db, ambassadorID)
	if err != nil {
		return models.AmbassadorDashboard{}, err
	}
	dash := models.AmbassadorDashboard{Ambassador: amb, Signups: []models.Signup{}}

	rows, err := s.db.QueryContext(qctx,
		`SELECT `+signupColumns+` FROM signups s WHERE s.ambassador_id = ? ORDER BY s.registered_at DESC`, ambassadorID)
	if err != nil {
		return dash, storeErr("ambassador dashboard", err)
	}
	defer rows.Close()
	for rows.Next() {
		su, err := scanSignup(rows)
		if err != nil {
			return dash, storeErr("ambassador dashboard", err)
		}
		dash.Signups = append(dash.Signups, su)
	}
	if err := rows.Err(); err != nil {
		return dash, storeErr("ambassador dashboard", err)
	}
	return dash, nil
}

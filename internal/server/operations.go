package server

import "fitchallenge/internal/views"

var (
	// Proof reads embed competitor names, so proof keys go too.
	competitorKeys = []string{
		views.KeyCompetitors,
		views.KeyCompetitorsList,
		views.KeyHallOfFame,
		views.KeyWeeklyLeaderboard,
		views.KeyProofs,
		views.KeyRecentProofs,
	}
	proofKeys = []string{
		views.KeyRecentProofs,
		views.KeyCompetitors,
		views.KeyProofs,
		views.KeyWeeklyLeaderboard,
		views.KeyHallOfFame,
	}
	signUpKeys = []string{views.KeyCompetitors, views.KeyCompetitorsList}
)

type operation struct {
	name        string
	loading     string
	success     string
	invalidates []string
}

var (
	opAddCompetitor    = operation{"add_competitor", "Adding competitor...", "Competitor added!", competitorKeys}
	opEditCompetitor   = operation{"edit_competitor", "Updating competitor...", "Competitor updated!", competitorKeys}
	opDeleteCompetitor = operation{"delete_competitor", "Removing competitor...", "Competitor removed!", competitorKeys}
	opSubmitProof      = operation{"submit_proof", "Sending proof...", "Proof registered!", proofKeys}
	opEditProof        = operation{"edit_proof", "Updating proof...", "Proof updated!", proofKeys}
	opDeleteProof      = operation{"delete_proof", "Removing proof...", "Proof removed!", proofKeys}
	opSignUp           = operation{"sign_up", "Creating account...", "Account created! You can now sign in.", signUpKeys}
	opSignIn           = operation{"sign_in", "Signing in...", "Signed in successfully!", nil}
)
